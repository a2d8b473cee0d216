package orchestrator

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/solaracontrol/mission-control/internal/model"
)

// Visitor-facing fallback texts.
const (
	SafeFallbackAnswer     = "Desculpe, não consegui processar sua mensagem. Por favor, tente novamente."
	ProviderFailureAnswer  = "Desculpe, estou com dificuldades técnicas no momento. Por favor, tente novamente em alguns instantes."
	defaultFallbackRisk    = model.RiskLow
	defaultFallbackRouting = model.RouteNone
)

var errNotAnObject = errors.New("completion is not a JSON object")

// crisisCues matches legal threats, refund demands and complaints in the
// visitor's own message.
var crisisCues = regexp.MustCompile(`(?i)\b(procon|abrir (um )?processo|processo judicial|(vou|vamos|irei|quero) processar|processar (a empresa|voc[êe]s)|advogado|a[çc][ãa]o judicial|reembolso|estorno|reclama[çc][ãa]o|reclame aqui)\b`)

// rawDecision mirrors the completion payload before validation. Fields are
// untyped so that wrong JSON types degrade to defaults instead of failing.
type rawDecision struct {
	FinalAnswer     any `json:"final_answer"`
	RoutedTo        any `json:"routed_to"`
	RiskLevel       any `json:"risk_level"`
	Category        any `json:"category"`
	ConfidenceScore any `json:"confidence_score"`
}

func fallbackDecision(answer string, outcome model.Outcome) model.OrchestratorDecision {
	return model.OrchestratorDecision{
		FinalAnswer: answer,
		RoutedTo:    defaultFallbackRouting,
		RiskLevel:   defaultFallbackRisk,
		Category:    model.DefaultCategory,
		Outcome:     outcome,
	}
}

// parseDecision decodes a completion strictly as a JSON object and normalizes
// every field. validRoute reports whether a slug is an active specialist.
func parseDecision(content string, validRoute func(string) bool) (model.OrchestratorDecision, error) {
	var raw *rawDecision
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return model.OrchestratorDecision{}, err
	}
	if raw == nil {
		return model.OrchestratorDecision{}, errNotAnObject
	}

	d := model.OrchestratorDecision{
		FinalAnswer: SafeFallbackAnswer,
		RoutedTo:    model.RouteNone,
		RiskLevel:   model.RiskLow,
		Category:    model.DefaultCategory,
		Outcome:     model.OutcomeOK,
	}

	if s, ok := raw.FinalAnswer.(string); ok && strings.TrimSpace(s) != "" {
		d.FinalAnswer = s
	} else {
		// Missing answer: the visitor sees the fallback text.
		d.Outcome = model.OutcomeMalformed
	}
	if s, ok := raw.RoutedTo.(string); ok && validRoute(s) {
		d.RoutedTo = s
	}
	if s, ok := raw.RiskLevel.(string); ok {
		if r, valid := model.ParseRiskLevel(s); valid {
			d.RiskLevel = r
		}
	}
	if s, ok := raw.Category.(string); ok && s != "" {
		d.Category = s
	}
	if f, ok := raw.ConfidenceScore.(float64); ok && f >= 0 && f <= 1 {
		d.ConfidenceScore = &f
	}

	return d, nil
}

// isCrisis reports whether the message carries crisis cues.
func isCrisis(message string) bool {
	return crisisCues.MatchString(message)
}
