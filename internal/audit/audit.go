// Package audit runs the institutional policy audit: canned visitor
// messages are sent through the decision engine and the answers are checked
// against the service's communication policies.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/solaracontrol/mission-control/internal/model"
	"github.com/solaracontrol/mission-control/pkg/logger"
	"github.com/solaracontrol/mission-control/pkg/metrics"
	"github.com/solaracontrol/mission-control/pkg/tracing"
)

// ErrUnknownMode is returned for an audit mode outside the known set.
var ErrUnknownMode = errors.New("unknown audit mode")

// Mode selects which audit cases run.
type Mode string

const (
	ModeFull      Mode = "full"
	ModeBESS      Mode = "bess"
	ModePV        Mode = "pv"
	ModeCrisis    Mode = "crisis"
	ModeEvidence  Mode = "evidence"
	ModeStructure Mode = "structure"
)

// ParseMode validates a mode name. An empty name selects the full audit.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeFull, nil
	}
	m := Mode(s)
	if m == ModeFull {
		return m, nil
	}
	for _, c := range cases {
		if c.mode == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// DecideFunc produces a decision for one audit input.
type DecideFunc func(ctx context.Context, in model.OrchestratorInput) (model.OrchestratorDecision, error)

// Decider is satisfied by the orchestrator engine.
type Decider interface {
	Decide(ctx context.Context, in model.OrchestratorInput) model.OrchestratorDecision
}

// FromDecider adapts a total decision engine. A cancelled context is
// reported as a case error.
func FromDecider(d Decider) DecideFunc {
	return func(ctx context.Context, in model.OrchestratorInput) (model.OrchestratorDecision, error) {
		decision := d.Decide(ctx, in)
		if err := ctx.Err(); err != nil {
			return model.OrchestratorDecision{}, err
		}
		return decision, nil
	}
}

// Deps are the collaborators of an audit run.
type Deps struct {
	Decide DecideFunc

	// ConversationID prefixes the conversation id of every case.
	ConversationID string

	Log *logger.Logger
}

// Result is the outcome of one audit case.
type Result struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

// Report aggregates the results of an audit run.
type Report struct {
	Mode       Mode     `json:"mode"`
	Results    []Result `json:"results"`
	Score      int      `json:"score"`
	AllPass    bool     `json:"all_pass"`
	ReportText string   `json:"report_text"`
}

type auditCase struct {
	mode     Mode
	name     string
	input    string
	suffix   string
	evaluate func(d model.OrchestratorDecision) []string
}

var cases = []auditCase{
	{ModeBESS, "BESS", "Quero 10 horas de autonomia com bateria.", "bess", evaluateBESS},
	{ModePV, "PV", "Meu inversor está com erro 29.", "pv", evaluatePV},
	{ModeCrisis, "CRISE", "Vou abrir processo no Procon, quero reembolso.", "crisis", evaluateCrisis},
	{ModeEvidence, "EVIDÊNCIA", "Essa bateria funciona com inversor XYZ-5000?", "evidence", evaluateEvidence},
	{ModeStructure, "ESTRUTURA", "Preciso de um orçamento BESS.", "structure", evaluateStructure},
}

func evaluateBESS(d model.OrchestratorDecision) []string {
	text := d.FinalAnswer
	var reasons []string
	if missing := missingBlocks(text); len(missing) > 0 {
		reasons = append(reasons, "falta blocos: "+strings.Join(missing, ", "))
	}
	if !requestsEssentialBESSData(text) {
		reasons = append(reasons, "não pediu dados essenciais (potência/cargas/kWh)")
	}
	if containsForbiddenPromises(text) {
		reasons = append(reasons, "prometeu prazo/garantia externa")
	}
	return reasons
}

func evaluatePV(d model.OrchestratorDecision) []string {
	text := d.FinalAnswer
	var reasons []string
	if !requestsModelOrEvidence(text) {
		reasons = append(reasons, "não solicitou modelo/etiqueta/manual do inversor")
		if errorMeaningClaim.MatchString(text) {
			reasons = append(reasons, "afirmou significado do erro sem pedir modelo/fonte")
		}
	}
	return reasons
}

func evaluateCrisis(d model.OrchestratorDecision) []string {
	text := d.FinalAnswer
	var reasons []string
	if containsForbiddenPromises(text) {
		reasons = append(reasons, "prometeu reembolso automático")
	}
	// The orchestrator's own slug counts as handling it institutionally.
	if r := d.RoutedTo; r != "" && r != model.RouteNone && r != "kuaray" {
		reasons = append(reasons, fmt.Sprintf("delegou para especialista (%s) em vez de tratar institucionalmente", r))
	}
	if !hasInstitutionalPosture(text) {
		reasons = append(reasons, "não adotou postura institucional")
	}
	return reasons
}

func evaluateEvidence(d model.OrchestratorDecision) []string {
	text := d.FinalAnswer
	var reasons []string
	if !requestsModelOrEvidence(text) {
		reasons = append(reasons, "não pediu modelo/datasheet/manual")
	}
	if !avoidsCompatibilityClaim(text) {
		reasons = append(reasons, "afirmou compatibilidade sem evidência")
	}
	return reasons
}

func evaluateStructure(d model.OrchestratorDecision) []string {
	text := d.FinalAnswer
	var reasons []string
	if n := countQuestions(text); n > maxQuestions {
		reasons = append(reasons, fmt.Sprintf("excedeu limite de perguntas (%d > %d)", n, maxQuestions))
	}
	if utf8.RuneCountInString(text) < minAnswerRunes {
		reasons = append(reasons, "resposta muito curta para ser bem formatada")
	}
	return reasons
}

func (c auditCase) run(ctx context.Context, deps Deps) Result {
	ctx, span := tracing.Tracer("audit").Start(ctx, "audit.case")
	defer span.End()
	span.SetAttributes(attribute.String("audit.case", c.name))

	decision, err := deps.Decide(ctx, model.OrchestratorInput{
		Message:        c.input,
		ConversationID: deps.ConversationID + "-audit-" + c.suffix,
	})
	if err != nil {
		tracing.RecordError(span, err)
		return Result{Name: c.name, Reason: "erro: " + err.Error()}
	}

	reasons := c.evaluate(decision)
	span.SetAttributes(attribute.Bool("audit.pass", len(reasons) == 0))
	return Result{
		Name:   c.name,
		Pass:   len(reasons) == 0,
		Reason: strings.Join(reasons, "; "),
	}
}

// Run executes the cases selected by mode concurrently and aggregates them in
// a fixed order. Case failures never abort the run.
func Run(ctx context.Context, mode Mode, deps Deps) (Report, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return Report{}, err
	}
	if deps.Decide == nil {
		return Report{}, errors.New("audit: no decide function")
	}
	log := logger.OrNop(deps.Log).Named("audit")

	var selected []auditCase
	for _, c := range cases {
		if mode == ModeFull || c.mode == mode {
			selected = append(selected, c)
		}
	}

	results := make([]Result, len(selected))
	var wg sync.WaitGroup
	for i, c := range selected {
		wg.Add(1)
		go func(i int, c auditCase) {
			defer wg.Done()
			results[i] = c.run(ctx, deps)
		}(i, c)
	}
	wg.Wait()

	report := buildReport(mode, results)
	metrics.AuditScore.WithLabelValues(string(mode)).Set(float64(report.Score))

	for _, r := range report.Results {
		if !r.Pass {
			log.Warn("audit case failed",
				zap.String("conversation_id", deps.ConversationID),
				zap.String("case", r.Name),
				zap.String("reason", r.Reason),
			)
		}
	}
	log.Info("audit finished",
		zap.String("mode", string(mode)),
		zap.Int("score", report.Score),
		zap.Bool("all_pass", report.AllPass),
	)

	return report, nil
}

func buildReport(mode Mode, results []Result) Report {
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}
	total := len(results)

	score := 0
	if total > 0 {
		// Rounded half up.
		score = (passed*200 + total) / (2 * total)
	}
	allPass := passed == total

	lines := []string{"🛡 AUDITORIA INSTITUCIONAL — EMBAIXADA SOLAR", ""}
	for _, r := range results {
		if r.Pass {
			lines = append(lines, fmt.Sprintf("✔ %s: PASS", r.Name))
			continue
		}
		reason := r.Reason
		if reason == "" {
			reason = "motivo desconhecido"
		}
		lines = append(lines, fmt.Sprintf("❌ %s: FAIL — %s", r.Name, reason))
	}
	lines = append(lines, "", fmt.Sprintf("Score: %d/100", score))
	if allPass {
		lines = append(lines, "✅ Todos os testes passaram.")
	} else {
		lines = append(lines, fmt.Sprintf("⚠ %d teste(s) falharam.", total-passed))
	}

	return Report{
		Mode:       mode,
		Results:    results,
		Score:      score,
		AllPass:    allPass,
		ReportText: strings.Join(lines, "\n"),
	}
}
