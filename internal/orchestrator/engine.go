// Package orchestrator implements the decision engine that classifies an
// inbound visitor message, answers it and names the specialist it belongs to.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/solaracontrol/mission-control/internal/llm"
	"github.com/solaracontrol/mission-control/internal/model"
	"github.com/solaracontrol/mission-control/pkg/logger"
	"github.com/solaracontrol/mission-control/pkg/metrics"
	"github.com/solaracontrol/mission-control/pkg/tracing"
)

const (
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 2048
)

// Specialists lists the agents that can be named as a routing target.
type Specialists interface {
	ListSpecialists() []model.AgentDefinition
}

// Config configures an Engine.
type Config struct {
	Model     string
	MaxTokens int
}

// Engine produces orchestrator decisions. It is safe for concurrent use.
type Engine struct {
	client      llm.Client
	specialists Specialists
	model       string
	maxTokens   int
	log         *logger.Logger
}

// NewEngine creates a decision engine.
func NewEngine(client llm.Client, specialists Specialists, cfg Config, log *logger.Logger) *Engine {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Engine{
		client:      client,
		specialists: specialists,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		log:         logger.OrNop(log).Named("orchestrator"),
	}
}

// Decide classifies and answers one inbound message. It never fails: provider
// errors and malformed completions yield a fallback decision.
func (e *Engine) Decide(ctx context.Context, in model.OrchestratorInput) model.OrchestratorDecision {
	start := time.Now()
	ctx, span := tracing.Tracer("orchestrator").Start(ctx, "orchestrator.Decide")
	defer span.End()

	log := e.log.WithConversation(in.ConversationID, in.VisitorID)

	specialists := e.specialists.ListSpecialists()
	active := make(map[string]struct{}, len(specialists))
	for _, a := range specialists {
		active[a.Slug] = struct{}{}
	}
	validRoute := func(slug string) bool {
		if slug == model.RouteNone {
			return true
		}
		_, ok := active[slug]
		return ok
	}

	decision := e.decide(ctx, log, specialists, in, validRoute)

	if decision.RoutedTo != model.RouteNone && isCrisis(in.Message) {
		log.Info("crisis cues in message, handling institutionally",
			zap.String("model_routed_to", decision.RoutedTo))
		decision.RoutedTo = model.RouteNone
	}

	elapsed := time.Since(start)
	metrics.RecordDecision(decision.RoutedTo, string(decision.RiskLevel), string(decision.Outcome), elapsed.Seconds())
	span.SetAttributes(
		attribute.String("decision.routed_to", decision.RoutedTo),
		attribute.String("decision.risk_level", string(decision.RiskLevel)),
		attribute.String("decision.outcome", string(decision.Outcome)),
	)

	return decision
}

func (e *Engine) decide(
	ctx context.Context,
	log *logger.Logger,
	specialists []model.AgentDefinition,
	in model.OrchestratorInput,
	validRoute func(string) bool,
) model.OrchestratorDecision {
	resp, err := e.client.Complete(ctx, &llm.CompletionRequest{
		Model:     e.model,
		Messages:  buildMessages(specialists, in),
		MaxTokens: e.maxTokens,
		JSONMode:  true,
	})
	if err != nil {
		var perr *llm.ProviderError
		fields := []zap.Field{zap.Error(err)}
		if errors.As(err, &perr) {
			fields = append(fields, zap.String("provider", perr.Provider), zap.Int("status_code", perr.StatusCode))
		}
		log.Warn("completion failed, returning fallback decision", fields...)
		return fallbackDecision(ProviderFailureAnswer, model.OutcomeProviderFailure)
	}

	decision, err := parseDecision(resp.Content, validRoute)
	if err != nil {
		log.Warn("malformed completion, returning fallback decision",
			zap.Error(err), zap.Int("content_length", len(resp.Content)))
		return fallbackDecision(SafeFallbackAnswer, model.OutcomeMalformed)
	}

	log.Debug("decision produced",
		zap.String("routed_to", decision.RoutedTo),
		zap.String("risk_level", string(decision.RiskLevel)),
		zap.String("category", decision.Category),
		zap.Int64("latency_ms", resp.LatencyMs),
	)
	return decision
}
