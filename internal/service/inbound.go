// Package service wires the core components into the inbound-message and
// direct-reply pipelines.
package service

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solaracontrol/mission-control/internal/history"
	"github.com/solaracontrol/mission-control/internal/model"
	"github.com/solaracontrol/mission-control/internal/telemetry"
	"github.com/solaracontrol/mission-control/pkg/logger"
)

// OrchestratorHistoryLimit is the number of prior turns loaded for a decision.
const OrchestratorHistoryLimit = 5

var citationPattern = regexp.MustCompile(`https?://\S+`)

// Decider produces orchestrator decisions.
type Decider interface {
	Decide(ctx context.Context, in model.OrchestratorInput) model.OrchestratorDecision
}

// InboundService runs an inbound visitor message through the orchestrator,
// recording history and telemetry around the decision.
type InboundService struct {
	engine           Decider
	history          history.Store
	emitter          telemetry.Emitter
	orchestratorSlug string
	logger           *logger.Logger
}

// NewInboundService creates a new inbound service. History is kept under
// orchestratorSlug.
func NewInboundService(
	engine Decider,
	store history.Store,
	emitter telemetry.Emitter,
	orchestratorSlug string,
	log *logger.Logger,
) *InboundService {
	if emitter == nil {
		emitter = telemetry.Nop{}
	}
	return &InboundService{
		engine:           engine,
		history:          store,
		emitter:          emitter,
		orchestratorSlug: orchestratorSlug,
		logger:           logger.OrNop(log).Named("inbound"),
	}
}

// Handle decides on one inbound message. It always returns a decision;
// history and telemetry failures are logged and skipped.
func (s *InboundService) Handle(ctx context.Context, in model.OrchestratorInput) model.OrchestratorDecision {
	start := time.Now()
	if in.ConversationID == "" {
		in.ConversationID = uuid.Must(uuid.NewV7()).String()
	}
	log := s.logger.WithConversation(in.ConversationID, in.VisitorID)

	s.emit(ctx, log, model.TelemetryEvent{
		Type:           model.EventTypeInbound,
		ConversationID: in.ConversationID,
		VisitorID:      in.VisitorID,
		TicketID:       in.TicketID,
	})

	if in.History == nil && in.VisitorID != "" && s.history != nil {
		turns, err := s.history.GetHistory(ctx, in.VisitorID, s.orchestratorSlug, OrchestratorHistoryLimit)
		if err != nil {
			log.Warn("failed to load history", zap.Error(err))
		}
		in.History = turns
	}

	decision := s.engine.Decide(ctx, in)
	elapsed := time.Since(start).Milliseconds()

	s.emit(ctx, log, model.TelemetryEvent{
		Type:           model.EventTypeRouterDecision,
		ConversationID: in.ConversationID,
		VisitorID:      in.VisitorID,
		TicketID:       in.TicketID,
		Category:       decision.Category,
		RiskLevel:      decision.RiskLevel,
		AgentRoutedTo:  decision.RoutedTo,
		ResponseTimeMs: &elapsed,
		Confidence:     decision.ConfidenceScore,
	})

	if in.VisitorID != "" && s.history != nil {
		s.appendTurn(ctx, log, in.VisitorID, model.TurnRoleUser, in.Message)
		s.appendTurn(ctx, log, in.VisitorID, model.TurnRoleAssistant, decision.FinalAnswer)
	}

	status := model.OutcomeStatusAnswered
	if decision.Fallback() {
		status = model.OutcomeStatusFallback
	}
	cited := citationPattern.MatchString(decision.FinalAnswer)
	total := time.Since(start).Milliseconds()

	s.emit(ctx, log, model.TelemetryEvent{
		Type:           model.EventTypeOutbound,
		ConversationID: in.ConversationID,
		VisitorID:      in.VisitorID,
		TicketID:       in.TicketID,
		Category:       decision.Category,
		RiskLevel:      decision.RiskLevel,
		AgentRoutedTo:  decision.RoutedTo,
		ResponseTimeMs: &total,
		HasCitations:   &cited,
		OutcomeStatus:  status,
	})

	log.Info("inbound message handled",
		zap.String("routed_to", decision.RoutedTo),
		zap.String("risk_level", string(decision.RiskLevel)),
		zap.String("outcome", string(decision.Outcome)),
		zap.Int64("duration_ms", total),
	)

	return decision
}

func (s *InboundService) appendTurn(ctx context.Context, log *logger.Logger, visitorID string, role model.TurnRole, content string) {
	if err := s.history.AppendTurn(ctx, visitorID, s.orchestratorSlug, role, content); err != nil {
		log.Warn("failed to append turn", zap.String("role", string(role)), zap.Error(err))
	}
}

func (s *InboundService) emit(ctx context.Context, log *logger.Logger, event model.TelemetryEvent) {
	if err := s.emitter.Emit(ctx, event); err != nil {
		log.Warn("failed to emit telemetry event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
