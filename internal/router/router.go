// Package router selects the agent that should produce a direct reply, by
// keyword scoring first and an LLM classification call second.
package router

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/solaracontrol/mission-control/internal/llm"
	"github.com/solaracontrol/mission-control/internal/model"
	"github.com/solaracontrol/mission-control/pkg/logger"
	"github.com/solaracontrol/mission-control/pkg/metrics"
	"github.com/solaracontrol/mission-control/pkg/tracing"
)

const (
	defaultModel     = "gpt-5-nano"
	maxRoutingTokens = 50
)

// Selection methods, recorded in metrics.
const (
	MethodKeyword  = "keyword"
	MethodSingle   = "single"
	MethodLLM      = "llm"
	MethodFallback = "fallback"
)

// ActiveAgents lists the agents available for selection in a stable order.
type ActiveAgents interface {
	ListActive() []model.AgentDefinition
}

// Router picks an agent for a message.
type Router struct {
	agents ActiveAgents
	client llm.Client
	model  string
	log    *logger.Logger
}

// New creates a router. An empty model uses the default classification model.
func New(agents ActiveAgents, client llm.Client, modelName string, log *logger.Logger) *Router {
	if modelName == "" {
		modelName = defaultModel
	}
	return &Router{
		agents: agents,
		client: client,
		model:  modelName,
		log:    logger.OrNop(log).Named("router"),
	}
}

// Route returns the agent that should answer text. The boolean is false only
// when no agent is active.
func (r *Router) Route(ctx context.Context, text string) (model.AgentDefinition, bool) {
	ctx, span := tracing.Tracer("router").Start(ctx, "router.Route")
	defer span.End()

	agents := r.agents.ListActive()
	if len(agents) == 0 {
		return model.AgentDefinition{}, false
	}

	selected, method := r.route(ctx, agents, text)

	metrics.RecordRouterSelection(selected.Slug, method)
	span.SetAttributes(
		attribute.String("router.agent", selected.Slug),
		attribute.String("router.method", method),
	)
	r.log.Debug("agent selected", zap.String("agent", selected.Slug), zap.String("method", method))

	return selected, true
}

func (r *Router) route(ctx context.Context, agents []model.AgentDefinition, text string) (model.AgentDefinition, string) {
	if best, ok := bestKeywordMatch(agents, text); ok {
		return best, MethodKeyword
	}
	if len(agents) == 1 {
		return agents[0], MethodSingle
	}
	if a, ok := r.classify(ctx, agents, text); ok {
		return a, MethodLLM
	}
	return agents[0], MethodFallback
}

// bestKeywordMatch scores each agent by the summed length of its keywords
// found in text, case-insensitively. The first agent to reach the highest
// score wins; a zero score is no match.
func bestKeywordMatch(agents []model.AgentDefinition, text string) (model.AgentDefinition, bool) {
	lower := strings.ToLower(text)

	var best model.AgentDefinition
	bestScore := 0
	for _, a := range agents {
		score := 0
		for _, kw := range a.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				score += len([]rune(kw))
			}
		}
		if score > bestScore {
			bestScore = score
			best = a
		}
	}
	return best, bestScore > 0
}

func classificationPrompt(agents []model.AgentDefinition) string {
	lines := make([]string, len(agents))
	for i, a := range agents {
		desc := a.Description
		if desc == "" {
			desc = a.DisplayName()
		}
		lines[i] = fmt.Sprintf("- %q: %s", a.Slug, desc)
	}
	return "You are a router. Given a user message, respond with ONLY the slug of the best matching agent. Available agents:\n" +
		strings.Join(lines, "\n") +
		"\n\nIf unsure, respond with the slug of the most general agent. Respond with ONLY the slug, nothing else."
}

func (r *Router) classify(ctx context.Context, agents []model.AgentDefinition, text string) (model.AgentDefinition, bool) {
	resp, err := r.client.Complete(ctx, &llm.CompletionRequest{
		Model: r.model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: classificationPrompt(agents)},
			{Role: llm.RoleUser, Content: text},
		},
		MaxTokens: maxRoutingTokens,
	})
	if err != nil {
		r.log.Warn("routing completion failed", zap.Error(err))
		return model.AgentDefinition{}, false
	}

	slug := strings.TrimSpace(resp.Content)
	for _, a := range agents {
		if a.Slug == slug {
			return a, true
		}
	}
	r.log.Debug("routing completion named no active agent", zap.String("response", slug))
	return model.AgentDefinition{}, false
}
