package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/solaracontrol/mission-control/internal/agent"
	"github.com/solaracontrol/mission-control/internal/history"
	"github.com/solaracontrol/mission-control/internal/llm"
	"github.com/solaracontrol/mission-control/internal/model"
	"github.com/solaracontrol/mission-control/internal/orchestrator"
	"github.com/solaracontrol/mission-control/pkg/logger"
)

const (
	// ReplyHistoryLimit is the number of prior turns sent with a direct reply.
	ReplyHistoryLimit = 20

	replyMaxTokens = 2048

	// EmptyReplyAnswer is returned when the model produced no text.
	EmptyReplyAnswer = "Desculpe, não consegui gerar uma resposta no momento."
)

var (
	// ErrNoActiveAgent is returned when no agent can take the message.
	ErrNoActiveAgent = errors.New("no active agent")

	// ErrAgentInactive is returned when the requested agent is disabled.
	ErrAgentInactive = errors.New("agent is not active")
)

// Router selects the agent for a message.
type Router interface {
	Route(ctx context.Context, text string) (model.AgentDefinition, bool)
}

// AgentLookup resolves an agent by slug.
type AgentLookup interface {
	Get(slug string) (model.AgentDefinition, error)
}

// ReplyRequest is a direct message from a visitor to an agent.
type ReplyRequest struct {
	VisitorID   string `json:"visitor_id"`
	VisitorName string `json:"visitor_name,omitempty"`
	PersonaType string `json:"persona_type,omitempty"`
	Message     string `json:"message"`

	// Agent pins the reply to a slug instead of routing.
	Agent string `json:"agent,omitempty"`
}

// ReplyResponse is the agent's answer.
type ReplyResponse struct {
	Agent model.AgentDefinition `json:"agent"`
	Reply string                `json:"reply"`
}

// ReplyService answers a visitor from the conversational loop of a single agent.
type ReplyService struct {
	router       Router
	agents       AgentLookup
	history      history.Store
	llmClient    llm.Client
	defaultModel string
	logger       *logger.Logger
}

// NewReplyService creates a new reply service.
func NewReplyService(
	router Router,
	agents AgentLookup,
	store history.Store,
	llmClient llm.Client,
	defaultModel string,
	log *logger.Logger,
) *ReplyService {
	return &ReplyService{
		router:       router,
		agents:       agents,
		history:      store,
		llmClient:    llmClient,
		defaultModel: defaultModel,
		logger:       logger.OrNop(log).Named("reply"),
	}
}

// Reply routes the message (unless an agent is pinned) and generates the
// agent's answer. Provider failures become an apology text, not an error.
func (s *ReplyService) Reply(ctx context.Context, req ReplyRequest) (*ReplyResponse, error) {
	a, err := s.selectAgent(ctx, req)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("visitor_id", req.VisitorID), zap.String("agent", a.Slug))

	turns, err := s.history.GetHistory(ctx, req.VisitorID, a.Slug, ReplyHistoryLimit)
	if err != nil {
		log.Warn("failed to load history", zap.Error(err))
		turns = nil
	}

	if err := s.history.AppendTurn(ctx, req.VisitorID, a.Slug, model.TurnRoleUser, req.Message); err != nil {
		log.Warn("failed to append user turn", zap.Error(err))
	}

	modelName := a.Model
	if modelName == "" {
		modelName = s.defaultModel
	}

	resp, err := s.llmClient.Complete(ctx, &llm.CompletionRequest{
		Model:     modelName,
		Messages:  replyMessages(a, req, turns),
		MaxTokens: replyMaxTokens,
	})
	if err != nil {
		log.Warn("agent completion failed", zap.Error(err))
		return &ReplyResponse{Agent: a, Reply: orchestrator.ProviderFailureAnswer}, nil
	}

	reply := resp.Content
	if reply == "" {
		reply = EmptyReplyAnswer
	}

	if err := s.history.AppendTurn(ctx, req.VisitorID, a.Slug, model.TurnRoleAssistant, reply); err != nil {
		log.Warn("failed to append assistant turn", zap.Error(err))
	}

	return &ReplyResponse{Agent: a, Reply: reply}, nil
}

func (s *ReplyService) selectAgent(ctx context.Context, req ReplyRequest) (model.AgentDefinition, error) {
	if req.Agent != "" {
		a, err := s.agents.Get(req.Agent)
		if err != nil {
			return model.AgentDefinition{}, err
		}
		if !a.Active {
			return model.AgentDefinition{}, fmt.Errorf("%w: %s", ErrAgentInactive, a.Slug)
		}
		return a, nil
	}

	a, ok := s.router.Route(ctx, req.Message)
	if !ok {
		return model.AgentDefinition{}, ErrNoActiveAgent
	}
	return a, nil
}

func replyMessages(a model.AgentDefinition, req ReplyRequest, turns []model.ConversationTurn) []llm.ChatMessage {
	msgs := make([]llm.ChatMessage, 0, len(turns)+3)

	system := a.SystemPrompt
	if system == "" {
		system = a.Description
	}
	msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: system})

	if req.VisitorName != "" {
		persona := req.PersonaType
		if persona == "" {
			persona = "não definido"
		}
		msgs = append(msgs, llm.ChatMessage{
			Role:    llm.RoleSystem,
			Content: fmt.Sprintf("O nome do visitante é: %s. Tipo: %s.", req.VisitorName, persona),
		})
	}

	for _, t := range turns {
		if t.Role.Valid() {
			msgs = append(msgs, llm.ChatMessage{Role: string(t.Role), Content: t.Content})
		}
	}

	return append(msgs, llm.ChatMessage{Role: llm.RoleUser, Content: req.Message})
}

var _ AgentLookup = (*agent.Registry)(nil)
