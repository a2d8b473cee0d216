package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/solaracontrol/mission-control/internal/agent"
	"github.com/solaracontrol/mission-control/internal/middleware"
	"github.com/solaracontrol/mission-control/internal/model"
	"github.com/solaracontrol/mission-control/internal/service"
	"github.com/solaracontrol/mission-control/pkg/logger"
)

// ActiveAgents lists the active agents.
type ActiveAgents interface {
	ListActive() []model.AgentDefinition
}

// Replier generates a direct agent reply.
type Replier interface {
	Reply(ctx context.Context, req service.ReplyRequest) (*service.ReplyResponse, error)
}

// RouteRequest is the body of POST /agents/route.
type RouteRequest struct {
	Message string `json:"message"`
}

// AgentHandler handles agent catalog, routing and direct reply endpoints.
type AgentHandler struct {
	agents  ActiveAgents
	router  service.Router
	replier Replier
	logger  *logger.Logger
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(agents ActiveAgents, router service.Router, replier Replier, log *logger.Logger) *AgentHandler {
	return &AgentHandler{
		agents:  agents,
		router:  router,
		replier: replier,
		logger:  logger.OrNop(log),
	}
}

// List handles GET /api/v1/agents
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]model.AgentDefinition{
		"agents": h.agents.ListActive(),
	})
}

// Route handles POST /api/v1/agents/route
func (h *AgentHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, ok := h.router.Route(r.Context(), req.Message)
	if !ok {
		writeError(w, http.StatusNotFound, "no active agent")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// Reply handles POST /api/v1/agents/reply
func (h *AgentHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req service.ReplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateVisitorID(req.VisitorID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Agent != "" {
		if err := middleware.ValidateAgentSlug(req.Agent); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.replier.Reply(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, agent.ErrUnknownAgent):
		writeError(w, http.StatusNotFound, "agent not found")
	case errors.Is(err, service.ErrAgentInactive):
		writeError(w, http.StatusConflict, "agent is not active")
	case errors.Is(err, service.ErrNoActiveAgent):
		writeError(w, http.StatusServiceUnavailable, "no active agent")
	default:
		h.logger.Error("failed to reply", zap.String("visitor_id", req.VisitorID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to reply")
	}
}
