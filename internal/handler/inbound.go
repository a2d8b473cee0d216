package handler

import (
	"context"
	"net/http"

	"github.com/solaracontrol/mission-control/internal/middleware"
	"github.com/solaracontrol/mission-control/internal/model"
)

// InboundProcessor handles an inbound visitor message.
type InboundProcessor interface {
	Handle(ctx context.Context, in model.OrchestratorInput) model.OrchestratorDecision
}

// InboundHandler handles the orchestrator endpoint.
type InboundHandler struct {
	service InboundProcessor
}

// NewInboundHandler creates a new inbound handler.
func NewInboundHandler(svc InboundProcessor) *InboundHandler {
	return &InboundHandler{service: svc}
}

// Handle handles POST /api/v1/inbound
func (h *InboundHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var in model.OrchestratorInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(in.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateConversationID(in.ConversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.VisitorID != "" {
		if err := middleware.ValidateVisitorID(in.VisitorID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	for _, t := range in.History {
		if !t.Role.Valid() {
			writeError(w, http.StatusBadRequest, "history turns must have role user or assistant")
			return
		}
	}

	writeJSON(w, http.StatusOK, h.service.Handle(r.Context(), in))
}
