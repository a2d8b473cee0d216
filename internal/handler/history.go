package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/solaracontrol/mission-control/internal/history"
	"github.com/solaracontrol/mission-control/internal/middleware"
	"github.com/solaracontrol/mission-control/internal/model"
	"github.com/solaracontrol/mission-control/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryHandler handles conversation history endpoints.
type HistoryHandler struct {
	store  history.Store
	logger *logger.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(store history.Store, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: logger.OrNop(log),
	}
}

// Get handles GET /api/v1/visitors/{visitorID}/history/{agent}
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	visitorID := chi.URLParam(r, "visitorID")
	agentSlug := chi.URLParam(r, "agent")

	if err := middleware.ValidateVisitorID(visitorID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateAgentSlug(agentSlug); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := queryLimit(r, defaultHistoryLimit, maxHistoryLimit)

	turns, err := h.store.GetHistory(r.Context(), visitorID, agentSlug, limit)
	if err != nil {
		h.logger.Error("failed to get history", zap.String("visitor_id", visitorID), zap.String("agent", agentSlug), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}
	if turns == nil {
		turns = []model.ConversationTurn{}
	}

	writeJSON(w, http.StatusOK, &model.HistoryResponse{
		VisitorID: visitorID,
		Agent:     agentSlug,
		Turns:     turns,
	})
}
