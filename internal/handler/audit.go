package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solaracontrol/mission-control/internal/audit"
	"github.com/solaracontrol/mission-control/pkg/logger"
)

// AuditHandler runs the institutional policy audit.
type AuditHandler struct {
	decide audit.DecideFunc
	logger *logger.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(decide audit.DecideFunc, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		decide: decide,
		logger: logger.OrNop(log),
	}
}

// Run handles POST /api/v1/audit/institutional?mode=
func (h *AuditHandler) Run(w http.ResponseWriter, r *http.Request) {
	mode, err := audit.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := audit.Run(r.Context(), mode, audit.Deps{
		Decide:         h.decide,
		ConversationID: uuid.NewString(),
		Log:            h.logger,
	})
	if err != nil {
		if errors.Is(err, audit.ErrUnknownMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("audit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "audit failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
