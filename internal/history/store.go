// Package history stores the append-only per-(visitor, agent) conversation log.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/solaracontrol/mission-control/internal/model"
)

// ErrInvalidTurn is returned when a turn has a role other than user or assistant.
var ErrInvalidTurn = errors.New("invalid conversation turn")

// Store is the conversation history of visitors with agents.
type Store interface {
	// GetHistory returns the most recent limit turns, oldest first.
	GetHistory(ctx context.Context, visitorID, agentSlug string, limit int) ([]model.ConversationTurn, error)

	// AppendTurn appends one turn to the (visitor, agent) log.
	AppendTurn(ctx context.Context, visitorID, agentSlug string, role model.TurnRole, content string) error
}

func validateTurn(visitorID, agentSlug string, role model.TurnRole) error {
	if visitorID == "" || agentSlug == "" {
		return fmt.Errorf("%w: visitor and agent are required", ErrInvalidTurn)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: role %q", ErrInvalidTurn, role)
	}
	return nil
}
