// Package model defines the value types shared by the mission control core.
package model

import (
	"time"
)

// TurnRole represents the author of a conversation turn.
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
	TurnRoleSystem    TurnRole = "system"
)

// Valid reports whether the role may be stored in a conversation history.
func (r TurnRole) Valid() bool {
	return r == TurnRoleUser || r == TurnRoleAssistant
}

// ConversationTurn is one role-tagged message in a per-(visitor, agent) dialogue.
type ConversationTurn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`

	// Populated by history stores on read.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// HistoryResponse is the response for listing a conversation history.
type HistoryResponse struct {
	VisitorID string             `json:"visitor_id"`
	Agent     string             `json:"agent"`
	Turns     []ConversationTurn `json:"turns"`
}
