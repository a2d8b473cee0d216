package model

import (
	"time"
)

// EventType represents a lifecycle step of an inbound message.
type EventType string

const (
	EventTypeInbound        EventType = "inbound"
	EventTypeRouterDecision EventType = "router_decision"
	EventTypeOutbound       EventType = "outbound"
)

// Outbound outcome statuses.
const (
	OutcomeStatusAnswered = "answered"
	OutcomeStatusFallback = "fallback"
)

// TelemetryEvent is a write-once record of one pipeline step.
type TelemetryEvent struct {
	ID             string    `json:"id"`
	Type           EventType `json:"event_type"`
	ConversationID string    `json:"conversation_id"`
	VisitorID      string    `json:"visitor_id,omitempty"`
	TicketID       string    `json:"ticket_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
	Category       string    `json:"category,omitempty"`
	RiskLevel      RiskLevel `json:"risk_level,omitempty"`
	AgentRoutedTo  string    `json:"agent_routed_to,omitempty"`
	ResponseTimeMs *int64    `json:"response_time_ms,omitempty"`
	Confidence     *float64  `json:"confidence_score,omitempty"`
	HasCitations   *bool     `json:"has_citations,omitempty"`
	OutcomeStatus  string    `json:"outcome_status,omitempty"`
}
