package model

// RiskLevel is the coarse urgency classification attached to a decision.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ParseRiskLevel returns the risk level named by s.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch r := RiskLevel(s); r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return r, true
	default:
		return "", false
	}
}

const (
	// RouteNone means the orchestrator handled the message itself.
	RouteNone = "none"

	// DefaultCategory is used when the model omits a category.
	DefaultCategory = "GERAL"
)

// Outcome labels how a decision was produced.
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeMalformed       Outcome = "malformed"
	OutcomeProviderFailure Outcome = "provider_failure"
)

// OrchestratorInput is an inbound visitor message plus its ticket context.
type OrchestratorInput struct {
	Message        string             `json:"message"`
	ConversationID string             `json:"conversation_id"`
	VisitorID      string             `json:"visitor_id,omitempty"`
	TicketID       string             `json:"ticket_id,omitempty"`
	TicketQueue    string             `json:"ticket_queue,omitempty"`
	TicketSeverity string             `json:"ticket_severity,omitempty"`
	VisitorName    string             `json:"visitor_name,omitempty"`
	History        []ConversationTurn `json:"history,omitempty"`
}

// OrchestratorDecision is the structured answer of the decision engine.
type OrchestratorDecision struct {
	FinalAnswer     string    `json:"final_answer"`
	RoutedTo        string    `json:"routed_to"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Category        string    `json:"category"`
	ConfidenceScore *float64  `json:"confidence_score"`

	Outcome Outcome `json:"-"`
}

// Fallback reports whether the decision is a fallback rather than a model answer.
func (d OrchestratorDecision) Fallback() bool {
	return d.Outcome != OutcomeOK
}
