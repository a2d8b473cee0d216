package model

import "fmt"

// Role is the closed set of responder personas an agent can play.
type Role string

const (
	RoleOrchestrator   Role = "orchestrator"
	RolePVSupport      Role = "pv_support"
	RoleBESSSpecialist Role = "bess_specialist"
	RoleGeneral        Role = "general"
)

// ParseRole validates a role read from configuration.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOrchestrator, RolePVSupport, RoleBESSSpecialist, RoleGeneral:
		return r, nil
	default:
		return "", fmt.Errorf("unknown agent role %q", s)
	}
}

// IsSpecialist reports whether the role can be a routing target of the orchestrator.
func (r Role) IsSpecialist() bool {
	switch r {
	case RoleOrchestrator:
		return false
	case RolePVSupport, RoleBESSSpecialist, RoleGeneral:
		return true
	default:
		return false
	}
}

// AgentDefinition describes a responder persona addressable by slug.
type AgentDefinition struct {
	Slug         string   `json:"slug" yaml:"slug"`
	Name         string   `json:"name" yaml:"name"`
	Role         Role     `json:"role" yaml:"role"`
	Description  string   `json:"description" yaml:"description"`
	Active       bool     `json:"active" yaml:"active"`
	Keywords     []string `json:"keywords,omitempty" yaml:"keywords"`
	SystemPrompt string   `json:"-" yaml:"system_prompt"`
	Model        string   `json:"model,omitempty" yaml:"model"`
}

// DisplayName returns the agent name, falling back to its slug.
func (a AgentDefinition) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Slug
}
