// Package agent holds the catalog of responder agents addressable by slug.
package agent

import (
	"errors"
	"fmt"

	"github.com/solaracontrol/mission-control/internal/model"
)

var (
	// ErrUnknownAgent is returned when a slug names no agent in the catalog.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrInvalidCatalog is returned when a catalog fails validation.
	ErrInvalidCatalog = errors.New("invalid agent catalog")
)

// Registry is a read-only, ordered catalog of agents. Iteration order is the
// catalog order and is stable for the process lifetime.
type Registry struct {
	agents []model.AgentDefinition
	bySlug map[string]int
}

// NewRegistry validates agents and builds a registry preserving their order.
func NewRegistry(agents []model.AgentDefinition) (*Registry, error) {
	r := &Registry{
		agents: make([]model.AgentDefinition, 0, len(agents)),
		bySlug: make(map[string]int, len(agents)),
	}
	for i, a := range agents {
		if a.Slug == "" {
			return nil, fmt.Errorf("%w: agent %d has no slug", ErrInvalidCatalog, i)
		}
		if a.Slug == model.RouteNone {
			return nil, fmt.Errorf("%w: slug %q is reserved", ErrInvalidCatalog, a.Slug)
		}
		if _, dup := r.bySlug[a.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate slug %q", ErrInvalidCatalog, a.Slug)
		}
		if _, err := model.ParseRole(string(a.Role)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, a.Slug, err)
		}
		a.Keywords = append([]string(nil), a.Keywords...)
		r.bySlug[a.Slug] = len(r.agents)
		r.agents = append(r.agents, a)
	}
	return r, nil
}

// ListActive returns the active agents in catalog order.
func (r *Registry) ListActive() []model.AgentDefinition {
	out := make([]model.AgentDefinition, 0, len(r.agents))
	for _, a := range r.agents {
		if a.Active {
			out = append(out, a)
		}
	}
	return out
}

// ListSpecialists returns the active agents that can be named as a routing target.
func (r *Registry) ListSpecialists() []model.AgentDefinition {
	out := make([]model.AgentDefinition, 0, len(r.agents))
	for _, a := range r.agents {
		if a.Active && a.Role.IsSpecialist() {
			out = append(out, a)
		}
	}
	return out
}

// Get returns the agent with the given slug, active or not.
func (r *Registry) Get(slug string) (model.AgentDefinition, error) {
	i, ok := r.bySlug[slug]
	if !ok {
		return model.AgentDefinition{}, fmt.Errorf("%w: %q", ErrUnknownAgent, slug)
	}
	return r.agents[i], nil
}

// IsActiveSpecialist reports whether slug names an active, non-orchestrator agent.
func (r *Registry) IsActiveSpecialist(slug string) bool {
	i, ok := r.bySlug[slug]
	if !ok {
		return false
	}
	a := r.agents[i]
	return a.Active && a.Role.IsSpecialist()
}

// Orchestrator returns the first active orchestrator agent.
func (r *Registry) Orchestrator() (model.AgentDefinition, bool) {
	for _, a := range r.agents {
		if a.Active && a.Role == model.RoleOrchestrator {
			return a, true
		}
	}
	return model.AgentDefinition{}, false
}
