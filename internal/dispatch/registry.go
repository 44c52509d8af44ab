package dispatch

import (
	"fmt"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
)

// Registry holds the configured actions by name
type Registry struct {
	actions []*domain.JobConfiguration
	byName  map[string]*domain.JobConfiguration
}

// NewRegistry indexes actions. Actions are expected to be defaulted and validated.
func NewRegistry(actions []domain.JobConfiguration) (*Registry, error) {
	r := &Registry{byName: make(map[string]*domain.JobConfiguration, len(actions))}

	for i := range actions {
		action := actions[i]
		if action.Name == "" {
			return nil, fmt.Errorf("%w: action %d has no name", domain.ErrInvalidConfiguration, i)
		}
		if _, exists := r.byName[action.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate action name %q", domain.ErrInvalidConfiguration, action.Name)
		}
		r.actions = append(r.actions, &action)
		r.byName[action.Name] = &action
	}

	return r, nil
}

// Get returns the action named name
func (r *Registry) Get(name string) (*domain.JobConfiguration, error) {
	action, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAction, name)
	}
	return action, nil
}

// Matching returns the actions triggered by event on entityType, in configuration order
func (r *Registry) Matching(entityType domain.EntityType, event domain.EventKind) []*domain.JobConfiguration {
	var out []*domain.JobConfiguration
	for _, action := range r.actions {
		if action.Matches(entityType, event) {
			out = append(out, action)
		}
	}
	return out
}

// All returns every action in configuration order
func (r *Registry) All() []*domain.JobConfiguration {
	out := make([]*domain.JobConfiguration, len(r.actions))
	copy(out, r.actions)
	return out
}
