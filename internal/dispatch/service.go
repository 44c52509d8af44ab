package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
)

// EntityLoader loads dispatch subjects and issuers.
// Missing rows are reported as domain.ErrEntityNotFound.
type EntityLoader interface {
	Entity(ctx context.Context, entityType domain.EntityType, entityID int64) (*domain.Entity, error)
	Identity(ctx context.Context, userID int64) (*domain.Identity, error)
}

// Executor runs one job on one subject
type Executor interface {
	Execute(ctx context.Context, job *domain.JobConfiguration, subject *domain.Entity, issuer *domain.Identity, messenger Messenger) Outcome
}

// Service wires the registry, the loader and the dispatcher together for the
// trigger surfaces
type Service struct {
	registry *Registry
	loader   EntityLoader
	executor Executor
	logger   *slog.Logger
}

// NewService creates a Service
func NewService(registry *Registry, loader EntityLoader, executor Executor, logger *slog.Logger) *Service {
	return &Service{
		registry: registry,
		loader:   loader,
		executor: executor,
		logger:   logger,
	}
}

// Result is what a trigger returns: the outcomes plus operator messages
type Result struct {
	Outcomes []Outcome `json:"outcomes"`
	Messages []Message `json:"messages"`
}

// Actions returns the configured actions
func (s *Service) Actions() []*domain.JobConfiguration {
	return s.registry.All()
}

// ExecuteAction runs the named action on one entity.
// Only lookup failures are returned as errors; dispatch failures are in the Result.
func (s *Service) ExecuteAction(ctx context.Context, name string, entityType domain.EntityType, entityID, userID int64) (*Result, error) {
	job, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	subject, issuer, err := s.load(ctx, entityType, entityID, userID)
	if err != nil {
		return nil, err
	}

	collector := NewCollector()
	outcome := s.executor.Execute(ctx, job, subject, issuer, collector)

	return &Result{
		Outcomes: []Outcome{outcome},
		Messages: collector.Messages(),
	}, nil
}

// HandleEvent runs every action triggered by event on the entity, in configuration order.
// A failed action does not stop the following ones.
func (s *Service) HandleEvent(ctx context.Context, entityType domain.EntityType, entityID int64, event domain.EventKind, userID int64) (*Result, error) {
	jobs := s.registry.Matching(entityType, event)

	result := &Result{Outcomes: []Outcome{}, Messages: []Message{}}
	if len(jobs) == 0 {
		s.logger.DebugContext(ctx, "No actions triggered",
			slog.String("entity_type", string(entityType)),
			slog.String("event", string(event)),
		)
		return result, nil
	}

	subject, issuer, err := s.load(ctx, entityType, entityID, userID)
	if err != nil {
		return nil, err
	}

	collector := NewCollector()
	for _, job := range jobs {
		result.Outcomes = append(result.Outcomes, s.executor.Execute(ctx, job, subject, issuer, collector))
	}
	result.Messages = collector.Messages()

	return result, nil
}

func (s *Service) load(ctx context.Context, entityType domain.EntityType, entityID, userID int64) (*domain.Entity, *domain.Identity, error) {
	subject, err := s.loader.Entity(ctx, entityType, entityID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s %d: %w", entityType, entityID, err)
	}

	issuer, err := s.loader.Identity(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	return subject, issuer, nil
}
