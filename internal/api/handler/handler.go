package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
)

// DispatchService is the trigger surface of the dispatch package
type DispatchService interface {
	Actions() []*domain.JobConfiguration
	ExecuteAction(ctx context.Context, name string, entityType domain.EntityType, entityID, userID int64) (*dispatch.Result, error)
	HandleEvent(ctx context.Context, entityType domain.EntityType, entityID int64, event domain.EventKind, userID int64) (*dispatch.Result, error)
}

// BrokerProbe runs the broker subscribe/unsubscribe self-test
type BrokerProbe interface {
	SelfTest(ctx context.Context, queue string) error
}

// DatabaseHealth reports whether the content store is reachable
type DatabaseHealth interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger        *slog.Logger
	Service       DispatchService
	Broker        BrokerProbe
	Database      DatabaseHealth
	SelfTestQueue string
	ServiceName   string
}

// DispatchHandler handles event and action HTTP requests
type DispatchHandler struct {
	logger  *slog.Logger
	service DispatchService
}

// NewDispatchHandler creates a new DispatchHandler instance
func NewDispatchHandler(deps *Dependencies) *DispatchHandler {
	return &DispatchHandler{
		logger:  deps.Logger,
		service: deps.Service,
	}
}

// HealthHandler reports service and dependency health
type HealthHandler struct {
	logger        *slog.Logger
	broker        BrokerProbe
	database      DatabaseHealth
	selfTestQueue string
	serviceName   string
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{
		logger:        deps.Logger,
		broker:        deps.Broker,
		database:      deps.Database,
		selfTestQueue: deps.SelfTestQueue,
		serviceName:   deps.ServiceName,
	}
}
