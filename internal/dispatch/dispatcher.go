package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/headers"
)

// BrokerUnavailableMessage is shown to the operator when the broker cannot be reached
const BrokerUnavailableMessage = "Unable to connect to JMS Broker, items might not be synchronized to external services."

// Broker is the transactional session the dispatcher publishes through.
// It is shared for the process lifetime and is not safe for concurrent use.
type Broker interface {
	// Connect makes one connection attempt; the dispatcher does not retry
	Connect(ctx context.Context) error
	Disconnect() error
	// CurrentProtocol returns the negotiated protocol, or "" when the session is not usable
	CurrentProtocol() string
	Begin() error
	Send(ctx context.Context, queue string, event *domain.NotificationEvent, headers *domain.MessageHeaders) error
	Commit() error
	Rollback() error
}

// Prober subscribes to and unsubscribes from a queue to check broker connectivity
type Prober interface {
	Subscribe(ctx context.Context, queue string) (string, error)
	Unsubscribe(subscription string) error
}

// Resolver builds the request for a job on a subject
type Resolver interface {
	Resolve(ctx context.Context, subject *domain.Entity, job *domain.JobConfiguration) (*domain.DerivativeJobRequest, error)
}

// Encoder builds the notification for a resolved request
type Encoder interface {
	Encode(ctx context.Context, subject *domain.Entity, issuer *domain.Identity, req *domain.DerivativeJobRequest) (*domain.NotificationEvent, error)
}

// HeaderBuilder runs the header augmentation pipeline
type HeaderBuilder interface {
	Build(ctx context.Context, hc *headers.Context) (*domain.MessageHeaders, error)
}

// OutcomeKind classifies how a dispatch ended
type OutcomeKind string

// Outcome kinds
const (
	OutcomePublished          OutcomeKind = "published"
	OutcomeSkipped            OutcomeKind = "skipped"
	OutcomeConfigurationError OutcomeKind = "configuration_error"
	OutcomeTransportError     OutcomeKind = "transport_error"
	OutcomeFailed             OutcomeKind = "failed"
)

// Outcome is the result of one Execute call
type Outcome struct {
	Action     string            `json:"action"`
	Kind       OutcomeKind       `json:"kind"`
	Queue      string            `json:"queue,omitempty"`
	EntityType domain.EntityType `json:"entity_type"`
	EntityID   int64             `json:"entity_id"`
	Error      string            `json:"error,omitempty"`
}

// Dispatcher owns the broker session and runs resolve, encode, augment and publish
type Dispatcher struct {
	mu       sync.Mutex
	broker   Broker
	resolver Resolver
	encoder  Encoder
	headers  HeaderBuilder
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(broker Broker, resolver Resolver, encoder Encoder, headerBuilder HeaderBuilder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		broker:   broker,
		resolver: resolver,
		encoder:  encoder,
		headers:  headerBuilder,
		logger:   logger,
	}
}

// Execute dispatches job for subject on behalf of issuer. It never fails the caller:
// every failure is logged, reported to messenger and returned as an Outcome.
func (d *Dispatcher) Execute(ctx context.Context, job *domain.JobConfiguration, subject *domain.Entity, issuer *domain.Identity, messenger Messenger) Outcome {
	if messenger == nil {
		messenger = discardMessenger{}
	}

	outcome := Outcome{
		Action:     job.Name,
		Queue:      job.QueueName,
		EntityType: subject.Type,
		EntityID:   subject.ID,
	}

	err := d.execute(ctx, job, subject, issuer)
	outcome.Kind = d.report(ctx, outcome, err, messenger)
	if err != nil {
		outcome.Error = err.Error()
	}

	return outcome
}

func (d *Dispatcher) execute(ctx context.Context, job *domain.JobConfiguration, subject *domain.Entity, issuer *domain.Identity) error {
	req, err := d.resolver.Resolve(ctx, subject, job)
	if err != nil {
		return err
	}

	event, err := d.encoder.Encode(ctx, subject, issuer, req)
	if err != nil {
		return err
	}

	var attachment map[string]string
	if event.Attachment != nil {
		attachment = event.Attachment.Content
	}

	msgHeaders, err := d.headers.Build(ctx, &headers.Context{
		Subject:    subject,
		Issuer:     issuer,
		Attachment: attachment,
		Job:        job,
	})
	if err != nil {
		return err
	}

	return d.Publish(ctx, event, msgHeaders, req.QueueName)
}

// Publish sends event to queue inside a begin/send/commit transaction.
// A session without an active protocol is reconnected first. Failures are
// returned as *domain.TransportError and are never retried.
func (d *Dispatcher) Publish(ctx context.Context, event *domain.NotificationEvent, msgHeaders *domain.MessageHeaders, queue string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureConnected(ctx); err != nil {
		return err
	}

	if err := d.broker.Begin(); err != nil {
		return domain.NewTransportError("begin", err)
	}

	if err := d.broker.Send(ctx, queue, event, msgHeaders); err != nil {
		if rbErr := d.broker.Rollback(); rbErr != nil {
			d.logger.WarnContext(ctx, "Failed to roll back broker transaction",
				slog.String("queue", queue),
				slog.Any("error", rbErr),
			)
		}
		return domain.NewTransportError("send", err)
	}

	if err := d.broker.Commit(); err != nil {
		return domain.NewTransportError("commit", err)
	}

	d.logger.DebugContext(ctx, "Message published",
		slog.String("queue", queue),
		slog.String("type", event.Type),
		slog.String("object", event.Object.ID),
	)

	return nil
}

func (d *Dispatcher) ensureConnected(ctx context.Context) error {
	if d.broker.CurrentProtocol() != "" {
		return nil
	}

	d.logger.WarnContext(ctx, "Broker session has no active protocol, reconnecting")

	if err := d.broker.Disconnect(); err != nil {
		d.logger.DebugContext(ctx, "Disconnect before reconnect failed", slog.Any("error", err))
	}
	if err := d.broker.Connect(ctx); err != nil {
		return domain.NewTransportError("connect", err)
	}

	return nil
}

// report logs err at the severity its class calls for and tells the operator
func (d *Dispatcher) report(ctx context.Context, outcome Outcome, err error, messenger Messenger) OutcomeKind {
	attrs := []any{
		slog.String("action", outcome.Action),
		slog.String("entity_type", string(outcome.EntityType)),
		slog.Int64("entity_id", outcome.EntityID),
	}

	if err == nil {
		d.logger.InfoContext(ctx, "Event dispatched", append(attrs, slog.String("queue", outcome.Queue))...)
		return OutcomePublished
	}

	attrs = append(attrs, slog.Any("error", err))

	var transportErr *domain.TransportError
	var cfgErr *domain.ConfigurationError

	switch {
	case domain.IsLoop(err):
		d.logger.InfoContext(ctx, "Derivative skipped", attrs...)
		return OutcomeSkipped

	case errors.As(err, &transportErr):
		d.logger.ErrorContext(ctx, "Failed to publish event", attrs...)
		if transportErr.Op == "connect" {
			messenger.AddWarning(BrokerUnavailableMessage)
		} else {
			messenger.AddWarning(fmt.Sprintf("Error publishing message: %v", transportErr.Err))
		}
		return OutcomeTransportError

	case errors.Is(err, domain.ErrHeaderBuild):
		d.logger.ErrorContext(ctx, "Failed to build message headers", attrs...)
		messenger.AddError(err.Error())
		return OutcomeConfigurationError

	case errors.As(err, &cfgErr):
		d.logger.ErrorContext(ctx, "Failed to generate event", attrs...)
		messenger.AddError(fmt.Sprintf("Error generating event: %v", err))
		return OutcomeConfigurationError

	default:
		d.logger.ErrorContext(ctx, "Failed to generate event", attrs...)
		messenger.AddError(fmt.Sprintf("Error generating event: %v", err))
		return OutcomeFailed
	}
}

// SelfTest subscribes to and unsubscribes from queue, reconnecting first if needed
func (d *Dispatcher) SelfTest(ctx context.Context, queue string) error {
	prober, ok := d.broker.(Prober)
	if !ok {
		return fmt.Errorf("broker does not support subscriptions")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureConnected(ctx); err != nil {
		return err
	}

	subscription, err := prober.Subscribe(ctx, queue)
	if err != nil {
		return domain.NewTransportError("subscribe", err)
	}
	if err := prober.Unsubscribe(subscription); err != nil {
		return domain.NewTransportError("unsubscribe", err)
	}

	return nil
}
