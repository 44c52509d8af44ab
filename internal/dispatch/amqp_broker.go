package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSession is the transactional RabbitMQ session, see shared/rabbitmq.Client
type AMQPSession interface {
	Connect(ctx context.Context) error
	Disconnect() error
	CurrentProtocol() string
	Begin() error
	Publish(ctx context.Context, queue string, msg amqp.Publishing) error
	Commit() error
	Rollback() error
	Subscribe(ctx context.Context, queue string) (string, error)
	Unsubscribe(subscription string) error
}

// AMQPBroker adapts an AMQP session to Broker and Prober
type AMQPBroker struct {
	AMQPSession
	now func() time.Time
}

// NewAMQPBroker creates an AMQPBroker
func NewAMQPBroker(session AMQPSession) *AMQPBroker {
	return &AMQPBroker{AMQPSession: session, now: time.Now}
}

// Send publishes event as JSON to queue
func (b *AMQPBroker) Send(ctx context.Context, queue string, event *domain.NotificationEvent, msgHeaders *domain.MessageHeaders) error {
	msg, err := NewPublishing(event, msgHeaders, b.now())
	if err != nil {
		return err
	}
	return b.Publish(ctx, queue, msg)
}

// NewPublishing builds the AMQP message for event. Headers are copied verbatim;
// persistent=true selects persistent delivery.
func NewPublishing(event *domain.NotificationEvent, msgHeaders *domain.MessageHeaders, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode event: %w", err)
	}

	table := amqp.Table{}
	deliveryMode := amqp.Transient
	if msgHeaders != nil {
		for _, h := range msgHeaders.All() {
			table[h.Key] = h.Value
		}
		if v, _ := msgHeaders.Get(domain.HeaderPersistent); v == "true" {
			deliveryMode = amqp.Persistent
		}
	}

	return amqp.Publishing{
		Headers:      table,
		ContentType:  "application/json",
		DeliveryMode: deliveryMode,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Type:         event.Type,
		Body:         body,
	}, nil
}
