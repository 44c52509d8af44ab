package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Connect(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockSession) Disconnect() error                 { return m.Called().Error(0) }
func (m *mockSession) CurrentProtocol() string           { return m.Called().String(0) }
func (m *mockSession) Begin() error                      { return m.Called().Error(0) }
func (m *mockSession) Commit() error                     { return m.Called().Error(0) }
func (m *mockSession) Rollback() error                   { return m.Called().Error(0) }

func (m *mockSession) Publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	return m.Called(ctx, queue, msg).Error(0)
}

func (m *mockSession) Subscribe(ctx context.Context, queue string) (string, error) {
	args := m.Called(ctx, queue)
	return args.String(0), args.Error(1)
}

func (m *mockSession) Unsubscribe(subscription string) error {
	return m.Called(subscription).Error(0)
}

func TestNewPublishing(t *testing.T) {
	now := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	event := &domain.NotificationEvent{
		Context: domain.ActivityStreamsContext,
		Type:    "Activity",
		Summary: "Generate Derivative",
		Object:  domain.Object{ID: "urn:uuid:abc"},
	}

	h := domain.NewMessageHeaders()
	h.Set("Authorization", "Bearer abc")
	h.Set("persistent", "true")

	msg, err := NewPublishing(event, h, now)
	require.NoError(t, err)

	assert.Equal(t, amqp.Table{"Authorization": "Bearer abc", "persistent": "true"}, msg.Headers)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "Activity", msg.Type)
	assert.Equal(t, now, msg.Timestamp)
	assert.NotEmpty(t, msg.MessageId)
	require.NoError(t, msg.Headers.Validate())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, domain.ActivityStreamsContext, decoded["@context"])
	assert.Equal(t, "Generate Derivative", decoded["summary"])
}

func TestNewPublishing_Transient(t *testing.T) {
	h := domain.NewMessageHeaders()
	h.Set("persistent", "false")

	msg, err := NewPublishing(&domain.NotificationEvent{}, h, time.Now())
	require.NoError(t, err)
	assert.Equal(t, amqp.Transient, msg.DeliveryMode)
}

func TestAMQPBroker_Send(t *testing.T) {
	ctx := context.Background()
	session := new(mockSession)
	session.On("Publish", ctx, "extract-text", mock.MatchedBy(func(msg amqp.Publishing) bool {
		return msg.DeliveryMode == amqp.Persistent && msg.Headers["Authorization"] == "Bearer abc"
	})).Return(nil)
	session.On("Subscribe", ctx, "probe").Return("tag", nil)

	h := domain.NewMessageHeaders()
	h.Set("Authorization", "Bearer abc")
	h.Set("persistent", "true")

	broker := NewAMQPBroker(session)
	require.NoError(t, broker.Send(ctx, "extract-text", &domain.NotificationEvent{Type: "Activity"}, h))

	var prober Prober = broker
	tag, err := prober.Subscribe(ctx, "probe")
	require.NoError(t, err)
	assert.Equal(t, "tag", tag)
	session.AssertExpectations(t)
}
