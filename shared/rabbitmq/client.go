package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected is returned when an operation needs an open channel
var ErrNotConnected = errors.New("not connected to RabbitMQ")

// Config holds RabbitMQ connection configuration
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	VHost             string
	QueueDurable      bool
	RetryAttempts     int
	RetryInterval     time.Duration
	Heartbeat         time.Duration
	ConnectionTimeout time.Duration
}

// URL returns the AMQP connection URL
func (c *Config) URL() string {
	vhost := c.VHost
	if vhost == "" {
		vhost = "/"
	}
	return amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Password,
		Vhost:    vhost,
	}.String()
}

// Client is a transactional RabbitMQ session: one connection and one
// publishing channel in tx mode. It is not safe for concurrent use.
type Client struct {
	config   *Config
	conn     *amqp.Connection
	channel  *amqp.Channel
	logger   *slog.Logger
	txMode   bool
	declared map[string]bool

	mu        sync.Mutex
	consumers map[string]*amqp.Channel
}

// NewClient creates a client. No connection is made until Connect.
func NewClient(config *Config, logger *slog.Logger) *Client {
	return &Client{
		config:    config,
		logger:    logger,
		declared:  make(map[string]bool),
		consumers: make(map[string]*amqp.Channel),
	}
}

// Connect makes a single attempt to establish the connection and publishing
// channel. It is what a dispatch-time reconnect uses.
func (c *Client) Connect(ctx context.Context) error {
	return c.connect(ctx, 1)
}

// ConnectWithRetry establishes the connection with the configured retry
// attempts and interval. Use it at startup only.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return c.connect(ctx, attempts)
}

func (c *Client) connect(ctx context.Context, attempts int) error {
	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		c.conn, err = amqp.DialConfig(c.config.URL(), amqpConfig)
		if err == nil {
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryInterval):
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		c.conn = nil
		return fmt.Errorf("failed to create channel: %w", err)
	}

	c.txMode = false
	c.declared = make(map[string]bool)

	c.logger.Info("Successfully connected to RabbitMQ",
		slog.String("protocol", c.CurrentProtocol()),
	)
	return nil
}

// Disconnect closes the publishing channel, every probe channel and the connection
func (c *Client) Disconnect() error {
	var errs []error

	c.mu.Lock()
	for tag, ch := range c.consumers {
		if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		delete(c.consumers, tag)
	}
	c.mu.Unlock()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
		c.channel = nil
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
		c.conn = nil
	}

	c.txMode = false
	return errors.Join(errs...)
}

// Close disconnects and logs the result
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	if err := c.Disconnect(); err != nil {
		c.logger.Error("Failed to close RabbitMQ connection",
			slog.Any("error", err),
		)
		return err
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

// CurrentProtocol returns the negotiated protocol, e.g. "AMQP 0-9", or "" when
// the connection or the publishing channel is gone
func (c *Client) CurrentProtocol() string {
	if c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed() {
		return ""
	}
	return fmt.Sprintf("AMQP %d-%d", c.conn.Major, c.conn.Minor)
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	return c.CurrentProtocol() != ""
}

// Begin puts the publishing channel in transactional mode. Once selected,
// every commit or rollback starts the next transaction.
func (c *Client) Begin() error {
	if c.channel == nil {
		return ErrNotConnected
	}
	if c.txMode {
		return nil
	}
	if err := c.channel.Tx(); err != nil {
		return fmt.Errorf("failed to select transaction mode: %w", err)
	}
	c.txMode = true
	return nil
}

// Publish sends msg to queue through the default exchange, declaring the queue on first use
func (c *Client) Publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	if c.channel == nil {
		return ErrNotConnected
	}

	if !c.declared[queue] {
		_, err := c.channel.QueueDeclare(
			queue,                 // name
			c.config.QueueDurable, // durable
			false,                 // auto-delete
			false,                 // exclusive
			false,                 // no-wait
			nil,                   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		c.declared[queue] = true
	}

	err := c.channel.PublishWithContext(
		ctx,
		"",    // default exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("Message published to RabbitMQ",
		slog.String("queue", queue),
		slog.Int("body_size", len(msg.Body)),
	)
	return nil
}

// Commit commits the current transaction
func (c *Client) Commit() error {
	if c.channel == nil || !c.txMode {
		return ErrNotConnected
	}
	if err := c.channel.TxCommit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback abandons the current transaction
func (c *Client) Rollback() error {
	if c.channel == nil || !c.txMode {
		return ErrNotConnected
	}
	if err := c.channel.TxRollback(); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// Subscribe starts a consumer on queue over its own channel and returns its tag
func (c *Client) Subscribe(ctx context.Context, queue string) (string, error) {
	if c.conn == nil || c.conn.IsClosed() {
		return "", ErrNotConnected
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return "", fmt.Errorf("failed to create channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		false, // durable
		true,  // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return "", fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	tag := "dispatch-probe-" + uuid.NewString()
	_, err = ch.ConsumeWithContext(
		ctx,
		queue, // queue
		tag,   // consumer tag
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return "", fmt.Errorf("failed to consume from %s: %w", queue, err)
	}

	c.mu.Lock()
	c.consumers[tag] = ch
	c.mu.Unlock()

	c.logger.Debug("Subscribed to RabbitMQ queue",
		slog.String("queue", queue),
		slog.String("consumer_tag", tag),
	)
	return tag, nil
}

// Unsubscribe cancels the consumer and closes its channel
func (c *Client) Unsubscribe(tag string) error {
	c.mu.Lock()
	ch, ok := c.consumers[tag]
	delete(c.consumers, tag)
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown subscription %q", tag)
	}

	if err := ch.Cancel(tag, false); err != nil {
		ch.Close()
		return fmt.Errorf("failed to cancel consumer: %w", err)
	}
	return ch.Close()
}
