package amqp

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
)

// Client owns one broker connection and its declared topology. Channels are
// never shared: each consumer loop and each worker task opens its own via
// Channel() or NewPublisher().
type Client struct {
	cfg      Config
	appID    string
	topology Topology
	logger   logging.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	closing bool
}

// NewClient creates a broker client. Connect must be called before use.
func NewClient(cfg Config, appID string, topology Topology, logger logging.Logger) *Client {
	return &Client{
		cfg:      cfg.withDefaults(),
		appID:    appID,
		topology: topology,
		logger:   logger,
	}
}

// Connect dials the broker, retrying every ConnectRetryInterval until
// ConnectTimeout elapses, then declares the exchange and queue topology.
// The error is surfaced to the caller rather than exiting the process.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}

	deadline := time.Now().Add(c.cfg.ConnectTimeout)
	uri := c.cfg.URI()

	c.logger.WithFields(logging.Fields{
		"host": c.cfg.Host,
		"port": c.cfg.Port,
	}).Info("Connecting to broker")

	for {
		conn, err := amqp091.Dial(uri)
		if err == nil {
			c.conn = conn
			if err := c.declareTopology(); err != nil {
				_ = conn.Close()
				c.conn = nil
				return fmt.Errorf("failed to declare topology: %w", err)
			}
			c.logger.Info("Broker connected, topology declared")
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("broker connect budget exhausted: %w", err)
		}
		c.logger.WithError(err).Warn("Broker connection failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ConnectRetryInterval):
		}
	}
}

func (c *Client) declareTopology() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, c.cfg.ExchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", c.cfg.Exchange, err)
	}

	for _, q := range c.topology.Queues {
		var args amqp091.Table
		if q.SingleActiveConsumer {
			args = amqp091.Table{"x-single-active-consumer": true}
		}
		if _, err := ch.QueueDeclare(q.Name, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.Name, err)
		}
		for _, rk := range q.Bindings {
			if err := ch.QueueBind(q.Name, rk, c.cfg.Exchange, false, nil); err != nil {
				return fmt.Errorf("failed to bind %s to %s: %w", q.Name, rk, err)
			}
		}
	}

	return nil
}

// Channel opens a fresh channel on the shared connection, reconnecting
// first if the connection was lost.
func (c *Client) Channel(ctx context.Context) (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return nil, fmt.Errorf("broker client is closing")
	}
	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

// Exchange returns the configured exchange name.
func (c *Client) Exchange() string {
	return c.cfg.Exchange
}

// AppID returns the app id stamped on published messages.
func (c *Client) AppID() string {
	return c.appID
}

// Closing reports whether Close has been called; consumer loops use it to
// distinguish shutdown from stream loss.
func (c *Client) Closing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// Close shuts the connection down. Blocked consumer loops unblock and exit
// cleanly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closing = true
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("failed to close broker connection: %w", err)
		}
		c.logger.Info("Broker connection closed")
	}
	return nil
}

// HealthCheck reports whether the broker connection is open.
func (c *Client) HealthCheck() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		return fmt.Errorf("broker connection is not open")
	}
	return nil
}
