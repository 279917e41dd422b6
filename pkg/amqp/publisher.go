package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
)

// EventPublisher is the publish surface handlers depend on; tests substitute
// a fake.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey, msgType, correlationID string, v any) error
}

// Publisher owns a single channel on the client's connection. A mutex
// serializes publishes because the underlying channel is not safe for
// concurrent use. High-volume worker tasks should still open their own
// Publisher rather than contend on a shared one.
type Publisher struct {
	client *Client
	logger logging.Logger

	mu sync.Mutex
	ch *amqp091.Channel
}

// NewPublisher opens a dedicated publishing channel.
func (c *Client) NewPublisher(ctx context.Context) (*Publisher, error) {
	ch, err := c.Channel(ctx)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: c, logger: c.logger, ch: ch}, nil
}

// Publish marshals v to JSON and publishes it as a persistent message.
// On channel failure it reopens the channel and retries once.
func (p *Publisher) Publish(ctx context.Context, routingKey, msgType, correlationID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msgType, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publish(ctx, routingKey, msgType, correlationID, body)
	if err == nil {
		return nil
	}

	p.logger.WithError(err).WithFields(logging.Fields{
		"routing_key": routingKey,
		"type":        msgType,
	}).Warn("Publish failed, reopening channel")

	ch, chErr := p.client.Channel(ctx)
	if chErr != nil {
		return fmt.Errorf("failed to reopen publish channel: %w", chErr)
	}
	p.ch = ch

	if err := p.publish(ctx, routingKey, msgType, correlationID, body); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", msgType, routingKey, err)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, routingKey, msgType, correlationID string, body []byte) error {
	return p.ch.PublishWithContext(ctx, p.client.Exchange(), routingKey, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: correlationID,
		Type:          msgType,
		AppId:         p.client.AppID(),
		Body:          body,
	})
}

// Close releases the publishing channel.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
