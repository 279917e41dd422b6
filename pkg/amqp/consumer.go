package amqp

import (
	"context"
	"fmt"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
)

// Decision tells the consume loop what to do with a delivery.
type Decision int

const (
	// Ack removes the message from the queue.
	Ack Decision = iota
	// Drop rejects the message without requeueing. Used for malformed or
	// unroutable messages that would never succeed on redelivery.
	Drop
	// Retry rejects the message and requeues it, typically after a
	// transient downstream failure.
	Retry
)

// Delivery is the handler-facing view of an incoming message.
type Delivery struct {
	RoutingKey    string
	Type          string
	CorrelationID string
	Body          []byte
	Redelivered   bool
}

// Handler processes one delivery and decides its fate. Handlers run
// sequentially per consume loop; prefetch bounds in-flight deliveries.
type Handler func(ctx context.Context, d Delivery) Decision

// Consume subscribes to queue and dispatches deliveries to handler until
// ctx is cancelled or the client is closed. Messages are acked manually
// according to the handler's decision. If the delivery stream closes while
// the client is still live, the loop reconnects and resubscribes.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	for {
		if err := c.consumeOnce(ctx, queue, handler); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.Closing() {
			return nil
		}
		c.logger.WithFields(logging.Fields{"queue": queue}).Warn("Delivery stream lost, resubscribing")
	}
}

func (c *Client) consumeOnce(ctx context.Context, queue string, handler Handler) error {
	ch, err := c.Channel(ctx)
	if err != nil {
		if c.Closing() {
			return nil
		}
		return fmt.Errorf("failed to open consumer channel for %s: %w", queue, err)
	}
	defer ch.Close()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch on %s: %w", queue, err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", queue, err)
	}

	c.logger.WithFields(logging.Fields{"queue": queue}).Info("Consuming")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				// Stream closed; caller decides whether to resubscribe.
				return nil
			}
			c.dispatch(ctx, queue, handler, msg)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, queue string, handler Handler, msg amqp091.Delivery) {
	d := Delivery{
		RoutingKey:    msg.RoutingKey,
		Type:          msg.Type,
		CorrelationID: msg.CorrelationId,
		Body:          msg.Body,
		Redelivered:   msg.Redelivered,
	}

	var err error
	switch handler(ctx, d) {
	case Ack:
		err = msg.Ack(false)
	case Drop:
		err = msg.Nack(false, false)
	case Retry:
		err = msg.Nack(false, true)
	}
	if err != nil {
		c.logger.WithError(err).WithFields(logging.Fields{
			"queue":       queue,
			"routing_key": msg.RoutingKey,
		}).Error("Failed to settle delivery")
	}
}
