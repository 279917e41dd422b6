package wearable

import (
	"context"
	"time"

	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
)

// Emitter publishes the generator's readings on a fixed cadence.
type Emitter struct {
	generator *Generator
	publisher amqp.EventPublisher
	interval  time.Duration
	logger    logging.Logger
}

func NewEmitter(generator *Generator, publisher amqp.EventPublisher, interval time.Duration, logger logging.Logger) *Emitter {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	return &Emitter{
		generator: generator,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

// Run publishes until ctx is cancelled. A failed publish is logged and
// the loop carries on; readings are periodic and the next tick supersedes
// the lost one.
func (e *Emitter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		for _, reading := range e.generator.Readings() {
			if err := e.publisher.Publish(ctx, events.RouteWearableData, events.TypeVitalsReading, reading.PatientID, reading); err != nil {
				e.logger.WithError(err).WithFields(logging.Fields{
					"patient_id": reading.PatientID,
				}).Warn("Failed to publish vitals reading")
				continue
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
