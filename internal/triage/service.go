package triage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
	"github.com/mattw23n/emergency-dispatch-app/pkg/monitoring"
)

// Service classifies wearable readings and publishes actionable status
// transitions.
type Service struct {
	publisher amqp.EventPublisher
	ledger    *StatusLedger
	logger    logging.Logger
	metrics   *serviceMetrics
}

type serviceMetrics struct {
	readings    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	malformed   *prometheus.CounterVec
}

func NewService(publisher amqp.EventPublisher, logger logging.Logger, collector *monitoring.MetricsCollector) *Service {
	s := &Service{
		publisher: publisher,
		ledger:    NewStatusLedger(),
		logger:    logger,
	}
	if collector != nil {
		s.metrics = &serviceMetrics{
			readings:    collector.NewCounter("triage_readings_total", "Vitals readings processed", []string{"status"}),
			transitions: collector.NewCounter("triage_transitions_total", "Actionable status transitions published", []string{"status"}),
			malformed:   collector.NewCounter("triage_malformed_total", "Malformed wearable messages dropped", nil),
		}
	}
	return s
}

// Topology declares the wearable-data input queue.
func Topology() amqp.Topology {
	return amqp.Topology{Queues: []amqp.Queue{{
		Name:     events.QueueTriageWearableData,
		Bindings: []string{events.RouteWearableData},
	}}}
}

// HandleReading is the consumer handler for wearable.data.
func (s *Service) HandleReading(ctx context.Context, d amqp.Delivery) amqp.Decision {
	var reading events.VitalsReading
	if err := json.Unmarshal(d.Body, &reading); err != nil || reading.PatientID == "" {
		s.logger.WithError(err).WithFields(logging.Fields{
			"routing_key": d.RoutingKey,
		}).Warn("Dropping malformed wearable reading")
		if s.metrics != nil {
			s.metrics.malformed.WithLabelValues().Inc()
		}
		return amqp.Drop
	}

	c := Classify(reading.Metrics)
	if s.metrics != nil {
		s.metrics.readings.WithLabelValues(c.Status).Inc()
	}

	if !s.ledger.Transition(reading.PatientID, c.Status) {
		return amqp.Ack
	}
	if c.Status == events.StatusNormal {
		// Recovery transitions update the ledger but are never published.
		return amqp.Ack
	}

	incidentID := uuid.NewString()
	status := events.TriageStatus{
		Type:       events.TypeTriageStatus,
		IncidentID: incidentID,
		PatientID:  reading.PatientID,
		Status:     c.Status,
		Metrics:    reading.Metrics,
		Location:   reading.Location,
		TS:         time.Now().UTC().Format(time.RFC3339),
	}

	routingKey := events.RouteTriageAbnormal
	if c.Status == events.StatusEmergency {
		routingKey = events.RouteTriageEmergency
	}

	if err := s.publisher.Publish(ctx, routingKey, events.TypeTriageStatus, incidentID, status); err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{
			"patient_id": reading.PatientID,
			"status":     c.Status,
		}).Error("Failed to publish triage status")
		// Roll the ledger back so the redelivered reading re-transitions.
		s.ledger.Reset(reading.PatientID)
		return amqp.Retry
	}

	s.logger.WithFields(logging.Fields{
		"incident_id": incidentID,
		"patient_id":  reading.PatientID,
		"status":      c.Status,
		"reason":      c.Reason,
	}).Info("Triage status published")
	if s.metrics != nil {
		s.metrics.transitions.WithLabelValues(c.Status).Inc()
	}
	return amqp.Ack
}
