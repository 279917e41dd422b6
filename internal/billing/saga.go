// Package billing runs the incident billing saga: create a pending row,
// verify insurance, capture payment, mark paid, publish the outcome.
// Any failure after the first step compensates and publishes a failed
// event instead.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
	"github.com/mattw23n/emergency-dispatch-app/pkg/monitoring"
)

// Saga executes billing for one incident per consumed message.
type Saga struct {
	store     Store
	insurance InsuranceVerifier
	gateway   PaymentGateway
	publisher amqp.EventPublisher
	logger    logging.Logger

	outcomes *prometheus.CounterVec
}

func NewSaga(store Store, insurance InsuranceVerifier, gateway PaymentGateway, publisher amqp.EventPublisher, logger logging.Logger, collector *monitoring.MetricsCollector) *Saga {
	s := &Saga{
		store:     store,
		insurance: insurance,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
	}
	if collector != nil {
		s.outcomes = collector.NewCounter("saga_outcomes_total", "Billing saga outcomes", []string{"outcome"})
	}
	return s
}

// Topology declares the billing initiation queue. Single-active-consumer
// keeps one saga per incident in flight.
func Topology() amqp.Topology {
	return amqp.Topology{Queues: []amqp.Queue{{
		Name:                 events.QueueBillingInitiate,
		SingleActiveConsumer: true,
		Bindings:             []string{events.RouteCmdInitiateBilling},
	}}}
}

// HandleInitiate is the consumer handler for cmd.billing.initiate. It
// always acks once the saga has run: by then the saga has either
// completed or compensated, and a redelivery would double-charge.
func (s *Saga) HandleInitiate(ctx context.Context, d amqp.Delivery) amqp.Decision {
	var cmd events.InitiateBilling
	if err := json.Unmarshal(d.Body, &cmd); err != nil || cmd.IncidentID == "" || cmd.PatientID == "" {
		s.logger.WithError(err).Warn("Dropping malformed billing initiation")
		return amqp.Drop
	}

	s.run(ctx, cmd)
	return amqp.Ack
}

func (s *Saga) run(ctx context.Context, cmd events.InitiateBilling) {
	amountCents := events.DollarsToCents(cmd.Amount)
	log := s.logger.WithFields(logging.Fields{
		"incident_id":  cmd.IncidentID,
		"patient_id":   cmd.PatientID,
		"amount_cents": amountCents,
	})

	billingID, err := s.store.CreateRecord(ctx, cmd.IncidentID, cmd.PatientID, amountCents)
	if err != nil {
		// Nothing external has happened yet; there is nothing to undo.
		log.WithError(err).Error("Failed to create billing record")
		s.count("create_failed")
		return
	}

	outcome := s.insurance.Verify(ctx, cmd.PatientID, cmd.IncidentID, amountCents)
	if outcome.Code != VerifyOK {
		s.logger.WithFields(logging.Fields{
			"billing_id": billingID,
			"code":       outcome.Code.String(),
			"message":    outcome.Message,
		}).Warn("Insurance verification failed")
		s.compensate(ctx, billingID, "", cmd, fmt.Sprintf("insurance verification failed: %s", outcome.Code))
		return
	}
	if err := s.store.MarkVerified(ctx, billingID); err != nil {
		s.logger.WithError(err).WithField("billing_id", billingID).Warn("Failed to record insurance verification")
	}

	charge, err := s.gateway.Charge(ctx, amountCents, fmt.Sprintf("emergency transport, incident %s", cmd.IncidentID))
	if err != nil {
		s.compensate(ctx, billingID, "", cmd, fmt.Sprintf("payment gateway error: %v", err))
		return
	}
	if !charge.Success {
		s.compensate(ctx, billingID, "", cmd, fmt.Sprintf("payment declined: %s", charge.Message))
		return
	}

	if err := s.store.MarkPaid(ctx, billingID, charge.PaymentReference); err != nil {
		// Payment has been captured; compensation must refund it.
		s.compensate(ctx, billingID, charge.PaymentReference, cmd, fmt.Sprintf("database update to PAID failed: %v", err))
		return
	}

	completed := events.BillingEvent{
		BillingID:        billingID,
		IncidentID:       cmd.IncidentID,
		PatientID:        cmd.PatientID,
		Amount:           events.CentsToDollars(amountCents),
		Status:           events.BillingStatusCompleted,
		PaymentReference: charge.PaymentReference,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.Publish(ctx, events.RouteBillingCompleted, events.TypeBillingEvent, cmd.IncidentID, completed); err != nil {
		s.logger.WithError(err).WithField("billing_id", billingID).Error("Failed to publish billing completion")
	}

	s.logger.WithFields(logging.Fields{
		"billing_id":        billingID,
		"incident_id":       cmd.IncidentID,
		"payment_reference": charge.PaymentReference,
	}).Info("Billing completed")
	s.count("completed")
}

// compensate unwinds the saga: refund if a payment was captured, cancel
// the row, publish the failure. Each step is best-effort; a failing step
// is logged and the rest still run.
func (s *Saga) compensate(ctx context.Context, billingID int64, paymentReference string, cmd events.InitiateBilling, reason string) {
	log := s.logger.WithFields(logging.Fields{
		"billing_id":  billingID,
		"incident_id": cmd.IncidentID,
		"reason":      reason,
	})
	log.Warn("Compensating billing saga")

	if paymentReference != "" {
		if err := s.gateway.Refund(ctx, paymentReference); err != nil {
			log.WithError(err).Error("Compensation refund failed")
		}
	}

	if err := s.store.MarkCancelled(ctx, billingID); err != nil {
		log.WithError(err).Error("Compensation cancel failed")
	}

	failed := events.BillingEvent{
		BillingID:  billingID,
		IncidentID: cmd.IncidentID,
		PatientID:  cmd.PatientID,
		Amount:     cmd.Amount,
		Status:     events.BillingStatusCancelled,
		Error:      reason,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.Publish(ctx, events.RouteBillingFailed, events.TypeBillingEvent, cmd.IncidentID, failed); err != nil {
		log.WithError(err).Error("Compensation publish failed")
	}

	s.count("compensated")
}

func (s *Saga) count(outcome string) {
	if s.outcomes != nil {
		s.outcomes.WithLabelValues(outcome).Inc()
	}
}
