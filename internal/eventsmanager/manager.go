// Package eventsmanager is the orchestrator: it turns triage, dispatch,
// and billing lifecycle events into alert commands, conditional ambulance
// requests, and exactly-once billing initiations.
package eventsmanager

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
	"github.com/mattw23n/emergency-dispatch-app/pkg/monitoring"
)

// Manager holds the orchestrator's publishers and ledgers.
type Manager struct {
	publisher amqp.EventPublisher
	ledger    *InitiatedLedger
	logger    logging.Logger

	// billingAmountCents is the flat incident charge passed to the
	// billing saga, in integer cents.
	billingAmountCents int64

	alerts    *prometheus.CounterVec
	initiated *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

func NewManager(publisher amqp.EventPublisher, billingAmountCents int64, logger logging.Logger, collector *monitoring.MetricsCollector) *Manager {
	m := &Manager{
		publisher:          publisher,
		ledger:             NewInitiatedLedger(),
		logger:             logger,
		billingAmountCents: billingAmountCents,
	}
	if collector != nil {
		m.alerts = collector.NewCounter("alerts_total", "Alert commands emitted", []string{"template"})
		m.initiated = collector.NewCounter("billing_initiated_total", "Billing initiations emitted", nil)
		m.dropped = collector.NewCounter("dropped_total", "Malformed messages dropped", []string{"queue"})
	}
	return m
}

// Topology declares the three single-active-consumer input queues.
// Single-active-consumer keeps delivery order when replicas compete.
func Topology() amqp.Topology {
	return amqp.Topology{Queues: []amqp.Queue{
		{
			Name:                 events.QueueEventsTriageActionable,
			SingleActiveConsumer: true,
			Bindings:             []string{events.RouteTriageAbnormal, events.RouteTriageEmergency},
		},
		{
			Name:                 events.QueueEventsDispatchStatus,
			SingleActiveConsumer: true,
			Bindings: []string{
				events.RouteDispatchUnitAssigned,
				events.RouteDispatchEnroute,
				events.RouteDispatchPatientOnboard,
				events.RouteDispatchArrived,
			},
		},
		{
			Name:                 events.QueueEventsBillingStatus,
			SingleActiveConsumer: true,
			Bindings:             []string{events.RouteBillingCompleted, events.RouteBillingFailed},
		},
	}}
}

// dispatchTemplates maps dispatch routing keys to alert templates.
var dispatchTemplates = map[string]string{
	events.RouteDispatchUnitAssigned:   events.TemplateDispatchUnitAssigned,
	events.RouteDispatchEnroute:        events.TemplateDispatchEnroute,
	events.RouteDispatchPatientOnboard: events.TemplateDispatchPatientOnboard,
	events.RouteDispatchArrived:        events.TemplateDispatchArrived,
}

// HandleTriage consumes triage.status.* events. Every event produces an
// alert; emergencies additionally produce an ambulance request. Both
// publishes must succeed before ack.
func (m *Manager) HandleTriage(ctx context.Context, d amqp.Delivery) amqp.Decision {
	var status events.TriageStatus
	if err := json.Unmarshal(d.Body, &status); err != nil || status.IncidentID == "" || status.PatientID == "" {
		return m.drop(events.QueueEventsTriageActionable, d, err)
	}

	template := events.TemplateTriageAbnormal
	if status.Status == events.StatusEmergency {
		template = events.TemplateTriageEmergency
	}

	alert := events.SendAlert{
		Type:       events.TypeSendAlert,
		IncidentID: status.IncidentID,
		Template:   template,
		Vars: map[string]any{
			"patient_id": status.PatientID,
			"status":     status.Status,
			"metrics":    status.Metrics,
			"location":   status.Location,
			"ts":         status.TS,
		},
	}
	if err := m.sendAlert(ctx, alert); err != nil {
		m.logger.WithError(err).WithFields(logging.Fields{"incident_id": status.IncidentID}).Error("Failed to publish triage alert")
		return amqp.Retry
	}

	if status.Status == events.StatusEmergency {
		request := events.RequestAmbulance{
			Type:       events.TypeRequestAmbulance,
			IncidentID: status.IncidentID,
			PatientID:  status.PatientID,
			Command:    "request_ambulance",
			Location:   status.Location,
			Reason:     events.TemplateTriageEmergency,
		}
		if err := m.publisher.Publish(ctx, events.RouteCmdRequestAmbulance, events.TypeRequestAmbulance, status.IncidentID, request); err != nil {
			m.logger.WithError(err).WithFields(logging.Fields{"incident_id": status.IncidentID}).Error("Failed to publish ambulance request")
			return amqp.Retry
		}
		m.logger.WithFields(logging.Fields{
			"incident_id": status.IncidentID,
			"patient_id":  status.PatientID,
		}).Info("Ambulance requested")
	}

	return amqp.Ack
}

// HandleDispatch consumes event.dispatch.* lifecycle events. Each produces
// an alert; arrival additionally initiates billing exactly once per
// incident.
func (m *Manager) HandleDispatch(ctx context.Context, d amqp.Delivery) amqp.Decision {
	template, ok := dispatchTemplates[d.RoutingKey]
	if !ok {
		return m.drop(events.QueueEventsDispatchStatus, d, nil)
	}

	var evt events.DispatchEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil || evt.IncidentID == "" {
		return m.drop(events.QueueEventsDispatchStatus, d, err)
	}

	alert := events.SendAlert{
		Type:       events.TypeSendAlert,
		IncidentID: evt.IncidentID,
		Template:   template,
		Vars: map[string]any{
			"patient_id":  evt.PatientID,
			"dispatch_id": evt.DispatchID,
			"unit_id":     evt.UnitID,
			"hospital_id": evt.HospitalID,
			"eta_minutes": evt.ETAMinutes,
			"ts":          evt.TS,
		},
	}
	if err := m.sendAlert(ctx, alert); err != nil {
		m.logger.WithError(err).WithFields(logging.Fields{"incident_id": evt.IncidentID}).Error("Failed to publish dispatch alert")
		return amqp.Retry
	}

	if d.RoutingKey == events.RouteDispatchArrived {
		if decision := m.initiateBilling(ctx, evt); decision != amqp.Ack {
			return decision
		}
	}

	return amqp.Ack
}

func (m *Manager) initiateBilling(ctx context.Context, evt events.DispatchEvent) amqp.Decision {
	if !m.ledger.MarkInitiated(evt.IncidentID) {
		m.logger.WithFields(logging.Fields{"incident_id": evt.IncidentID}).Debug("Billing already initiated, skipping")
		return amqp.Ack
	}

	initiate := events.InitiateBilling{
		Type:       events.TypeInitiateBilling,
		IncidentID: evt.IncidentID,
		PatientID:  evt.PatientID,
		HospitalID: evt.HospitalID,
		Amount:     events.CentsToDollars(m.billingAmountCents),
		Summary:    "ambulance transport and admission",
	}
	if err := m.publisher.Publish(ctx, events.RouteCmdInitiateBilling, events.TypeInitiateBilling, evt.IncidentID, initiate); err != nil {
		m.logger.WithError(err).WithFields(logging.Fields{"incident_id": evt.IncidentID}).Error("Failed to publish billing initiation")
		m.ledger.Forget(evt.IncidentID)
		return amqp.Retry
	}

	m.logger.WithFields(logging.Fields{
		"incident_id": evt.IncidentID,
		"patient_id":  evt.PatientID,
	}).Info("Billing initiated")
	if m.initiated != nil {
		m.initiated.WithLabelValues().Inc()
	}
	return amqp.Ack
}

// HandleBilling consumes event.billing.* outcomes and fans them out as
// alerts.
func (m *Manager) HandleBilling(ctx context.Context, d amqp.Delivery) amqp.Decision {
	var evt events.BillingEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil || evt.IncidentID == "" {
		return m.drop(events.QueueEventsBillingStatus, d, err)
	}

	template := events.TemplateBillingCompleted
	if d.RoutingKey == events.RouteBillingFailed {
		template = events.TemplateBillingFailed
	}

	alert := events.SendAlert{
		Type:       events.TypeSendAlert,
		IncidentID: evt.IncidentID,
		Template:   template,
		Vars: map[string]any{
			"patient_id":        evt.PatientID,
			"billing_id":        evt.BillingID,
			"amount":            evt.Amount,
			"status":            evt.Status,
			"payment_reference": evt.PaymentReference,
			"error":             evt.Error,
			"timestamp":         evt.Timestamp,
		},
	}
	if err := m.sendAlert(ctx, alert); err != nil {
		m.logger.WithError(err).WithFields(logging.Fields{"incident_id": evt.IncidentID}).Error("Failed to publish billing alert")
		return amqp.Retry
	}
	return amqp.Ack
}

func (m *Manager) sendAlert(ctx context.Context, alert events.SendAlert) error {
	if err := m.publisher.Publish(ctx, events.RouteCmdSendAlert, events.TypeSendAlert, alert.IncidentID, alert); err != nil {
		return err
	}
	if m.alerts != nil {
		m.alerts.WithLabelValues(alert.Template).Inc()
	}
	return nil
}

func (m *Manager) drop(queue string, d amqp.Delivery, err error) amqp.Decision {
	m.logger.WithError(err).WithFields(logging.Fields{
		"queue":       queue,
		"routing_key": d.RoutingKey,
		"type":        d.Type,
	}).Warn("Dropping malformed message")
	if m.dropped != nil {
		m.dropped.WithLabelValues(queue).Inc()
	}
	return amqp.Drop
}
