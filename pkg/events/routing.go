// Package events defines the message vocabulary shared by every service:
// routing keys, queue names, payload structs, and alert templates.
package events

// Routing keys on the topic exchange.
const (
	RouteWearableData = "wearable.data"

	RouteTriageAbnormal  = "triage.status.abnormal"
	RouteTriageEmergency = "triage.status.emergency"

	RouteCmdSendAlert        = "cmd.notification.send_alert"
	RouteCmdRequestAmbulance = "cmd.dispatch.request_ambulance"
	RouteCmdInitiateBilling  = "cmd.billing.initiate"

	RouteDispatchUnitAssigned   = "event.dispatch.unit_assigned"
	RouteDispatchEnroute        = "event.dispatch.enroute"
	RouteDispatchPatientOnboard = "event.dispatch.patient_onboard"
	RouteDispatchArrived        = "event.dispatch.arrived_at_hospital"
	RoutePatientVitals          = "dispatch.updates.patient_vitals"

	RouteBillingCompleted = "event.billing.completed"
	RouteBillingFailed    = "event.billing.failed"
)

// Queue names. Consuming services declare their own queues on connect.
const (
	QueueTriageWearableData = "triage.q.wearable-data"

	QueueEventsTriageActionable = "events-manager.q.triage-actionable"
	QueueEventsDispatchStatus   = "events-manager.q.dispatch-status"
	QueueEventsBillingStatus    = "events-manager.q.billing-status"

	QueueDispatchRequests = "dispatch.q.requests"
	QueueBillingInitiate  = "billing.q.initiate"
	QueueNotificationSend = "notification.q.send-alert"
)

// Message type names carried in the AMQP "type" property.
const (
	TypeVitalsReading    = "VitalsReading"
	TypeTriageStatus     = "TriageStatus"
	TypeSendAlert        = "SendAlert"
	TypeRequestAmbulance = "RequestAmbulance"
	TypeDispatchEvent    = "DispatchEvent"
	TypePatientVitals    = "PatientVitals"
	TypeInitiateBilling  = "InitiateBilling"
	TypeBillingEvent     = "BillingEvent"
)
