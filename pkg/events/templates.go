package events

// Alert template identifiers. The orchestrator emits a template key plus
// variables; the notification service owns the rendering.
const (
	TemplateTriageAbnormal         = "TRIAGE_ABNORMAL"
	TemplateTriageEmergency        = "TRIAGE_EMERGENCY"
	TemplateDispatchUnitAssigned   = "DISPATCH_UNIT_ASSIGNED"
	TemplateDispatchEnroute        = "DISPATCH_ENROUTE"
	TemplateDispatchPatientOnboard = "DISPATCH_PATIENT_ONBOARD"
	TemplateDispatchArrived        = "DISPATCH_ARRIVED_AT_HOSPITAL"
	TemplateBillingCompleted       = "BILLING_COMPLETED"
	TemplateBillingFailed          = "BILLING_FAILED"
)
