package events

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Device identifies the wearable that produced a reading.
type Device struct {
	ID    string `json:"id"`
	Model string `json:"model"`
}

// Metrics holds one snapshot of vital signs. Pointer fields distinguish
// "absent" from zero; the classifier treats absent as out-of-range.
type Metrics struct {
	HeartRateBPM       *int     `json:"heart_rate_bpm,omitempty"`
	SpO2Pct            *float64 `json:"spo2_pct,omitempty"`
	RespirationRateBPM *int     `json:"respiration_rate_bpm,omitempty"`
	BodyTemperatureC   *float64 `json:"body_temperature_c,omitempty"`
	StepsSinceLast     *int     `json:"steps_since_last,omitempty"`
}

// VitalsReading is the wearable.data payload.
type VitalsReading struct {
	PatientID string   `json:"patient_id"`
	Device    Device   `json:"device"`
	Location  Location `json:"location"`
	Timestamp int64    `json:"timestamp"`
	Metrics   Metrics  `json:"metrics"`
}

// TriageStatus is published on transition into an actionable status.
type TriageStatus struct {
	Type       string   `json:"type"`
	IncidentID string   `json:"incident_id"`
	PatientID  string   `json:"patient_id"`
	Status     string   `json:"status"`
	Metrics    Metrics  `json:"metrics"`
	Location   Location `json:"location"`
	TS         string   `json:"ts"`
}

// SendAlert is the cmd.notification.send_alert payload. Vars carry the
// template's variables; rendering happens in the notification service.
type SendAlert struct {
	Type       string         `json:"type"`
	IncidentID string         `json:"incident_id"`
	Template   string         `json:"template"`
	Vars       map[string]any `json:"vars"`
}

// RequestAmbulance is the cmd.dispatch.request_ambulance payload.
type RequestAmbulance struct {
	Type       string   `json:"type"`
	IncidentID string   `json:"incident_id"`
	PatientID  string   `json:"patient_id"`
	Command    string   `json:"command"`
	Location   Location `json:"location"`
	Reason     string   `json:"reason"`
}

// DispatchEvent is the payload for all event.dispatch.* lifecycle events.
type DispatchEvent struct {
	IncidentID string `json:"incident_id"`
	DispatchID string `json:"dispatch_id"`
	PatientID  string `json:"patient_id"`
	UnitID     string `json:"unit_id"`
	HospitalID string `json:"hospital_id,omitempty"`
	Status     string `json:"status"`
	ETAMinutes int    `json:"eta_minutes,omitempty"`
	TS         string `json:"ts"`
}

// PatientVitals is the periodic dispatch.updates.patient_vitals payload.
type PatientVitals struct {
	DispatchID string  `json:"dispatch_id"`
	PatientID  string  `json:"patient_id"`
	Vitals     Metrics `json:"vitals"`
	RecordedAt string  `json:"recorded_at"`
	Timestamp  int64   `json:"timestamp"`
}

// InitiateBilling is the cmd.billing.initiate payload. AmountCents uses
// integer cents; the JSON amount field is dollars for wire compatibility.
type InitiateBilling struct {
	Type       string  `json:"type"`
	IncidentID string  `json:"incident_id"`
	PatientID  string  `json:"patient_id"`
	HospitalID string  `json:"hospital_id,omitempty"`
	Amount     float64 `json:"amount"`
	Summary    string  `json:"summary,omitempty"`
}

// BillingEvent is the payload for event.billing.{completed,failed}.
type BillingEvent struct {
	BillingID        int64   `json:"billing_id"`
	IncidentID       string  `json:"incident_id"`
	PatientID        string  `json:"patient_id"`
	Amount           float64 `json:"amount"`
	Status           string  `json:"status"`
	PaymentReference string  `json:"payment_reference,omitempty"`
	Error            string  `json:"error,omitempty"`
	Timestamp        string  `json:"timestamp"`
}

// Dispatch and billing status values carried in event payloads.
const (
	DispatchStatusUnitAssigned   = "UNIT_ASSIGNED"
	DispatchStatusEnroute        = "ENROUTE"
	DispatchStatusPatientOnboard = "PATIENT_ONBOARD"
	DispatchStatusArrived        = "ARRIVED_AT_HOSPITAL"

	BillingStatusCompleted = "COMPLETED"
	BillingStatusCancelled = "CANCELLED"
)

// Triage statuses. Normal is the ledger sentinel and is never published.
const (
	StatusNormal    = "normal"
	StatusAbnormal  = "abnormal"
	StatusEmergency = "emergency"
)
