package notification

import (
	"fmt"
	"strings"

	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
)

// templates maps template ids to their message formats. Placeholders are
// {name} and resolve against the alert's vars.
var templates = map[string]string{
	events.TemplateTriageAbnormal:         "Patient {patient_id} shows abnormal vitals ({status}).",
	events.TemplateTriageEmergency:        "EMERGENCY: patient {patient_id} has critical vitals. An ambulance has been requested.",
	events.TemplateDispatchUnitAssigned:   "Ambulance {unit_id} assigned to patient {patient_id}, heading to hospital {hospital_id} (ETA {eta_minutes} min).",
	events.TemplateDispatchEnroute:        "Ambulance {unit_id} is en route to patient {patient_id}.",
	events.TemplateDispatchPatientOnboard: "Patient {patient_id} is onboard ambulance {unit_id}.",
	events.TemplateDispatchArrived:        "Patient {patient_id} has arrived at hospital {hospital_id}.",
	events.TemplateBillingCompleted:       "Billing {billing_id} for patient {patient_id} completed: ${amount} (ref {payment_reference}).",
	events.TemplateBillingFailed:          "Billing {billing_id} for patient {patient_id} failed: {error}.",
}

// Render resolves a template id against its variables. Unknown templates
// return an error; unknown placeholders render as empty.
func Render(template string, vars map[string]any) (string, error) {
	format, ok := templates[template]
	if !ok {
		return "", fmt.Errorf("unknown alert template %q", template)
	}

	var b strings.Builder
	rest := format
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.Index(rest[open:], "}")
		if end < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:open])
		name := rest[open+1 : open+end]
		if v, ok := vars[name]; ok && v != nil {
			b.WriteString(formatVar(v))
		}
		rest = rest[open+end+1:]
	}
}

func formatVar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; print integral values plainly.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%.2f", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
