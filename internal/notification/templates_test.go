package notification

import (
	"strings"
	"testing"

	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
)

func TestRenderEmergency(t *testing.T) {
	got, err := Render(events.TemplateTriageEmergency, map[string]any{"patient_id": "P1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "EMERGENCY: patient P1 has critical vitals. An ambulance has been requested."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderUnitAssigned(t *testing.T) {
	got, err := Render(events.TemplateDispatchUnitAssigned, map[string]any{
		"patient_id":  "P1",
		"unit_id":     "amb-12345678",
		"hospital_id": "hosp-1",
		"eta_minutes": float64(4), // JSON numbers decode as float64
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "Ambulance amb-12345678 assigned to patient P1, heading to hospital hosp-1 (ETA 4 min)."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderBillingCompletedAmount(t *testing.T) {
	got, err := Render(events.TemplateBillingCompleted, map[string]any{
		"billing_id":        float64(42),
		"patient_id":        "P1",
		"amount":            150.50,
		"payment_reference": "pi_123",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "$150.50") {
		t.Errorf("got %q, want fractional amount rendered as 150.50", got)
	}
	if !strings.Contains(got, "pi_123") {
		t.Errorf("got %q, want payment reference", got)
	}
}

func TestRenderMissingVarIsEmpty(t *testing.T) {
	got, err := Render(events.TemplateTriageAbnormal, map[string]any{"patient_id": "P1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "Patient P1 shows abnormal vitals ()."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := Render("NO_SUCH_TEMPLATE", nil); err == nil {
		t.Fatal("unknown template must error")
	}
}
