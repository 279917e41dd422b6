package wearable

import (
	"testing"

	"github.com/mattw23n/emergency-dispatch-app/internal/triage"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
)

func TestNormalScenarioClassifiesNormal(t *testing.T) {
	g := NewGenerator([]Patient{{PatientID: "P1", Scenario: ScenarioNormal}}, 1)

	for i := 0; i < 50; i++ {
		readings := g.Readings()
		if len(readings) != 1 {
			t.Fatalf("readings = %d, want 1", len(readings))
		}
		if got := triage.Classify(readings[0].Metrics).Status; got != events.StatusNormal {
			t.Fatalf("tick %d: classified %s, want normal (%+v)", i, got, readings[0].Metrics)
		}
	}
}

func TestEmergencyScenarioClassifiesEmergency(t *testing.T) {
	g := NewGenerator([]Patient{{PatientID: "P1", Scenario: ScenarioEmergency}}, 1)

	for i := 0; i < 50; i++ {
		readings := g.Readings()
		if got := triage.Classify(readings[0].Metrics).Status; got != events.StatusEmergency {
			t.Fatalf("tick %d: classified %s, want emergency", i, got)
		}
	}
}

func TestReadingsCarryPatientIdentity(t *testing.T) {
	g := NewGenerator(DefaultRoster(), 1)

	readings := g.Readings()
	if len(readings) != 3 {
		t.Fatalf("readings = %d, want 3", len(readings))
	}
	for _, r := range readings {
		if r.PatientID == "" || r.Device.ID == "" || r.Timestamp == 0 {
			t.Errorf("incomplete reading: %+v", r)
		}
	}
}
