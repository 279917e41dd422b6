// Package wearable simulates a fleet of vital-sign monitors feeding the
// pipeline.
package wearable

import (
	"math/rand"
	"time"

	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
)

// Scenario shapes the readings a simulated patient produces.
type Scenario int

const (
	// ScenarioNormal keeps all vitals inside the safe ranges.
	ScenarioNormal Scenario = iota
	// ScenarioEmergency produces tachycardia with severe hypoxia.
	ScenarioEmergency
)

// Patient is one simulated wearer.
type Patient struct {
	PatientID string
	DeviceID  string
	Model     string
	Location  events.Location
	Scenario  Scenario
}

// Generator produces synthetic readings for a patient roster.
type Generator struct {
	patients []Patient
	rng      *rand.Rand
}

func NewGenerator(patients []Patient, seed int64) *Generator {
	return &Generator{
		patients: patients,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// DefaultRoster is a small mixed roster used by the simulator binary.
func DefaultRoster() []Patient {
	return []Patient{
		{PatientID: "P100", DeviceID: "dev-100", Model: "vitatrack-2", Location: events.Location{Lat: 1.3048, Lng: 103.8318}, Scenario: ScenarioNormal},
		{PatientID: "P200", DeviceID: "dev-200", Model: "vitatrack-2", Location: events.Location{Lat: 1.2834, Lng: 103.8607}, Scenario: ScenarioNormal},
		{PatientID: "P300", DeviceID: "dev-300", Model: "pulseband-s", Location: events.Location{Lat: 1.2966, Lng: 103.7764}, Scenario: ScenarioEmergency},
	}
}

// Readings produces one reading per patient for the current tick.
func (g *Generator) Readings() []events.VitalsReading {
	now := time.Now()
	out := make([]events.VitalsReading, 0, len(g.patients))
	for _, p := range g.patients {
		out = append(out, events.VitalsReading{
			PatientID: p.PatientID,
			Device:    events.Device{ID: p.DeviceID, Model: p.Model},
			Location:  p.Location,
			Timestamp: now.UnixMilli(),
			Metrics:   g.metrics(p.Scenario),
		})
	}
	return out
}

func (g *Generator) metrics(s Scenario) events.Metrics {
	switch s {
	case ScenarioEmergency:
		hr := 155 + g.rng.Intn(25)
		spo2 := 84 + g.rng.Float64()*6
		resp := 31 + g.rng.Intn(8)
		temp := 39.1 + g.rng.Float64()*1.5
		steps := 0
		return events.Metrics{
			HeartRateBPM:       &hr,
			SpO2Pct:            &spo2,
			RespirationRateBPM: &resp,
			BodyTemperatureC:   &temp,
			StepsSinceLast:     &steps,
		}
	default:
		hr := 60 + g.rng.Intn(35)
		spo2 := 96 + g.rng.Float64()*3
		resp := 12 + g.rng.Intn(8)
		temp := 36.2 + g.rng.Float64()
		steps := g.rng.Intn(40)
		return events.Metrics{
			HeartRateBPM:       &hr,
			SpO2Pct:            &spo2,
			RespirationRateBPM: &resp,
			BodyTemperatureC:   &temp,
			StepsSinceLast:     &steps,
		}
	}
}
