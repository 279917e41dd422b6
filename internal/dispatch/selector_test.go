package dispatch

import (
	"math"
	"testing"

	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Singapore city centre to Changi is roughly 17 km.
	a := events.Location{Lat: 1.3521, Lng: 103.8198}
	b := events.Location{Lat: 1.3644, Lng: 103.9915}

	got := Haversine(a, b)
	if math.Abs(got-19.1) > 1.0 {
		t.Fatalf("Haversine = %v km, want ~19 km", got)
	}
}

func TestHaversineZero(t *testing.T) {
	p := events.Location{Lat: 1.3, Lng: 103.8}
	if got := Haversine(p, p); got != 0 {
		t.Fatalf("Haversine(p, p) = %v, want 0", got)
	}
}

func TestETAMinutes(t *testing.T) {
	cases := []struct {
		km   float64
		want int
	}{
		{0, 1},
		{0.1, 1},
		{25, 30},
		{50, 60},
		{51, 62},
	}
	for _, tc := range cases {
		if got := ETAMinutes(tc.km); got != tc.want {
			t.Errorf("ETAMinutes(%v) = %d, want %d", tc.km, got, tc.want)
		}
	}
}

func TestScoreCapacityPenalty(t *testing.T) {
	patient := events.Location{Lat: 1.3, Lng: 103.8}
	at := Hospital{ID: "h", Lat: 1.3, Lng: 103.8}

	at.Capacity = 5
	if got := Score(at, patient, 0); got != 0 {
		t.Errorf("capacity 5 score = %v, want 0", got)
	}
	at.Capacity = 3
	if got := Score(at, patient, 0); got != 1.0 {
		t.Errorf("capacity 3 score = %v, want 1.0", got)
	}
	at.Capacity = 0
	if got := Score(at, patient, 0); got != 2.5 {
		t.Errorf("capacity 0 score = %v, want 2.5", got)
	}
}

func TestScoreSeverityBonus(t *testing.T) {
	patient := events.Location{Lat: 1.3, Lng: 103.8}
	h := Hospital{ID: "h", Lat: 1.3, Lng: 103.8, Capacity: 10}

	if got := Score(h, patient, 3); got != -0.3 {
		t.Errorf("severity 3 score = %v, want -0.3", got)
	}
}

func TestSelectHospitalPicksNearest(t *testing.T) {
	patient := events.Location{Lat: 1.28, Lng: 103.84}
	hospitals := []Hospital{
		{ID: "far", Lat: 1.40, Lng: 103.90, Capacity: 10},
		{ID: "near", Lat: 1.2789, Lng: 103.8358, Capacity: 10},
	}

	best, dist, ok := SelectHospital(hospitals, patient, 1)
	if !ok {
		t.Fatal("expected a selection")
	}
	if best.ID != "near" {
		t.Fatalf("selected %s, want near", best.ID)
	}
	if dist > 1.0 {
		t.Fatalf("distance = %v km, want < 1 km", dist)
	}
}

func TestSelectHospitalLowCapacityPenalised(t *testing.T) {
	patient := events.Location{Lat: 1.30, Lng: 103.84}
	hospitals := []Hospital{
		// Marginally closer but nearly full.
		{ID: "full", Lat: 1.301, Lng: 103.841, Capacity: 1},
		{ID: "open", Lat: 1.305, Lng: 103.845, Capacity: 12},
	}

	best, _, ok := SelectHospital(hospitals, patient, 1)
	if !ok {
		t.Fatal("expected a selection")
	}
	if best.ID != "open" {
		t.Fatalf("selected %s, want open (capacity penalty should dominate)", best.ID)
	}
}

func TestSelectHospitalTieBreaksFirst(t *testing.T) {
	patient := events.Location{Lat: 1.30, Lng: 103.84}
	hospitals := []Hospital{
		{ID: "first", Lat: 1.31, Lng: 103.85, Capacity: 10},
		{ID: "second", Lat: 1.31, Lng: 103.85, Capacity: 10},
	}

	best, _, ok := SelectHospital(hospitals, patient, 1)
	if !ok {
		t.Fatal("expected a selection")
	}
	if best.ID != "first" {
		t.Fatalf("selected %s, want first", best.ID)
	}
}

func TestSelectHospitalEmpty(t *testing.T) {
	if _, _, ok := SelectHospital(nil, events.Location{}, 1); ok {
		t.Fatal("empty table must not select")
	}
}
