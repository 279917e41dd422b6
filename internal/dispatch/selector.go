package dispatch

import "github.com/mattw23n/emergency-dispatch-app/pkg/events"

// Hospital is a dispatch-local facility row. Capacity is a hint used in
// scoring, not a reservation counter.
type Hospital struct {
	ID       string
	Name     string
	Lat      float64
	Lng      float64
	Capacity int
}

// Score rates a hospital for a patient: distance plus a penalty for low
// capacity, minus a severity bonus. Lower is better.
func Score(h Hospital, patient events.Location, severity int) float64 {
	dist := Haversine(patient, events.Location{Lat: h.Lat, Lng: h.Lng})
	capacityPenalty := 0.0
	if h.Capacity < 5 {
		capacityPenalty = float64(5-h.Capacity) * 0.5
	}
	return dist + capacityPenalty - float64(severity)*0.1
}

// SelectHospital picks the minimum-score hospital. Ties resolve to the
// first encountered. Returns false when the slice is empty.
func SelectHospital(hospitals []Hospital, patient events.Location, severity int) (Hospital, float64, bool) {
	if len(hospitals) == 0 {
		return Hospital{}, 0, false
	}

	best := hospitals[0]
	bestScore := Score(best, patient, severity)
	for _, h := range hospitals[1:] {
		if s := Score(h, patient, severity); s < bestScore {
			best = h
			bestScore = s
		}
	}
	dist := Haversine(patient, events.Location{Lat: best.Lat, Lng: best.Lng})
	return best, dist, true
}
