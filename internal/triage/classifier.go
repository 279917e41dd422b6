package triage

import "github.com/mattw23n/emergency-dispatch-app/pkg/events"

// Classification is the outcome of evaluating one reading.
type Classification struct {
	Status string
	Reason string
}

// Classify evaluates a vitals snapshot against the triage thresholds.
// Rules run in order and the first match wins. A missing metric is treated
// as out-of-range, so an empty snapshot classifies as an emergency.
func Classify(m events.Metrics) Classification {
	if below(m.SpO2Pct, 91) {
		return Classification{events.StatusEmergency, "severe hypoxia"}
	}
	if outsideInt(m.HeartRateBPM, 40, 150) {
		return Classification{events.StatusEmergency, "critical heart rate"}
	}
	if outside(m.BodyTemperatureC, 35.0, 39.0) {
		return Classification{events.StatusEmergency, "critical temperature"}
	}
	if outsideInt(m.RespirationRateBPM, 8, 30) {
		return Classification{events.StatusEmergency, "critical respiration"}
	}
	if below(m.SpO2Pct, 95) {
		return Classification{events.StatusAbnormal, "mild hypoxia"}
	}
	if outsideInt(m.HeartRateBPM, 50, 100) {
		return Classification{events.StatusAbnormal, "abnormal heart rate"}
	}
	if outside(m.BodyTemperatureC, 36.0, 37.5) {
		return Classification{events.StatusAbnormal, "abnormal temperature"}
	}
	if outsideInt(m.RespirationRateBPM, 10, 24) {
		return Classification{events.StatusAbnormal, "abnormal respiration"}
	}
	return Classification{events.StatusNormal, ""}
}

// below reports v < limit, or true when v is absent.
func below(v *float64, limit float64) bool {
	if v == nil {
		return true
	}
	return *v < limit
}

// outside reports v < low or v > high, or true when v is absent.
func outside(v *float64, low, high float64) bool {
	if v == nil {
		return true
	}
	return *v < low || *v > high
}

func outsideInt(v *int, low, high int) bool {
	if v == nil {
		return true
	}
	return *v < low || *v > high
}
