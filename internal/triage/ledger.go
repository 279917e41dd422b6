package triage

import (
	"sync"

	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
)

// StatusLedger tracks the last emitted status per patient so that only
// transitions produce downstream events. First sight of a patient is
// treated as "normal".
type StatusLedger struct {
	mu   sync.Mutex
	last map[string]string
}

func NewStatusLedger() *StatusLedger {
	return &StatusLedger{last: make(map[string]string)}
}

// Transition records status for patientID and reports whether it differs
// from the previously recorded status. The check and update run under one
// lock so concurrent workers cannot both observe a transition.
func (l *StatusLedger) Transition(patientID, status string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.last[patientID]
	if !ok {
		prev = events.StatusNormal
	}
	if prev == status {
		return false
	}
	l.last[patientID] = status
	return true
}

// Reset forgets the recorded status for patientID. Used when a publish
// fails after a transition so the redelivered reading transitions again.
func (l *StatusLedger) Reset(patientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.last, patientID)
}
