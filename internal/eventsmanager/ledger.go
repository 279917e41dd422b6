package eventsmanager

import "sync"

// InitiatedLedger records the incident ids for which billing has been
// initiated. It grows unbounded over the process lifetime; dedup only
// needs to hold within one orchestrator run because the broker redelivers
// to the same single-active consumer.
type InitiatedLedger struct {
	mu        sync.Mutex
	initiated map[string]struct{}
}

func NewInitiatedLedger() *InitiatedLedger {
	return &InitiatedLedger{initiated: make(map[string]struct{})}
}

// MarkInitiated inserts incidentID and reports whether it was absent.
// Check and insert run under one lock.
func (l *InitiatedLedger) MarkInitiated(incidentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.initiated[incidentID]; ok {
		return false
	}
	l.initiated[incidentID] = struct{}{}
	return true
}

// Forget removes incidentID, re-arming the ledger after a failed initiate
// publish.
func (l *InitiatedLedger) Forget(incidentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.initiated, incidentID)
}
