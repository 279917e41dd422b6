package dispatch

import "sync"

// Record tracks one active ambulance assignment.
type Record struct {
	IncidentID string
	DispatchID string
	PatientID  string
	UnitID     string
	HospitalID string

	stopMonitoring bool
}

// Registry is the mutex-protected map of active dispatches. Exactly one
// vitals-monitor goroutine runs per registered record.
type Registry struct {
	mu     sync.Mutex
	active map[string]*Record
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*Record)}
}

func (r *Registry) Register(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[rec.DispatchID] = rec
}

func (r *Registry) Remove(dispatchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, dispatchID)
}

// StopMonitoring flags the record's vitals loop to exit at its next check.
func (r *Registry) StopMonitoring(dispatchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.active[dispatchID]; ok {
		rec.stopMonitoring = true
	}
}

// MonitoringStopped reports whether the vitals loop for dispatchID should
// exit. A removed record also stops its loop.
func (r *Registry) MonitoringStopped(dispatchID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.active[dispatchID]
	if !ok {
		return true
	}
	return rec.stopMonitoring
}

// Count returns the number of active dispatches.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
