package dispatch

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
)

// recordingPublisher is safe for concurrent use; the workflow and vitals
// tasks publish from their own goroutines.
type recordingPublisher struct {
	mu        sync.Mutex
	published []publishedMsg
}

type publishedMsg struct {
	routingKey string
	body       any
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey, _, _ string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, publishedMsg{routingKey, v})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) byKey(routingKey string) []publishedMsg {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedMsg
	for _, m := range p.published {
		if m.routingKey == routingKey {
			out = append(out, m)
		}
	}
	return out
}

type staticStore struct {
	hospitals []Hospital
	err       error
}

func (s *staticStore) ListHospitals(context.Context) ([]Hospital, error) {
	return s.hospitals, s.err
}

func testTimings() Timings {
	return Timings{
		OnboardDelay:   20 * time.Millisecond,
		ArrivalDelay:   50 * time.Millisecond,
		VitalsInterval: 10 * time.Millisecond,
	}
}

func newTestService(pub *recordingPublisher, store HospitalStore) *Service {
	logger := logging.NewLogger()
	logger.SetLevel(logging.ErrorLevel)
	factory := func(context.Context) (Publisher, error) { return pub, nil }
	return NewService(pub, factory, store, nil, testTimings(), logger, nil)
}

func ambulanceRequest(incidentID string) amqp.Delivery {
	body, _ := json.Marshal(events.RequestAmbulance{
		Type:       events.TypeRequestAmbulance,
		IncidentID: incidentID,
		PatientID:  "P1",
		Command:    "request_ambulance",
		Location:   events.Location{Lat: 1.28, Lng: 103.84},
		Reason:     events.TemplateTriageEmergency,
	})
	return amqp.Delivery{RoutingKey: events.RouteCmdRequestAmbulance, Body: body}
}

func seededHospitals() []Hospital {
	return []Hospital{
		{ID: "hosp-1", Name: "Singapore General Hospital", Lat: 1.2789, Lng: 103.8358, Capacity: 10},
		{ID: "hosp-2", Name: "Raffles Hospital", Lat: 1.2998, Lng: 103.8484, Capacity: 8},
		{ID: "hosp-3", Name: "Mount Elizabeth Hospital", Lat: 1.3054, Lng: 103.8354, Capacity: 12},
	}
}

func TestHandleRequestRunsFullWorkflow(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub, &staticStore{hospitals: seededHospitals()})

	if d := svc.HandleRequest(context.Background(), ambulanceRequest("inc-1")); d != amqp.Ack {
		t.Fatalf("decision = %v, want Ack", d)
	}
	svc.Wait()

	for _, key := range []string{
		events.RouteDispatchUnitAssigned,
		events.RouteDispatchEnroute,
		events.RouteDispatchPatientOnboard,
		events.RouteDispatchArrived,
	} {
		if got := len(pub.byKey(key)); got != 1 {
			t.Errorf("%s published %d times, want 1", key, got)
		}
	}

	assigned := pub.byKey(events.RouteDispatchUnitAssigned)[0].body.(events.DispatchEvent)
	if assigned.HospitalID != "hosp-1" {
		t.Errorf("hospital = %s, want hosp-1 (nearest to patient)", assigned.HospitalID)
	}
	if !strings.HasPrefix(assigned.UnitID, "amb-") || len(assigned.UnitID) != len("amb-")+8 {
		t.Errorf("unit id = %q, want amb-<8 chars>", assigned.UnitID)
	}
	if assigned.ETAMinutes < 1 {
		t.Errorf("eta = %d, want >= 1", assigned.ETAMinutes)
	}

	// Vitals ran between onboard and arrival, then stopped.
	vitals := pub.byKey(events.RoutePatientVitals)
	if len(vitals) < 2 {
		t.Errorf("vitals published %d times, want >= 2", len(vitals))
	}
	if svc.Registry().Count() != 0 {
		t.Errorf("active dispatches = %d after arrival, want 0", svc.Registry().Count())
	}
}

func TestHandleRequestVitalsStopAfterArrival(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub, &staticStore{hospitals: seededHospitals()})

	svc.HandleRequest(context.Background(), ambulanceRequest("inc-2"))
	svc.Wait()

	before := len(pub.byKey(events.RoutePatientVitals))
	time.Sleep(30 * time.Millisecond)
	after := len(pub.byKey(events.RoutePatientVitals))
	if after != before {
		t.Fatalf("vitals kept publishing after arrival: %d -> %d", before, after)
	}
}

func TestHandleRequestNoHospitalDrops(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub, &staticStore{})

	if d := svc.HandleRequest(context.Background(), ambulanceRequest("inc-3")); d != amqp.Drop {
		t.Fatalf("decision = %v, want Drop", d)
	}
	if len(pub.published) != 0 {
		t.Fatalf("published %d events, want 0", len(pub.published))
	}
}

func TestHandleRequestStoreErrorRetries(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub, &staticStore{err: context.DeadlineExceeded})

	if d := svc.HandleRequest(context.Background(), ambulanceRequest("inc-4")); d != amqp.Retry {
		t.Fatalf("decision = %v, want Retry", d)
	}
}

func TestHandleRequestMalformedDrops(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub, &staticStore{hospitals: seededHospitals()})

	if d := svc.HandleRequest(context.Background(), amqp.Delivery{Body: []byte("{bad")}); d != amqp.Drop {
		t.Fatalf("decision = %v, want Drop", d)
	}
}

func TestWorkflowCancellation(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub, &staticStore{hospitals: seededHospitals()})

	ctx, cancel := context.WithCancel(context.Background())
	if d := svc.HandleRequest(ctx, ambulanceRequest("inc-5")); d != amqp.Ack {
		t.Fatalf("decision = %v, want Ack", d)
	}
	cancel()
	svc.Wait()

	if got := len(pub.byKey(events.RouteDispatchArrived)); got != 0 {
		t.Fatalf("arrived published %d times after cancellation, want 0", got)
	}
	if svc.Registry().Count() != 0 {
		t.Fatalf("active dispatches = %d after cancellation, want 0", svc.Registry().Count())
	}
}
