package triage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
)

type fakePublisher struct {
	published []publishedMsg
	err       error
}

type publishedMsg struct {
	routingKey    string
	msgType       string
	correlationID string
	body          any
}

func (f *fakePublisher) Publish(_ context.Context, routingKey, msgType, correlationID string, v any) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMsg{routingKey, msgType, correlationID, v})
	return nil
}

func newTestService(pub amqp.EventPublisher) *Service {
	logger := logging.NewLogger()
	logger.SetLevel(logging.ErrorLevel)
	return NewService(pub, logger, nil)
}

func reading(patientID string, m events.Metrics) amqp.Delivery {
	body, _ := json.Marshal(events.VitalsReading{
		PatientID: patientID,
		Device:    events.Device{ID: "dev-1", Model: "vitatrack-2"},
		Location:  events.Location{Lat: 1.3521, Lng: 103.8198},
		Timestamp: 1700000000000,
		Metrics:   m,
	})
	return amqp.Delivery{RoutingKey: events.RouteWearableData, Body: body}
}

func TestHandleReadingEmergencyTransition(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)

	m := nominal()
	m.HeartRateBPM = intp(160)
	m.SpO2Pct = floatp(88)

	if d := svc.HandleReading(context.Background(), reading("P100", m)); d != amqp.Ack {
		t.Fatalf("decision = %v, want Ack", d)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.published))
	}

	got := pub.published[0]
	if got.routingKey != events.RouteTriageEmergency {
		t.Errorf("routing key = %s, want %s", got.routingKey, events.RouteTriageEmergency)
	}
	status := got.body.(events.TriageStatus)
	if status.Status != events.StatusEmergency {
		t.Errorf("status = %s, want emergency", status.Status)
	}
	if status.IncidentID == "" || status.IncidentID != got.correlationID {
		t.Errorf("incident id %q must be set and used as correlation id %q", status.IncidentID, got.correlationID)
	}
}

func TestHandleReadingSuppressesDuplicateStatus(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)

	m := nominal()
	m.SpO2Pct = floatp(88)

	for i := 0; i < 3; i++ {
		if d := svc.HandleReading(context.Background(), reading("P200", m)); d != amqp.Ack {
			t.Fatalf("reading %d: decision = %v, want Ack", i, d)
		}
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want exactly 1", len(pub.published))
	}
}

func TestHandleReadingEmitsOnEachTransition(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)

	abnormal := nominal()
	abnormal.SpO2Pct = floatp(93)
	emergency := nominal()
	emergency.SpO2Pct = floatp(88)

	svc.HandleReading(context.Background(), reading("P300", abnormal))
	svc.HandleReading(context.Background(), reading("P300", emergency))
	svc.HandleReading(context.Background(), reading("P300", nominal()))
	svc.HandleReading(context.Background(), reading("P300", emergency))

	if len(pub.published) != 3 {
		t.Fatalf("published %d messages, want 3", len(pub.published))
	}
	wantKeys := []string{
		events.RouteTriageAbnormal,
		events.RouteTriageEmergency,
		events.RouteTriageEmergency,
	}
	for i, want := range wantKeys {
		if pub.published[i].routingKey != want {
			t.Errorf("message %d routing key = %s, want %s", i, pub.published[i].routingKey, want)
		}
	}
}

func TestHandleReadingRecoveryNotPublished(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)

	emergency := nominal()
	emergency.SpO2Pct = floatp(88)

	svc.HandleReading(context.Background(), reading("P400", emergency))
	svc.HandleReading(context.Background(), reading("P400", nominal()))

	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want 1 (recovery is silent)", len(pub.published))
	}
}

func TestHandleReadingMalformedDropped(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(pub)

	d := svc.HandleReading(context.Background(), amqp.Delivery{Body: []byte("{not json")})
	if d != amqp.Drop {
		t.Fatalf("decision = %v, want Drop", d)
	}

	d = svc.HandleReading(context.Background(), amqp.Delivery{Body: []byte(`{"device":{"id":"d"}}`)})
	if d != amqp.Drop {
		t.Fatalf("missing patient_id: decision = %v, want Drop", d)
	}
	if len(pub.published) != 0 {
		t.Fatalf("published %d messages, want 0", len(pub.published))
	}
}

func TestHandleReadingPublishFailureRetriesTransition(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	svc := newTestService(pub)

	m := nominal()
	m.SpO2Pct = floatp(88)

	if d := svc.HandleReading(context.Background(), reading("P500", m)); d != amqp.Retry {
		t.Fatalf("decision = %v, want Retry", d)
	}

	// Redelivery after the broker recovers must still see a transition.
	pub.err = nil
	if d := svc.HandleReading(context.Background(), reading("P500", m)); d != amqp.Ack {
		t.Fatalf("redelivery decision = %v, want Ack", d)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d messages after recovery, want 1", len(pub.published))
	}
}
