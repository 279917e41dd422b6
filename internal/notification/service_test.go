package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
)

func newTestService(webhookURL string) *Service {
	logger := logging.NewLogger()
	logger.SetLevel(logging.ErrorLevel)
	return NewService(webhookURL, logger, nil)
}

func alertDelivery(template string, vars map[string]any) amqp.Delivery {
	body, _ := json.Marshal(events.SendAlert{
		Type:       events.TypeSendAlert,
		IncidentID: "inc-1",
		Template:   template,
		Vars:       vars,
	})
	return amqp.Delivery{RoutingKey: events.RouteCmdSendAlert, Body: body}
}

func TestHandleAlertAcksWithoutWebhook(t *testing.T) {
	svc := newTestService("")

	d := svc.HandleAlert(context.Background(), alertDelivery(events.TemplateTriageEmergency, map[string]any{"patient_id": "P1"}))
	if d != amqp.Ack {
		t.Fatalf("decision = %v, want Ack", d)
	}
}

func TestHandleAlertPostsWebhook(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL)
	d := svc.HandleAlert(context.Background(), alertDelivery(events.TemplateTriageEmergency, map[string]any{"patient_id": "P1"}))
	if d != amqp.Ack {
		t.Fatalf("decision = %v, want Ack", d)
	}
	if received["template"] != events.TemplateTriageEmergency {
		t.Errorf("webhook template = %v", received["template"])
	}
	if msg, _ := received["message"].(string); msg == "" {
		t.Error("webhook message is empty")
	}
}

func TestHandleAlertWebhookFailureStillAcks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL)
	d := svc.HandleAlert(context.Background(), alertDelivery(events.TemplateTriageEmergency, map[string]any{"patient_id": "P1"}))
	if d != amqp.Ack {
		t.Fatalf("decision = %v, want Ack (alert already logged)", d)
	}
}

func TestHandleAlertUnknownTemplateDropped(t *testing.T) {
	svc := newTestService("")

	d := svc.HandleAlert(context.Background(), alertDelivery("NO_SUCH_TEMPLATE", nil))
	if d != amqp.Drop {
		t.Fatalf("decision = %v, want Drop", d)
	}
}

func TestHandleAlertMalformedDropped(t *testing.T) {
	svc := newTestService("")

	d := svc.HandleAlert(context.Background(), amqp.Delivery{Body: []byte("{bad")})
	if d != amqp.Drop {
		t.Fatalf("decision = %v, want Drop", d)
	}
}
