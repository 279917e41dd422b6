// Package notification renders alert commands and fans them out to
// recipients: the service log always, a webhook when configured.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/clients"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
	"github.com/mattw23n/emergency-dispatch-app/pkg/monitoring"
)

// Service consumes send_alert commands.
type Service struct {
	webhookURL string
	httpClient *http.Client
	executor   failsafe.Executor[*http.Response]
	logger     logging.Logger

	delivered *prometheus.CounterVec
}

func NewService(webhookURL string, logger logging.Logger, collector *monitoring.MetricsCollector) *Service {
	s := &Service{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		executor:   clients.NewHTTPExecutor(clients.DefaultHTTPExecutorConfig()),
		logger:     logger,
	}
	if collector != nil {
		s.delivered = collector.NewCounter("alerts_delivered_total", "Alerts delivered", []string{"template", "channel"})
	}
	return s
}

// Topology declares the alert command queue.
func Topology() amqp.Topology {
	return amqp.Topology{Queues: []amqp.Queue{{
		Name:     events.QueueNotificationSend,
		Bindings: []string{events.RouteCmdSendAlert},
	}}}
}

// HandleAlert renders and delivers one alert. Unknown templates can never
// succeed on redelivery, so they drop.
func (s *Service) HandleAlert(ctx context.Context, d amqp.Delivery) amqp.Decision {
	var cmd events.SendAlert
	if err := json.Unmarshal(d.Body, &cmd); err != nil || cmd.Template == "" {
		s.logger.WithError(err).Warn("Dropping malformed alert command")
		return amqp.Drop
	}

	message, err := Render(cmd.Template, cmd.Vars)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{
			"incident_id": cmd.IncidentID,
		}).Warn("Dropping alert with unknown template")
		return amqp.Drop
	}

	s.logger.WithFields(logging.Fields{
		"incident_id": cmd.IncidentID,
		"template":    cmd.Template,
		"message":     message,
	}).Info("Alert")
	s.count(cmd.Template, "log")

	if s.webhookURL != "" {
		if err := s.postWebhook(ctx, cmd, message); err != nil {
			// The alert already reached the log channel; webhook loss is
			// not worth requeueing the command.
			s.logger.WithError(err).WithFields(logging.Fields{
				"incident_id": cmd.IncidentID,
			}).Warn("Webhook delivery failed")
		} else {
			s.count(cmd.Template, "webhook")
		}
	}

	return amqp.Ack
}

func (s *Service) postWebhook(ctx context.Context, cmd events.SendAlert, message string) error {
	payload, err := json.Marshal(map[string]any{
		"incident_id": cmd.IncidentID,
		"template":    cmd.Template,
		"message":     message,
		"vars":        cmd.Vars,
	})
	if err != nil {
		return err
	}

	resp, err := clients.ExecuteHTTP(ctx, s.executor, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return s.httpClient.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *Service) count(template, channel string) {
	if s.delivered != nil {
		s.delivered.WithLabelValues(template, channel).Inc()
	}
}
