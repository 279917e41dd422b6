// Package dispatch consumes ambulance requests, selects a hospital, and
// drives the per-incident ambulance workflow.
package dispatch

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
	"github.com/mattw23n/emergency-dispatch-app/pkg/monitoring"
)

// Publisher is the channel-owning publish handle a worker task holds.
type Publisher interface {
	amqp.EventPublisher
	Close() error
}

// PublisherFactory opens a dedicated publisher for a worker task. Broker
// channels are not safe to share across goroutines, so the workflow and
// vitals tasks each open their own.
type PublisherFactory func(ctx context.Context) (Publisher, error)

// Timings configures the workflow's sleep schedule. Tests shorten these.
type Timings struct {
	OnboardDelay   time.Duration
	ArrivalDelay   time.Duration
	VitalsInterval time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		OnboardDelay:   5 * time.Second,
		ArrivalDelay:   10 * time.Second,
		VitalsInterval: 2 * time.Second,
	}
}

// Service coordinates hospital selection and ambulance workflows.
type Service struct {
	publisher    amqp.EventPublisher
	newPublisher PublisherFactory
	store        HospitalStore
	places       *PlacesClient
	registry     *Registry
	timings      Timings
	logger       logging.Logger

	wg sync.WaitGroup

	dispatches  *prometheus.CounterVec
	activeGauge *prometheus.GaugeVec
}

// NewService builds the coordinator. publisher is the consumer loop's own
// channel; newPublisher hands each worker task a channel of its own.
func NewService(publisher amqp.EventPublisher, newPublisher PublisherFactory, store HospitalStore, places *PlacesClient, timings Timings, logger logging.Logger, collector *monitoring.MetricsCollector) *Service {
	s := &Service{
		publisher:    publisher,
		newPublisher: newPublisher,
		store:        store,
		places:       places,
		registry:     NewRegistry(),
		timings:      timings,
		logger:       logger,
	}
	if collector != nil {
		s.dispatches = collector.NewCounter("dispatches_total", "Ambulance dispatches", []string{"outcome"})
		s.activeGauge = collector.NewGauge("active_dispatches", "Currently active dispatches", nil)
	}
	return s
}

// Topology declares the ambulance-request input queue.
func Topology() amqp.Topology {
	return amqp.Topology{Queues: []amqp.Queue{{
		Name:     events.QueueDispatchRequests,
		Bindings: []string{events.RouteCmdRequestAmbulance},
	}}}
}

// Registry exposes the active-dispatches map for health reporting.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Wait blocks until all workflow and vitals tasks have exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

// HandleRequest is the consumer handler for cmd.dispatch.request_ambulance.
func (s *Service) HandleRequest(ctx context.Context, d amqp.Delivery) amqp.Decision {
	var req events.RequestAmbulance
	if err := json.Unmarshal(d.Body, &req); err != nil || req.IncidentID == "" || req.PatientID == "" {
		s.logger.WithError(err).Warn("Dropping malformed ambulance request")
		return amqp.Drop
	}

	hospitals, err := s.store.ListHospitals(ctx)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{"incident_id": req.IncidentID}).Error("Hospital lookup failed")
		return amqp.Retry
	}

	const severity = 1
	hospital, dist, found := SelectHospital(hospitals, req.Location, severity)
	if !found && s.places != nil {
		hospital, found, err = s.places.NearestHospital(ctx, req.Location)
		if err != nil {
			s.logger.WithError(err).WithFields(logging.Fields{"incident_id": req.IncidentID}).Error("Places fallback failed")
		}
		if found {
			dist = Haversine(req.Location, events.Location{Lat: hospital.Lat, Lng: hospital.Lng})
		}
	}
	if !found {
		s.logger.WithFields(logging.Fields{"incident_id": req.IncidentID}).Error("No hospital available, dropping request")
		if s.dispatches != nil {
			s.dispatches.WithLabelValues("no_hospital").Inc()
		}
		return amqp.Drop
	}

	dispatchID := uuid.NewString()
	rec := &Record{
		IncidentID: req.IncidentID,
		DispatchID: dispatchID,
		PatientID:  req.PatientID,
		UnitID:     "amb-" + dispatchID[:8],
		HospitalID: hospital.ID,
	}
	eta := ETAMinutes(dist)
	s.registry.Register(rec)
	s.updateActiveGauge()

	if err := s.publishLifecycle(ctx, s.publisher, rec, events.RouteDispatchUnitAssigned, events.DispatchStatusUnitAssigned, eta); err != nil {
		s.registry.Remove(dispatchID)
		s.updateActiveGauge()
		return amqp.Retry
	}
	if err := s.publishLifecycle(ctx, s.publisher, rec, events.RouteDispatchEnroute, events.DispatchStatusEnroute, eta); err != nil {
		s.registry.Remove(dispatchID)
		s.updateActiveGauge()
		return amqp.Retry
	}

	s.logger.WithFields(logging.Fields{
		"incident_id": req.IncidentID,
		"dispatch_id": dispatchID,
		"unit_id":     rec.UnitID,
		"hospital_id": hospital.ID,
		"distance_km": dist,
		"eta_minutes": eta,
	}).Info("Ambulance dispatched")
	if s.dispatches != nil {
		s.dispatches.WithLabelValues("dispatched").Inc()
	}

	s.wg.Add(1)
	go s.runWorkflow(ctx, rec, eta)

	return amqp.Ack
}

// runWorkflow drives one incident from enroute to arrival on its own
// publisher channel.
func (s *Service) runWorkflow(ctx context.Context, rec *Record, eta int) {
	defer s.wg.Done()
	defer func() {
		s.registry.Remove(rec.DispatchID)
		s.updateActiveGauge()
	}()

	pub, err := s.newPublisher(ctx)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{"dispatch_id": rec.DispatchID}).Error("Workflow could not open publisher")
		return
	}
	defer pub.Close()

	if !sleepUnlessDone(ctx, s.timings.OnboardDelay) {
		return
	}
	if err := s.publishLifecycle(ctx, pub, rec, events.RouteDispatchPatientOnboard, events.DispatchStatusPatientOnboard, eta); err != nil {
		return
	}

	s.wg.Add(1)
	go s.monitorVitals(ctx, rec)

	if !sleepUnlessDone(ctx, s.timings.ArrivalDelay) {
		s.registry.StopMonitoring(rec.DispatchID)
		return
	}

	s.registry.StopMonitoring(rec.DispatchID)

	if err := s.publishLifecycle(ctx, pub, rec, events.RouteDispatchArrived, events.DispatchStatusArrived, 0); err != nil {
		return
	}

	s.logger.WithFields(logging.Fields{
		"incident_id": rec.IncidentID,
		"dispatch_id": rec.DispatchID,
	}).Info("Patient arrived at hospital")
}

// monitorVitals publishes synthetic patient vitals on its own channel
// until monitoring is stopped.
func (s *Service) monitorVitals(ctx context.Context, rec *Record) {
	defer s.wg.Done()

	pub, err := s.newPublisher(ctx)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{"dispatch_id": rec.DispatchID}).Error("Vitals monitor could not open publisher")
		return
	}
	defer pub.Close()

	for {
		if s.registry.MonitoringStopped(rec.DispatchID) {
			return
		}

		now := time.Now().UTC()
		vitals := events.PatientVitals{
			DispatchID: rec.DispatchID,
			PatientID:  rec.PatientID,
			Vitals:     syntheticVitals(),
			RecordedAt: now.Format(time.RFC3339),
			Timestamp:  now.UnixMilli(),
		}
		if err := pub.Publish(ctx, events.RoutePatientVitals, events.TypePatientVitals, rec.IncidentID, vitals); err != nil {
			// Readings are periodic; a lost one is not worth a retry.
			s.logger.WithError(err).WithFields(logging.Fields{"dispatch_id": rec.DispatchID}).Warn("Failed to publish patient vitals")
		}

		if !sleepUnlessDone(ctx, s.timings.VitalsInterval) {
			return
		}
	}
}

func (s *Service) publishLifecycle(ctx context.Context, pub amqp.EventPublisher, rec *Record, routingKey, status string, eta int) error {
	evt := events.DispatchEvent{
		IncidentID: rec.IncidentID,
		DispatchID: rec.DispatchID,
		PatientID:  rec.PatientID,
		UnitID:     rec.UnitID,
		HospitalID: rec.HospitalID,
		Status:     status,
		ETAMinutes: eta,
		TS:         time.Now().UTC().Format(time.RFC3339),
	}
	if err := pub.Publish(ctx, routingKey, events.TypeDispatchEvent, rec.IncidentID, evt); err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{
			"dispatch_id": rec.DispatchID,
			"routing_key": routingKey,
		}).Error("Failed to publish dispatch event")
		return err
	}
	return nil
}

func (s *Service) updateActiveGauge() {
	if s.activeGauge != nil {
		s.activeGauge.WithLabelValues().Set(float64(s.registry.Count()))
	}
}

// sleepUnlessDone waits for d, returning false if ctx was cancelled first.
func sleepUnlessDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// syntheticVitals produces a plausible in-transit snapshot.
func syntheticVitals() events.Metrics {
	hr := 90 + rand.Intn(40)
	spo2 := 93 + rand.Float64()*5
	resp := 14 + rand.Intn(8)
	temp := 36.5 + rand.Float64()
	steps := 0
	return events.Metrics{
		HeartRateBPM:       &hr,
		SpO2Pct:            &spo2,
		RespirationRateBPM: &resp,
		BodyTemperatureC:   &temp,
		StepsSinceLast:     &steps,
	}
}
