package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/mattw23n/emergency-dispatch-app/internal/eventsmanager"
	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/config"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
	"github.com/mattw23n/emergency-dispatch-app/pkg/monitoring"
	"github.com/mattw23n/emergency-dispatch-app/pkg/server"
	"github.com/mattw23n/emergency-dispatch-app/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("events-manager")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Events Manager")

	ctx, stop := server.SignalContext()
	defer stop()

	// Connect to broker and declare topology
	broker := amqp.NewClient(amqp.ConfigFromEnv(), "events-manager", eventsmanager.Topology(), logger)
	if err := broker.Connect(ctx); err != nil {
		logger.WithError(err).Fatal("Broker connection failed")
	}
	defer broker.Close()

	publisher, err := broker.NewPublisher(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open publisher channel")
	}
	defer publisher.Close()

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("events-manager", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("events-manager", version.Version, version.GitCommit)
	healthChecker.AddCheck("broker", monitoring.BrokerHealthCheck(broker))

	billingAmountCents := int64(config.GetEnvInt("BILLING_AMOUNT_CENTS", 15000))
	manager := eventsmanager.NewManager(publisher, billingAmountCents, logger, metricsCollector)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "events-manager", healthChecker, metricsCollector)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, server.DefaultConfig("events-manager", "8082"), router, logger)
	})
	g.Go(func() error {
		return broker.Consume(gctx, events.QueueEventsTriageActionable, manager.HandleTriage)
	})
	g.Go(func() error {
		return broker.Consume(gctx, events.QueueEventsDispatchStatus, manager.HandleDispatch)
	})
	g.Go(func() error {
		return broker.Consume(gctx, events.QueueEventsBillingStatus, manager.HandleBilling)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Service exited with error")
	}
	logger.Info("Events manager stopped")
}
