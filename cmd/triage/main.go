package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/mattw23n/emergency-dispatch-app/internal/triage"
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
	logger := logging.NewLoggerWithService("triage")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Triage Service")

	ctx, stop := server.SignalContext()
	defer stop()

	// Connect to broker and declare topology
	broker := amqp.NewClient(amqp.ConfigFromEnv(), "triage", triage.Topology(), logger)
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
	healthChecker := monitoring.NewHealthChecker("triage", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("triage", version.Version, version.GitCommit)
	healthChecker.AddCheck("broker", monitoring.BrokerHealthCheck(broker))

	svc := triage.NewService(publisher, logger, metricsCollector)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "triage", healthChecker, metricsCollector)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, server.DefaultConfig("triage", "8081"), router, logger)
	})
	g.Go(func() error {
		return broker.Consume(gctx, events.QueueTriageWearableData, svc.HandleReading)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Service exited with error")
	}
	logger.Info("Triage service stopped")
}
