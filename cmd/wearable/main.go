package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mattw23n/emergency-dispatch-app/internal/wearable"
	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/config"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
	"github.com/mattw23n/emergency-dispatch-app/pkg/monitoring"
	"github.com/mattw23n/emergency-dispatch-app/pkg/server"
	"github.com/mattw23n/emergency-dispatch-app/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("wearable")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Wearable Simulator")

	ctx, stop := server.SignalContext()
	defer stop()

	// Producers declare no queues; the consumers own their topology.
	broker := amqp.NewClient(amqp.ConfigFromEnv(), "wearable", amqp.Topology{}, logger)
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
	healthChecker := monitoring.NewHealthChecker("wearable", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("wearable", version.Version, version.GitCommit)
	healthChecker.AddCheck("broker", monitoring.BrokerHealthCheck(broker))

	interval := config.GetEnvDuration("WEARABLE_PUBLISH_INTERVAL", 4*time.Second)
	generator := wearable.NewGenerator(wearable.DefaultRoster(), time.Now().UnixNano())
	emitter := wearable.NewEmitter(generator, publisher, interval, logger)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "wearable", healthChecker, metricsCollector)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, server.DefaultConfig("wearable", "8080"), router, logger)
	})
	g.Go(func() error {
		return emitter.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Service exited with error")
	}
	logger.Info("Wearable simulator stopped")
}
