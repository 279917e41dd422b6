package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/mattw23n/emergency-dispatch-app/internal/notification"
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
	logger := logging.NewLoggerWithService("notification")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Notification Service")

	ctx, stop := server.SignalContext()
	defer stop()

	// Connect to broker and declare topology
	broker := amqp.NewClient(amqp.ConfigFromEnv(), "notification", notification.Topology(), logger)
	if err := broker.Connect(ctx); err != nil {
		logger.WithError(err).Fatal("Broker connection failed")
	}
	defer broker.Close()

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("notification", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("notification", version.Version, version.GitCommit)
	healthChecker.AddCheck("broker", monitoring.BrokerHealthCheck(broker))

	webhookURL := config.GetEnv("ALERT_WEBHOOK_URL", "")
	svc := notification.NewService(webhookURL, logger, metricsCollector)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "notification", healthChecker, metricsCollector)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, server.DefaultConfig("notification", "8085"), router, logger)
	})
	g.Go(func() error {
		return broker.Consume(gctx, events.QueueNotificationSend, svc.HandleAlert)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Service exited with error")
	}
	logger.Info("Notification service stopped")
}
