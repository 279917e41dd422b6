package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/mattw23n/emergency-dispatch-app/internal/dispatch"
	"github.com/mattw23n/emergency-dispatch-app/pkg/amqp"
	"github.com/mattw23n/emergency-dispatch-app/pkg/config"
	"github.com/mattw23n/emergency-dispatch-app/pkg/database"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
	"github.com/mattw23n/emergency-dispatch-app/pkg/monitoring"
	"github.com/mattw23n/emergency-dispatch-app/pkg/server"
	"github.com/mattw23n/emergency-dispatch-app/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("dispatch")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Dispatch Service")

	ctx, stop := server.SignalContext()
	defer stop()

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = database.URLFromEnv()
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	store := dispatch.NewPostgresHospitalStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to prepare hospital schema")
	}

	// Connect to broker and declare topology
	broker := amqp.NewClient(amqp.ConfigFromEnv(), "dispatch", dispatch.Topology(), logger)
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
	healthChecker := monitoring.NewHealthChecker("dispatch", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("dispatch", version.Version, version.GitCommit)
	healthChecker.AddCheck("broker", monitoring.BrokerHealthCheck(broker))
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))

	var places *dispatch.PlacesClient
	if baseURL := config.GetEnv("PLACES_API_URL", ""); baseURL != "" {
		places = dispatch.NewPlacesClient(baseURL, config.GetEnv("PLACES_API_KEY", ""))
	}

	// Workflow and vitals tasks each open their own publisher channel.
	factory := func(ctx context.Context) (dispatch.Publisher, error) {
		return broker.NewPublisher(ctx)
	}

	svc := dispatch.NewService(publisher, factory, store, places, dispatch.DefaultTimings(), logger, metricsCollector)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "dispatch", healthChecker, metricsCollector)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, server.DefaultConfig("dispatch", "8083"), router, logger)
	})
	g.Go(func() error {
		return broker.Consume(gctx, events.QueueDispatchRequests, svc.HandleRequest)
	})

	err = g.Wait()

	// Let in-flight workflows finish their cancellation path.
	svc.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Service exited with error")
	}
	logger.Info("Dispatch service stopped")
}
