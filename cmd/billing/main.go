package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/mattw23n/emergency-dispatch-app/internal/billing"
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
	logger := logging.NewLoggerWithService("billing")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Billing Service")

	insuranceURL := config.RequireEnv("INSURANCE_SERVICE_URL")
	stripeKey := config.RequireEnv("STRIPE_SECRET_KEY")

	ctx, stop := server.SignalContext()
	defer stop()

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = database.URLFromEnv()
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	store := billing.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to prepare billing schema")
	}

	// Connect to broker and declare topology
	broker := amqp.NewClient(amqp.ConfigFromEnv(), "billing", billing.Topology(), logger)
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
	healthChecker := monitoring.NewHealthChecker("billing", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("billing", version.Version, version.GitCommit)
	healthChecker.AddCheck("broker", monitoring.BrokerHealthCheck(broker))
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("insurance", monitoring.HTTPServiceHealthCheck("insurance", insuranceURL+"/health"))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"INSURANCE_SERVICE_URL": insuranceURL,
		"STRIPE_SECRET_KEY":     stripeKey,
	}))

	insurance := billing.NewHTTPInsuranceClient(insuranceURL)
	gateway := billing.NewStripeGateway(stripeKey, logger)
	saga := billing.NewSaga(store, insurance, gateway, publisher, logger, metricsCollector)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "billing", healthChecker, metricsCollector)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, server.DefaultConfig("billing", "8084"), router, logger)
	})
	g.Go(func() error {
		return broker.Consume(gctx, events.QueueBillingInitiate, saga.HandleInitiate)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Service exited with error")
	}
	logger.Info("Billing service stopped")
}
