package main

import (
	"context"

	"github.com/mattw23n/emergency-dispatch-app/internal/insurance"
	"github.com/mattw23n/emergency-dispatch-app/pkg/config"
	"github.com/mattw23n/emergency-dispatch-app/pkg/database"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
	"github.com/mattw23n/emergency-dispatch-app/pkg/monitoring"
	"github.com/mattw23n/emergency-dispatch-app/pkg/server"
	"github.com/mattw23n/emergency-dispatch-app/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("insurance")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Insurance Service")

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = database.URLFromEnv()
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	store := insurance.NewPostgresStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to prepare insurance schema")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("insurance", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("insurance", version.Version, version.GitCommit)
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "insurance", healthChecker, metricsCollector)
	insurance.NewHandlers(store, logger).RegisterRoutes(router)

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("insurance", "8086")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
