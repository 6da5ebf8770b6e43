package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheoDuToit1/sella/internal/handler"
	"github.com/TheoDuToit1/sella/internal/payfast"
	"github.com/TheoDuToit1/sella/internal/repositories"
	"github.com/TheoDuToit1/sella/internal/router"
	"github.com/TheoDuToit1/sella/internal/service"
	"github.com/TheoDuToit1/sella/pkg/database"
	"github.com/TheoDuToit1/sella/pkg/envconfig"
	"github.com/TheoDuToit1/sella/pkg/logger"
	"github.com/TheoDuToit1/sella/pkg/shutdownsetup"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetString("port")
			return runServer(port)
		},
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT env)")

	return cmd
}

func runServer(portFlag string) error {
	envErr := envconfig.LoadEnvFile(".env")

	loggerConfig := logger.Config{
		Level:        envconfig.GetLogLevel(),
		Format:       envconfig.GetEnv("LOG_FORMAT", "json"),
		Output:       envconfig.GetEnv("LOG_OUTPUT", "stdout"),
		EnableCaller: envconfig.GetBool("LOG_ENABLE_CALLER", true),
		Environment:  envconfig.GetEnv("ENVIRONMENT", "development"),
	}

	appLogger := logger.New(loggerConfig)

	if envErr != nil {
		appLogger.Warn("Failed to load .env file", "error", envErr)
	} else {
		appLogger.Debug(".env file loaded successfully")
	}

	appLogger.Info("Starting Sella application",
		"environment", loggerConfig.Environment,
		"log_level", loggerConfig.Level)

	dbConfig := envconfig.LoadDatabaseConfig()

	db, err := database.NewConnection(dbConfig, appLogger)
	if err != nil {
		appLogger.Error("Failed to establish database connection", "error", err)
		return err
	}
	appLogger.Info("Database connection established successfully")

	if err := db.HealthCheck(); err != nil {
		appLogger.Error("Database health check failed", "error", err)
	} else {
		appLogger.Info("Database health check passed")
	}

	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Failed to close database connection", "error", err)
		}
	}()

	// Repositories
	orderRepo := repositories.NewOrderRepository(appLogger, db)
	productRepo := repositories.NewProductRepository(appLogger, db)
	paymentRepo := repositories.NewPaymentRepository(appLogger, db)
	deliveryRepo := repositories.NewDeliveryRepository(appLogger, db)
	rewardRepo := repositories.NewRewardRepository(appLogger, db)
	auditRepo := repositories.NewAuditRepository(appLogger, db)

	// Payment gateway
	gateway := payfast.NewService(envconfig.LoadPayFastConfig(), appLogger)
	baseURL := envconfig.GetEnv("APP_BASE_URL", "http://localhost:3000")

	// Services
	rewardService := service.NewRewardService(rewardRepo, appLogger)
	orderService := service.NewOrderService(orderRepo, productRepo, auditRepo, rewardService, appLogger)
	weightService := service.NewWeightService(orderRepo, auditRepo, appLogger)
	paymentService := service.NewPaymentService(orderRepo, paymentRepo, gateway, baseURL, appLogger)
	notifier := &service.LogNotifier{Logger: appLogger}
	reconcileService := service.NewReconcileService(
		gateway, orderRepo, paymentRepo, deliveryRepo, auditRepo, rewardService, notifier, appLogger)

	// Handlers
	handlers := router.Handlers{
		Order:   handler.NewOrderHandler(orderService, appLogger),
		Payment: handler.NewPaymentHandler(paymentService, reconcileService, appLogger),
		Weight:  handler.NewWeightHandler(weightService, appLogger),
		Health:  handler.NewHealthHandler(db, appLogger),
	}

	mux := router.New(handlers)

	port := portFlag
	if port == "" {
		port = envconfig.GetEnv("PORT", "8080")
	}
	host := envconfig.GetEnv("HOST", "localhost")

	server := &http.Server{
		Addr:         host + ":" + port,
		Handler:      appLogger.HTTPMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		appLogger.Info("Starting HTTP server",
			"host", host,
			"port", port,
			"address", server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server error", "error", err)
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		appLogger.Error("Could not start server", "error", err)
		return err
	case <-time.After(200 * time.Millisecond):
		appLogger.Info("Server started successfully", "port", port)
	}

	shutdownsetup.SetupGracefulShutdown(server, appLogger)
	return nil
}
