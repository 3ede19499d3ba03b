package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pricesync/internal/api"
	"pricesync/internal/api/handlers"
	"pricesync/internal/backend"
	"pricesync/internal/repository"
	"pricesync/internal/service"
	"pricesync/pkg/auth"
	"pricesync/pkg/config"
	"pricesync/pkg/logger"
	"pricesync/pkg/sqlite"

	"go.uber.org/zap"
)

// @title PriceSync API
// @version 1.0
// @description Recommendation synchronization engine for the pricing dashboard

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting PriceSync service")

	// Open the durable cache
	ctx := context.Background()
	db, err := sqlite.Open(ctx, &cfg.Cache, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open cache database", zap.Error(err))
	}
	defer db.Close()

	cacheRepo, err := repository.NewCacheRepository(db, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize cache", zap.Error(err))
	}
	batchRegistry := repository.NewBatchRegistry(appLogger)

	// Backend client
	client := backend.NewClient(&cfg.Backend, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey)

	// Initialize services
	jobService := service.NewJobService(client, backend.IsTransportError, cfg.Poller, appLogger)
	reconciler := service.NewReconcilerService(client, cacheRepo, cfg.Reconciler, cfg.Cache.TTL, appLogger)
	actionService := service.NewActionService(client, appLogger)
	syncService := service.NewSyncService(jobService, reconciler, actionService, client, cacheRepo, batchRegistry, cfg.Cache.TTL, appLogger)

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(syncService, appLogger)
	analysisHandler := handlers.NewAnalysisHandler(syncService, appLogger)

	// Setup router
	app := api.SetupRouter(syncHandler, analysisHandler, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
