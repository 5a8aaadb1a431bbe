package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"character-chat/backend/internal/repository"
	"character-chat/backend/pkg/config"
	"character-chat/backend/pkg/di"
	"character-chat/backend/pkg/health"
	"character-chat/backend/pkg/logger"
	"character-chat/backend/pkg/router"
)

func main() {
	// Load configuration (.env first, then the environment)
	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"), "env", cfg.Server.Env)

	// Initialize database
	db, err := config.NewDB(cfg)
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := config.TestConnection(db); err != nil {
		log.LogError(err, "Database is unreachable")
		os.Exit(1)
	}

	// Auto-migrate the schema
	if err := repository.Migrate(db); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Initialize dependency injection container
	diConfig := di.DefaultConfig()
	diConfig.App = cfg
	diConfig.LoggerConfig = logConfig

	container, err := di.New(db, diConfig)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Seed characters
	if cfg.CharacterSeedPath != "" {
		if _, err := container.CharacterService.SeedCharacters(ctx, cfg.CharacterSeedPath); err != nil {
			log.LogError(err, "Failed to seed characters", "path", cfg.CharacterSeedPath)
			os.Exit(1)
		}
	}

	// Background workers
	go container.Hub.Run(ctx)
	container.Health.OnChange(func(healthy bool) {
		log.Warn("System health changed", "healthy", healthy)
	})
	if cfg.Server.GRPCPort != "" {
		grpcServer := health.NewGRPCServer(container.Health, cfg.Observability.ServiceName)
		go serveGRPCHealth(ctx, grpcServer, ":"+cfg.Server.GRPCPort, log)
	}
	container.Health.Start(ctx)

	// Initialize and setup router
	r := router.New(container)
	r.SetupRoutes()

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Block until we receive a signal
	<-ctx.Done()
	log.Info("Shutting down server...")

	// Create a deadline to wait for
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	if err := container.Close(shutdownCtx); err != nil {
		log.LogError(err, "Failed to release resources")
	}

	log.Info("Server exited gracefully")
}

func serveGRPCHealth(ctx context.Context, srv *health.GRPCServer, addr string, log *logger.Logger) {
	log.Info("gRPC health service starting", "addr", addr)
	if err := srv.Serve(ctx, addr); err != nil {
		log.LogError(err, "gRPC health service stopped")
	}
}
