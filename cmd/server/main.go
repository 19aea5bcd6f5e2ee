package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/api"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/api/handlers"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/app"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/config"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/logging"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/telemetry"
)

const serviceName = "procurement-advisor"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)

	// Telemetry first so startup spans are exported
	provider, err := telemetry.InitTelemetry(context.Background(), cfg.Telemetry,
		telemetry.Options{Environment: cfg.Environment})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Failed to shutdown telemetry")
		}
	}()

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(a)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.ToolTimeout + 5*time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.LogStartup(serviceName, telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	logger.LogShutdown(serviceName, "signal received")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Logger().Info("Server exited gracefully")
	return nil
}

func newRouter(a *app.App) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))

	deps := api.Dependencies{
		Registry:  a.Registry,
		Store:     a.Store,
		Checks:    healthChecks(a),
		Logger:    a.Logger,
		JWTSecret: a.Config.Security.JWTSecret,
		Version:   telemetry.ServiceVersion,
	}
	if a.Snapshot != nil {
		deps.Snapshot = a.Snapshot
	}
	api.SetupRoutes(router, deps)
	return router
}

// healthChecks lists the optional backends; a nil entry reports "disabled".
func healthChecks(a *app.App) map[string]handlers.HealthChecker {
	checks := map[string]handlers.HealthChecker{"database": nil, "redis": nil}
	if a.DB != nil {
		checks["database"] = a.DB
	}
	if a.Redis != nil {
		checks["redis"] = a.Redis
	}
	return checks
}
