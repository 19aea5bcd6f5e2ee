package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/app"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/config"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/logging"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/mcpserver"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout carries the protocol stream
	logger := logging.NewStandardLoggerWithOutput(cfg.LogLevel, cfg.Environment, os.Stderr)

	provider, err := telemetry.InitTelemetry(context.Background(), cfg.Telemetry,
		telemetry.Options{Environment: cfg.Environment, Writer: os.Stderr})
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

	s := mcpserver.NewServer(a.Registry, telemetry.ServiceVersion)
	logger.WithService(mcpserver.ServerName).
		WithField("tools", len(a.Registry.List())).
		Info("Serving MCP on stdio")

	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("stdio transport: %w", err)
	}
	logger.LogShutdown(mcpserver.ServerName, "stdin closed")
	return nil
}
