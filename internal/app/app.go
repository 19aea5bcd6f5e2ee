// Package app assembles the dataset store, advisor and tool registry shared
// by the HTTP and MCP binaries.
package app

import (
	"context"
	"fmt"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/cache"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/config"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/database"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/datasets"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/logging"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/services"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/tools"
)

// App holds the wired services. DB, Redis and Snapshot are nil when their
// backend is not in use.
type App struct {
	Config   *config.Config
	Logger   *logging.StandardLogger
	Store    *datasets.Store
	Snapshot *cache.RedisDatasetCache
	Advisor  *services.Advisor
	Registry *tools.Registry
	DB       *database.PostgresDB
	Redis    *database.RedisClient
}

// New connects the configured backends and builds the tool registry.
// Postgres is required when it is the data source; Redis is optional and a
// failed connection only disables the snapshot cache.
func New(ctx context.Context, cfg *config.Config, logger *logging.StandardLogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	log := logger.WithComponent("app")

	var source datasets.Source
	switch cfg.Data.Source {
	case config.SourcePostgres:
		db, err := database.NewPostgresConnection(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = db
		source = datasets.NewPostgresSource(database.NewTracedDB(db.Pool), cfg.Data.Datasets)
	default:
		source = datasets.NewFileSource(cfg.Data.Path, cfg.Data.Datasets)
	}

	storeOpts := []datasets.StoreOption{datasets.WithLogger(logger)}
	if cfg.Redis.Enabled {
		redis, err := database.NewRedisConnection(ctx, cfg.Redis)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, snapshot cache disabled")
		} else {
			a.Redis = redis
			a.Snapshot = cache.NewRedisDatasetCache(redis.Client, cfg.Redis.SnapshotTTL, logger.Logger())
			storeOpts = append(storeOpts, datasets.WithSnapshotCache(a.Snapshot))
		}
	}

	a.Store = datasets.NewStore(source, storeOpts...)
	a.Advisor = services.NewAdvisor(a.Store, cfg.Policy, services.WithAdvisorLogger(logger))
	a.Registry = tools.NewRegistry(a.Advisor,
		tools.WithLogger(logger),
		tools.WithTimeout(cfg.Server.ToolTimeout))

	log.WithField("source", source.Name()).
		WithField("datasets", source.IDs()).
		WithField("snapshot_cache", a.Snapshot != nil).
		Info("Advisor ready")
	return a, nil
}

// Close releases backend connections and logs snapshot cache statistics.
func (a *App) Close() {
	if a.Snapshot != nil {
		a.Snapshot.LogStats()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
