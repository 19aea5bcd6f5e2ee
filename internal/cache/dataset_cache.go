package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/telemetry"
)

// KeyPrefix namespaces snapshot keys in Redis.
const KeyPrefix = "dataset_snapshot:"

// DatasetCacheEntry represents a cached dataset snapshot with metadata
type DatasetCacheEntry struct {
	Dataset   *models.Dataset `json:"dataset"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// DatasetCacheStats tracks cache performance metrics
type DatasetCacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	HitRate float64 `json:"hit_rate"`
}

// RedisDatasetCache keeps parsed datasets in Redis so restarts and sibling
// processes skip re-parsing the source files.
type RedisDatasetCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Entry

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewRedisDatasetCache creates a new Redis-based dataset cache
func NewRedisDatasetCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisDatasetCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisDatasetCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: KeyPrefix,
		logger: logger.WithField("component", "dataset_cache"),
	}
}

// Get retrieves a dataset snapshot from Redis.
func (c *RedisDatasetCache) Get(ctx context.Context, datasetID string) (*models.Dataset, bool) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetCacheTracer(), "cache.get",
		telemetry.StringAttribute("dataset", datasetID))
	defer span.End()

	data, err := c.redis.Get(ctx, c.prefix+datasetID).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		span.SetAttributes(telemetry.BoolAttribute("cache.hit", false))
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("dataset", datasetID).Warn("Redis error getting dataset snapshot")
		telemetry.RecordError(span, err)
		c.misses.Add(1)
		return nil, false
	}

	var entry DatasetCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Dataset == nil {
		c.logger.WithField("dataset", datasetID).Warn("Discarding undecodable dataset snapshot")
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	span.SetAttributes(telemetry.BoolAttribute("cache.hit", true))
	return entry.Dataset, true
}

// Set stores a dataset snapshot with the configured TTL.
func (c *RedisDatasetCache) Set(ctx context.Context, dataset *models.Dataset) {
	if dataset == nil {
		return
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.GetCacheTracer(), "cache.set",
		telemetry.StringAttribute("dataset", dataset.ID))
	defer span.End()

	now := time.Now()
	entry := DatasetCacheEntry{
		Dataset:   dataset,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).WithField("dataset", dataset.ID).Warn("Error serializing dataset snapshot")
		return
	}

	if err := c.redis.Set(ctx, c.prefix+dataset.ID, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("dataset", dataset.ID).Warn("Redis error setting dataset snapshot")
		telemetry.RecordError(span, err)
		return
	}

	c.sets.Add(1)
	c.logger.WithFields(logrus.Fields{
		"dataset": dataset.ID,
		"bytes":   len(data),
		"ttl":     c.ttl.String(),
	}).Debug("Cached dataset snapshot")
}

// Delete drops one snapshot.
func (c *RedisDatasetCache) Delete(ctx context.Context, datasetID string) error {
	if err := c.redis.Del(ctx, c.prefix+datasetID).Err(); err != nil {
		return fmt.Errorf("error deleting dataset snapshot %s: %w", datasetID, err)
	}
	return nil
}

// GetStats returns current cache statistics
func (c *RedisDatasetCache) GetStats() DatasetCacheStats {
	stats := DatasetCacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

// LogStats logs current cache performance statistics
func (c *RedisDatasetCache) LogStats() {
	stats := c.GetStats()
	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"hit_rate": fmt.Sprintf("%.2f%%", stats.HitRate),
	}).Info("Dataset cache stats")
}

// Clear removes all cached snapshots.
func (c *RedisDatasetCache) Clear(ctx context.Context) error {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithField("entries", len(keys)).Info("Cleared dataset snapshots")
	return nil
}

// CachedDatasets returns the identifiers that currently have a snapshot.
func (c *RedisDatasetCache) CachedDatasets(ctx context.Context) ([]string, error) {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if id := strings.TrimPrefix(key, c.prefix); id != "" && id != key {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *RedisDatasetCache) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning cache keys: %w", err)
	}
	return keys, nil
}
