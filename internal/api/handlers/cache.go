package handlers

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/cache"
)

// DatasetMemory is the in-process dataset store.
type DatasetMemory interface {
	IDs() []string
	Loaded() []string
	Invalidate(ctx context.Context, id string) error
}

// SnapshotCache is the optional Redis snapshot layer.
type SnapshotCache interface {
	GetStats() cache.DatasetCacheStats
	CachedDatasets(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// CacheHandler handles dataset cache inspection and invalidation.
type CacheHandler struct {
	store    DatasetMemory
	snapshot SnapshotCache
}

// NewCacheHandler creates a cache handler. snapshot may be nil when Redis is
// disabled.
func NewCacheHandler(store DatasetMemory, snapshot SnapshotCache) *CacheHandler {
	return &CacheHandler{
		store:    store,
		snapshot: snapshot,
	}
}

// CacheStatus describes what is cached where.
type CacheStatus struct {
	Loaded           []string                 `json:"loaded"`
	Snapshot         *cache.DatasetCacheStats `json:"snapshot,omitempty"`
	SnapshotDatasets []string                 `json:"snapshot_datasets,omitempty"`
}

// GetCacheStats reports loaded datasets and snapshot hit/miss statistics.
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	status := CacheStatus{Loaded: h.store.Loaded()}
	if h.snapshot != nil {
		stats := h.snapshot.GetStats()
		status.Snapshot = &stats

		ids, err := h.snapshot.CachedDatasets(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to list snapshots: " + err.Error(),
			})
			return
		}
		status.SnapshotDatasets = ids
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    status,
	})
}

// InvalidateDataset drops one dataset from memory and from Redis.
func (h *CacheHandler) InvalidateDataset(c *gin.Context) {
	id := c.Param("dataset")
	if !slices.Contains(h.store.IDs(), id) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Unknown dataset: " + id,
			"code":    "not_found",
		})
		return
	}

	if err := h.store.Invalidate(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to invalidate dataset: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Dataset invalidated",
		"dataset": id,
	})
}

// ClearCache drops every loaded dataset and all Redis snapshots.
func (h *CacheHandler) ClearCache(c *gin.Context) {
	ctx := c.Request.Context()
	for _, id := range h.store.Loaded() {
		if err := h.store.Invalidate(ctx, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to invalidate dataset: " + err.Error(),
			})
			return
		}
	}
	if h.snapshot != nil {
		if err := h.snapshot.Clear(ctx); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to clear snapshots: " + err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cache cleared",
	})
}
