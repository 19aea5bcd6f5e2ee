package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/cache"
)

func (s *testStack) cacheRouter(snapshot SnapshotCache) *gin.Engine {
	router := gin.New()
	h := NewCacheHandler(s.store, snapshot)
	router.GET("/cache/stats", h.GetCacheStats)
	router.DELETE("/cache/:dataset", h.InvalidateDataset)
	router.DELETE("/cache", h.ClearCache)
	return router
}

func request(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestCacheHandler_GetCacheStats(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	_, err := s.store.Load(ctx, "cotton_price")
	require.NoError(t, err)

	w := request(s.cacheRouter(s.snapshot), http.MethodGet, "/cache/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Success bool        `json:"success"`
		Data    CacheStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, []string{"cotton_price"}, env.Data.Loaded)
	assert.Equal(t, []string{"cotton_price"}, env.Data.SnapshotDatasets)
	require.NotNil(t, env.Data.Snapshot)
	assert.Equal(t, int64(1), env.Data.Snapshot.Sets)
	assert.Equal(t, int64(1), env.Data.Snapshot.Misses)
}

func TestCacheHandler_GetCacheStatsWithoutRedis(t *testing.T) {
	s := newTestStack(t)

	w := request(s.cacheRouter(nil), http.MethodGet, "/cache/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "snapshot")
}

func TestCacheHandler_InvalidateDataset(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	_, err := s.store.Load(ctx, "cotton_price")
	require.NoError(t, err)
	router := s.cacheRouter(s.snapshot)

	w := request(router, http.MethodDelete, "/cache/cotton_price")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, s.store.Loaded())
	ids, err := s.snapshot.CachedDatasets(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// The next load goes back to the source.
	_, err = s.store.Load(ctx, "cotton_price")
	require.NoError(t, err)
	assert.Equal(t, 2, s.source.Calls("cotton_price"))

	w = request(router, http.MethodDelete, "/cache/copper")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestCacheHandler_ClearCache(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	for _, id := range []string{"cotton_price", "energy_futures"} {
		_, err := s.store.Load(ctx, id)
		require.NoError(t, err)
	}

	w := request(s.cacheRouter(s.snapshot), http.MethodDelete, "/cache")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, s.store.Loaded())
	ids, err := s.snapshot.CachedDatasets(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// MockSnapshotCache fails on demand.
type MockSnapshotCache struct {
	mock.Mock
}

func (m *MockSnapshotCache) GetStats() cache.DatasetCacheStats {
	args := m.Called()
	return args.Get(0).(cache.DatasetCacheStats)
}

func (m *MockSnapshotCache) CachedDatasets(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSnapshotCache) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestCacheHandler_SnapshotErrors(t *testing.T) {
	s := newTestStack(t)
	snapshot := &MockSnapshotCache{}
	snapshot.On("GetStats").Return(cache.DatasetCacheStats{})
	snapshot.On("CachedDatasets", mock.Anything).Return([]string(nil), errors.New("redis gone"))
	snapshot.On("Clear", mock.Anything).Return(errors.New("redis gone"))
	router := s.cacheRouter(snapshot)

	w := request(router, http.MethodGet, "/cache/stats")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "redis gone")

	w = request(router, http.MethodDelete, "/cache")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	snapshot.AssertExpectations(t)
}
