package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/cache"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/config"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/datasets"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/logging"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/services"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/testutil"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/tools"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

type testStack struct {
	store    *datasets.Store
	snapshot *cache.RedisDatasetCache
	registry *tools.Registry
	source   *testutil.StaticSource
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewStandardLoggerWithOutput("debug", "test", &bytes.Buffer{})
	client, _ := testutil.NewMiniRedis(t)
	snapshot := cache.NewRedisDatasetCache(client, time.Hour, logger.Logger())
	source := testutil.NewStaticSource(testutil.Datasets())
	store := datasets.NewStore(source, datasets.WithSnapshotCache(snapshot), datasets.WithLogger(logger))
	advisor := services.NewAdvisor(store, config.DefaultPolicy(), services.WithAdvisorLogger(logger))

	return &testStack{
		store:    store,
		snapshot: snapshot,
		registry: tools.NewRegistry(advisor, tools.WithLogger(logger)),
		source:   source,
	}
}

func (s *testStack) router() *gin.Engine {
	router := gin.New()
	toolHandler := NewToolHandler(s.registry)
	router.GET("/datasets", toolHandler.ListDatasets)
	router.GET("/tools", toolHandler.ListTools)
	router.POST("/tools/:name", toolHandler.CallTool)
	return router
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details"`
}

func post(t *testing.T, router *gin.Engine, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestToolHandler_ListTools(t *testing.T) {
	router := newTestStack(t).router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tools", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Data []tools.Tool `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Len(t, env.Data, 22)
	assert.Equal(t, "analyze_drivers_combined", env.Data[0].Name)
}

func TestToolHandler_ListDatasets(t *testing.T) {
	router := newTestStack(t).router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/datasets", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"cotton_price"`)
}

func TestToolHandler_CallTool(t *testing.T) {
	router := newTestStack(t).router()

	status, env := post(t, router, "/tools/validate_supplier_claim",
		`{"dataset_name":"cotton_price","claimed_price":190}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	var claim struct {
		Classification string  `json:"classification"`
		DifferencePct  float64 `json:"difference_pct"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &claim))
	assert.Equal(t, services.ClaimAboveRange, claim.Classification)
	assert.Equal(t, 6.31, claim.DifferencePct)

	status, env = post(t, router, "/tools/list_datasets", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestToolHandler_CallToolErrors(t *testing.T) {
	router := newTestStack(t).router()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown tool", "/tools/forecast_weather", `{}`, http.StatusNotFound, "not_found"},
		{"unknown dataset", "/tools/query_historical_data", `{"dataset_name":"copper"}`, http.StatusNotFound, "not_found"},
		{"bad json", "/tools/query_historical_data", `{"dataset_name":`, http.StatusBadRequest, "invalid_argument"},
		{"array body", "/tools/query_historical_data", `["cotton_price"]`, http.StatusBadRequest, "invalid_argument"},
		{"beyond horizon", "/tools/query_forecast_data", `{"dataset_name":"cotton_price","months_ahead":13}`, http.StatusBadRequest, "out_of_range"},
		{"single point trend", "/tools/calculate_trend_line", `{"dataset_name":"cotton_price","start_date":"2025-08-01","end_date":"2025-08-01"}`, http.StatusUnprocessableEntity, "insufficient_overlap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := post(t, router, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, env.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}

	_, env := post(t, router, "/tools/query_historical_data", `{"dataset_name":"cotton_price","date":"2019-01-01"}`)
	assert.Equal(t, "2024-09-01", env.Details["suggested_date"])
}

// failingRegistry fails every call with err.
type failingRegistry struct{ err error }

func (r failingRegistry) List() []tools.Tool { return nil }

func (r failingRegistry) Call(context.Context, string, json.RawMessage) (interface{}, error) {
	return nil, r.err
}

func TestToolHandler_AnnotatesRequestSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		err       error
		status    int
		spanError bool
	}{
		{"timeout marks span failed", context.DeadlineExceeded, http.StatusGatewayTimeout, true},
		{"client error leaves span ok", utils.NewNotFoundError("dataset %q not found", "copper"), http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := tracetest.NewSpanRecorder()
			provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

			router := gin.New()
			router.Use(otelgin.Middleware("test", otelgin.WithTracerProvider(provider)))
			router.POST("/tools/:name", NewToolHandler(failingRegistry{err: tt.err}).CallTool)

			status, _ := post(t, router, "/tools/recommend_forward_buy", `{}`)
			assert.Equal(t, tt.status, status)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			attrs := map[string]string{}
			for _, kv := range spans[0].Attributes() {
				attrs[string(kv.Key)] = kv.Value.Emit()
			}
			assert.Equal(t, "recommend_forward_buy", attrs["tool.name"])
			if tt.spanError {
				assert.Equal(t, codes.Error, spans[0].Status().Code)
				assert.NotEmpty(t, spans[0].Events())
			} else {
				assert.Empty(t, spans[0].Events())
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor("not_found"))
	assert.Equal(t, http.StatusBadRequest, StatusFor("invalid_argument"))
	assert.Equal(t, http.StatusBadRequest, StatusFor("out_of_range"))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor("division_undefined"))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor("insufficient_overlap"))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor("invalid_data"))
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor("timeout"))
	assert.Equal(t, http.StatusInternalServerError, StatusFor("internal"))
}
