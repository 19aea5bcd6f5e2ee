package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/telemetry"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/tools"
)

// ToolRegistry is the subset of *tools.Registry used over HTTP.
type ToolRegistry interface {
	List() []tools.Tool
	Call(ctx context.Context, name string, args json.RawMessage) (interface{}, error)
}

// ToolHandler exposes registry tools as JSON endpoints.
type ToolHandler struct {
	registry ToolRegistry
}

func NewToolHandler(registry ToolRegistry) *ToolHandler {
	return &ToolHandler{registry: registry}
}

// StatusFor maps an error record code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case "not_found":
		return http.StatusNotFound
	case "invalid_argument", "out_of_range":
		return http.StatusBadRequest
	case "division_undefined", "insufficient_overlap", "invalid_data":
		return http.StatusUnprocessableEntity
	case "timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ListTools returns every tool with its parameter descriptors.
func (h *ToolHandler) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.registry.List(),
	})
}

// ListDatasets returns the dataset catalogue.
func (h *ToolHandler) ListDatasets(c *gin.Context) {
	h.respond(c, "list_datasets", nil)
}

// CallTool runs the tool named in the path with the JSON request body as
// its arguments.
func (h *ToolHandler) CallTool(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Failed to read request body",
			"code":    "invalid_argument",
		})
		return
	}
	h.respond(c, c.Param("name"), body)
}

func (h *ToolHandler) respond(c *gin.Context, name string, args json.RawMessage) {
	// otelgin's request span; a no-op span when tracing is off.
	span := trace.SpanFromContext(c.Request.Context())
	telemetry.SetSpanAttributes(span, telemetry.StringAttribute("tool.name", name))

	result, err := h.registry.Call(c.Request.Context(), name, args)
	if err != nil {
		rec := tools.ToRecord(err)
		status := StatusFor(rec.Code)
		if status >= http.StatusInternalServerError {
			telemetry.RecordError(span, err)
		}
		body := gin.H{
			"success": false,
			"error":   rec.Error,
			"code":    rec.Code,
		}
		if len(rec.Details) > 0 {
			body["details"] = rec.Details
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
