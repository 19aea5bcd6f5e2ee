// Package tools exposes the advisor operations as named tools taking a JSON
// object of arguments. Both the HTTP API and the MCP server dispatch through
// the same Registry.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/logging"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/models"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/services"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/telemetry"
	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/utils"
)

// Parameter types understood by the transports.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array" // of strings
)

// Param describes one named argument of a tool.
type Param struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// Handler runs a tool against raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// Tool is a registered tool.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"parameters"`

	handler Handler
}

// Registry is a static name to tool map.
type Registry struct {
	tools   map[string]Tool
	log     *logging.StandardLogger
	logger  *logrus.Entry
	timeout time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for tool call events.
func WithLogger(logger *logging.StandardLogger) Option {
	return func(r *Registry) { r.log = logger }
}

// WithTimeout bounds every call. Zero disables the deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Registry) { r.timeout = timeout }
}

// NewRegistry registers every advisor operation.
func NewRegistry(advisor *services.Advisor, opts ...Option) *Registry {
	r := &Registry{
		tools: map[string]Tool{},
		log:   logging.NewStandardLoggerWithOutput("info", "production", os.Stderr),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.log.WithComponent("tools")

	for _, t := range definitions(advisor) {
		if _, dup := r.tools[t.Name]; dup {
			panic(fmt.Sprintf("tool %s registered twice", t.Name))
		}
		r.tools[t.Name] = t
	}
	r.logger.WithField("count", len(r.tools)).Debug("Tools registered")
	return r
}

// List returns every tool sorted by name.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the tool called name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Call runs the named tool. Empty args mean no arguments.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetToolTracer(), "tool."+name,
		telemetry.StringAttribute("tool.name", name))
	defer span.End()

	start := time.Now()
	result, err := r.call(ctx, name, args)

	if err != nil {
		code := ToRecord(err).Code
		telemetry.RecordError(span, err)
		telemetry.SetSpanAttributes(span, telemetry.StringAttribute("tool.result_code", code))
		r.log.LogToolCall(name, code, time.Since(start).Milliseconds())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	telemetry.SetSpanAttributes(span, telemetry.StringAttribute("tool.result_code", "ok"))
	r.log.LogToolCall(name, "", time.Since(start).Milliseconds())
	return result, nil
}

func (r *Registry) call(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	t, ok := r.tools[name]
	if !ok {
		names := make([]string, 0, len(r.tools))
		for n := range r.tools {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, utils.NewNotFoundError("tool %q not found", name).WithDetail("available_tools", names)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if len(bytes.TrimSpace(args)) == 0 || bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
		args = json.RawMessage("{}")
	}
	return t.handler(ctx, args)
}

// ToRecord converts a tool error into the record returned to callers.
func ToRecord(err error) models.ErrorRecord {
	rec := models.ErrorRecord{Error: err.Error(), Code: string(utils.KindOf(err))}
	if rec.Code == "" {
		rec.Code = "internal"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		rec.Code = "timeout"
	}
	if details := utils.DetailsOf(err); len(details) > 0 {
		rec.Details = details
	}
	return rec
}

// decode strictly unmarshals args into dst.
func decode(args json.RawMessage, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return utils.NewValidationErrorf("invalid arguments: %v", err)
	}
	return nil
}

// typed adapts a function over a concrete argument struct into a Handler.
func typed[A any](fn func(ctx context.Context, args A) (interface{}, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args A
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
