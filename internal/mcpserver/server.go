// Package mcpserver publishes the tool registry over the Model Context
// Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/tools"
)

// ServerName is announced to MCP clients.
const ServerName = "procurement-advisor"

// Registry is the subset of *tools.Registry the server needs.
type Registry interface {
	List() []tools.Tool
	Call(ctx context.Context, name string, args json.RawMessage) (interface{}, error)
}

// NewServer registers every registry tool on a new MCP server.
func NewServer(registry Registry, version string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)
	for _, t := range registry.List() {
		s.AddTool(Describe(t), Handle(registry, t.Name))
	}
	return s
}

// Describe converts a registry tool into its MCP schema.
func Describe(t tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}

		switch p.Type {
		case tools.TypeInteger, tools.TypeNumber:
			if d, ok := numeric(p.Default); ok {
				props = append(props, mcp.DefaultNumber(d))
			}
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case tools.TypeBoolean:
			if d, ok := p.Default.(bool); ok {
				props = append(props, mcp.DefaultBool(d))
			}
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		case tools.TypeArray:
			props = append(props, mcp.WithStringItems())
			opts = append(opts, mcp.WithArray(p.Name, props...))
		default:
			if d, ok := p.Default.(string); ok {
				props = append(props, mcp.DefaultString(d))
			}
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Handle runs one registry tool. Analytic failures come back as tool
// errors carrying the JSON error record, never as protocol errors.
func Handle(registry Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := registry.Call(ctx, name, args)
		if err != nil {
			rec, _ := json.Marshal(tools.ToRecord(err))
			return mcp.NewToolResultError(string(rec)), nil
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}
