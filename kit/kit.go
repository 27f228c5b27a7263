// Package kit holds small transport adapters shared by the module's
// service surfaces. The MCP adapter turns a plain endpoint function into a
// registered tool so business packages stay transport-agnostic.
package kit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Endpoint is a transport-agnostic request handler: typed request in,
// typed response out.
type Endpoint func(ctx context.Context, request any) (any, error)

type contextKey string

// TraceIDKey is the context key for the per-request trace ID.
const TraceIDKey contextKey = "trace_id"

// WithTraceID stores a trace ID in the context.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// TraceIDFrom retrieves the trace ID from the context, or "" if unset.
func TraceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}

// Session identity keys, set by transports so endpoints can log and audit
// who called them without knowing the transport.
const (
	TransportKey  contextKey = "transport"
	SessionIDKey  contextKey = "session_id"
	RemoteAddrKey contextKey = "remote_addr"
)

// WithTransport records the transport name ("mcp_stdio", "mcp_quic", "http").
func WithTransport(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, TransportKey, name)
}

// WithSessionID records the transport session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// WithRemoteAddr records the peer address.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}

// TransportFrom retrieves the transport name, or "" if unset.
func TransportFrom(ctx context.Context) string {
	name, _ := ctx.Value(TransportKey).(string)
	return name
}

// SessionIDFrom retrieves the transport session ID, or "" if unset.
func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}

// RemoteAddrFrom retrieves the peer address, or "" if unset.
func RemoteAddrFrom(ctx context.Context) string {
	addr, _ := ctx.Value(RemoteAddrKey).(string)
	return addr
}

// MCPDecodeResult holds the decoded request and an optional context
// enrichment applied before the endpoint runs.
type MCPDecodeResult struct {
	Request   any
	EnrichCtx func(context.Context) context.Context
}

// RegisterMCPTool registers an Endpoint as an MCP tool on the given server.
// The decode function extracts the typed request from the tool call's
// arguments. Endpoint errors are reported as tool errors, never as
// protocol failures.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode func(*mcp.CallToolRequest) (*MCPDecodeResult, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}
		if decoded.EnrichCtx != nil {
			ctx = decoded.EnrichCtx(ctx)
		}

		resp, err := endpoint(ctx, decoded.Request)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// InputSchema builds a JSON schema object for a tool's parameters.
func InputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
