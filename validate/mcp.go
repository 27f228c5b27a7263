package validate

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/regard/kit"
	"github.com/hazyhaar/regard/pixel"
)

// RegisterMCP registers the visual validation tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerValidateTool(srv)
	e.registerCompareTool(srv)
	e.registerBaselineTool(srv)
}

// mcpOptions is the wire form of Options. Images arrive as base64-encoded
// raw RGBA; width/height describe both.
type mcpOptions struct {
	URL              string   `json:"url,omitempty"`
	Selector         string   `json:"selector,omitempty"`
	BaselineImage    string   `json:"baselineImage,omitempty"`
	ActualImage      string   `json:"actualImage,omitempty"`
	Width            int      `json:"width,omitempty"`
	Height           int      `json:"height,omitempty"`
	Threshold        float64  `json:"threshold,omitempty"`
	MaxIterations    int      `json:"maxIterations,omitempty"`
	DiffThreshold    int      `json:"diffThreshold,omitempty"`
	MergeDistance    int      `json:"mergeDistance,omitempty"`
	KeepAnimations   bool     `json:"keepAnimations,omitempty"`
	ExcludeSelectors []string `json:"excludeSelectors,omitempty"`
	ViewportWidth    int      `json:"viewportWidth,omitempty"`
	ViewportHeight   int      `json:"viewportHeight,omitempty"`
}

func (r *mcpOptions) toOptions() Options {
	opts := Options{
		URL:              r.URL,
		Selector:         r.Selector,
		ImageMeta:        pixel.Meta{Width: r.Width, Height: r.Height},
		Threshold:        r.Threshold,
		MaxIterations:    r.MaxIterations,
		DiffThreshold:    r.DiffThreshold,
		MergeDistance:    r.MergeDistance,
		KeepAnimations:   r.KeepAnimations,
		ExcludeSelectors: r.ExcludeSelectors,
		ViewportWidth:    r.ViewportWidth,
		ViewportHeight:   r.ViewportHeight,
	}
	if r.BaselineImage != "" {
		opts.BaselineImage = r.BaselineImage
	}
	if r.ActualImage != "" {
		opts.ActualImage = r.ActualImage
	}
	return opts
}

var imageProperties = map[string]any{
	"url":              map[string]any{"type": "string", "description": "Page URL to capture when no actual image is supplied"},
	"selector":         map[string]any{"type": "string", "description": "CSS selector scoping the comparison to one element"},
	"baselineImage":    map[string]any{"type": "string", "description": "Base64-encoded raw RGBA baseline image"},
	"actualImage":      map[string]any{"type": "string", "description": "Base64-encoded raw RGBA actual image"},
	"width":            map[string]any{"type": "integer", "description": "Image width in pixels"},
	"height":           map[string]any{"type": "integer", "description": "Image height in pixels"},
	"threshold":        map[string]any{"type": "number", "description": "Similarity pass threshold (default 0.95)"},
	"excludeSelectors": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Selectors to hide before capture"},
}

func decodeOptions(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r mcpOptions
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

// logToolCall records who invoked a tool. Transports that enrich the
// context (QUIC sessions, traced HTTP) show up in the attributes; plain
// stdio calls log with empty identity fields elided.
func (e *Engine) logToolCall(ctx context.Context, tool string) {
	attrs := []any{"tool", tool}
	if tr := kit.TransportFrom(ctx); tr != "" {
		attrs = append(attrs, "transport", tr)
	}
	if sid := kit.SessionIDFrom(ctx); sid != "" {
		attrs = append(attrs, "session", sid)
	}
	if addr := kit.RemoteAddrFrom(ctx); addr != "" {
		attrs = append(attrs, "remote", addr)
	}
	e.logger.Debug("mcp: tool call", attrs...)
}

// --- visual_validate ---

func (e *Engine) registerValidateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "visual_validate",
		Description: "Validate an actual screenshot against a baseline: similarity score, classified diff regions, fix suggestions and tasks. Without an actual image, returns the capture instructions to obtain one.",
		InputSchema: kit.InputSchema(imageProperties, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		e.logToolCall(ctx, tool.Name)
		r := req.(*mcpOptions)
		return e.Validate(r.toOptions())
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeOptions)
}

// --- visual_compare ---

func (e *Engine) registerCompareTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "visual_compare",
		Description: "Compare two images directly without the retry loop: page-level, full-viewport, one pass.",
		InputSchema: kit.InputSchema(imageProperties, []string{"baselineImage", "actualImage", "width", "height"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		e.logToolCall(ctx, tool.Name)
		r := req.(*mcpOptions)
		opts := r.toOptions()
		opts.MaxIterations = 1
		return e.ValidatePage(opts)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeOptions)
}

// --- visual_create_baseline ---

func (e *Engine) registerBaselineTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "visual_create_baseline",
		Description: "Create a baseline descriptor from a supplied image, or return the capture instructions for a screenshot named \"baseline\".",
		InputSchema: kit.InputSchema(imageProperties, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		e.logToolCall(ctx, tool.Name)
		r := req.(*mcpOptions)
		b, instrs, err := e.CreateBaseline(r.toOptions())
		if err != nil {
			return nil, err
		}
		if b != nil {
			return b, nil
		}
		return map[string]any{"captureInstructions": instrs}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeOptions)
}
