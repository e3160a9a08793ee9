// Package mcp exposes trace stack layout and span details as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tracestack/internal/orchestrator"
	"tracestack/internal/stack"
)

// Server binds orchestrator operations to MCP tool handlers.
type Server struct {
	orchestrator *orchestrator.Orchestrator
}

// New creates a new MCP server wrapper
func New(orch *orchestrator.Orchestrator) *Server {
	return &Server{
		orchestrator: orch,
	}
}

// RegisterTools registers the tracestack tools with the MCP server
func (s *Server) RegisterTools(mcpServer *server.MCPServer) {
	stackTool := mcp.NewTool("get_trace_stack",
		mcp.WithDescription("Lays out a trace as a time-scaled span stack and returns bars, connectors and axis ticks as JSON."),
		mcp.WithString("trace_id", mcp.Required(), mcp.Description("ID of the trace to lay out")),
		mcp.WithNumber("width", mcp.Description("Drawing width in pixels; defaults to the configured width")),
	)
	mcpServer.AddTool(stackTool, s.HandleGetTraceStack)

	detailTool := mcp.NewTool("get_span_detail",
		mcp.WithDescription("Returns tags, logs and related traces of one span."),
		mcp.WithString("trace_id", mcp.Required(), mcp.Description("ID of the trace")),
		mcp.WithString("span_key", mcp.Required(), mcp.Description("Span key in the form <segmentId>,<spanId>")),
	)
	mcpServer.AddTool(detailTool, s.HandleGetSpanDetail)

	searchTool := mcp.NewTool("find_traces",
		mcp.WithDescription("Lists recent traces of a service."),
		mcp.WithString("service_name", mcp.Required(), mcp.Description("Name of the service")),
		mcp.WithString("lookback", mcp.Description("How far back to search, e.g. 15m or 2h; defaults to 1h")),
	)
	mcpServer.AddTool(searchTool, s.HandleFindTraces)
}

// HandleGetTraceStack returns the layout of a trace as JSON text
func (s *Server) HandleGetTraceStack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	traceID := request.GetString("trace_id", "")
	if traceID == "" {
		return mcp.NewToolResultError("trace_id is required"), nil
	}
	width := request.GetFloat("width", 0)
	if width != 0 && !stack.ValidWidth(width) {
		return mcp.NewToolResultError("width must be a positive number"), nil
	}

	layout, err := s.orchestrator.LayoutTrace(ctx, traceID, width)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to lay out trace: %v", err)), nil
	}
	return jsonResult(layout)
}

// HandleGetSpanDetail returns the detail projection of one span
func (s *Server) HandleGetSpanDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	traceID := request.GetString("trace_id", "")
	spanKey := request.GetString("span_key", "")
	if traceID == "" || !strings.Contains(spanKey, ",") {
		return mcp.NewToolResultError("trace_id and span_key (<segmentId>,<spanId>) are required"), nil
	}

	detail, err := s.orchestrator.SpanDetail(ctx, traceID, stack.Identity(spanKey))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load span: %v", err)), nil
	}

	var b strings.Builder
	for _, f := range detail.Fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Label, f.Value)
	}
	for _, l := range detail.Logs {
		fmt.Fprintf(&b, "\nlog @ %s\n", l.Label)
		for _, f := range l.Fields {
			fmt.Fprintf(&b, "  %s: %s\n", f.Label, f.Value)
		}
	}
	if detail.Related != nil {
		b.WriteString("\nrelated traces:\n")
		for _, r := range detail.Related {
			fmt.Fprintf(&b, "- %s %s\n", r.Type, r.TraceID)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// HandleFindTraces lists recent traces of a service
func (s *Server) HandleFindTraces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service := request.GetString("service_name", "")
	if service == "" {
		return mcp.NewToolResultError("service_name is required"), nil
	}
	lookback, err := time.ParseDuration(request.GetString("lookback", "1h"))
	if err != nil || lookback <= 0 {
		return mcp.NewToolResultError("lookback must be a positive duration"), nil
	}

	traces, err := s.orchestrator.SearchTraces(ctx, service, lookback)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(traces) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No traces found for %s in the last %s.", service, lookback)), nil
	}

	report := fmt.Sprintf("Traces for %s:\n", service)
	for _, t := range traces {
		report += fmt.Sprintf("- %s %s (%dms, error=%t)\n", strings.Join(t.TraceIDs, ","), t.OperationName, t.Duration, t.IsError)
	}
	return mcp.NewToolResultText(report), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
