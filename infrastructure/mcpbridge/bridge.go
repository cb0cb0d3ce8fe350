// Package mcpbridge exposes a toolserver.Registry over the Model Context
// Protocol, generalized from the teacher's internal/mcp server (one static
// mcp.NewTool per capability, AddTool bound to a handler method) onto a
// generic tool-dispatch surface: every registered tool gets the same
// wrapper, which forwards its JSON arguments into registry.Dispatch and
// folds the framed Response back into an mcp.CallToolResult.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kodexhq/kodex/infrastructure/toolserver"
)

// toolDescriptions is the static catalogue of MCP-exposed tool names and
// their human-readable descriptions, mirrored from the toolserver.Tool*
// constants. A registry tool with no entry here is still reachable over
// stdio/HTTP but is not bridged to MCP.
var toolDescriptions = map[string]string{
	toolserver.ToolLookup:           "Look up a single unit by identifier.",
	toolserver.ToolSearch:           "Hybrid keyword/vector/graph search over the codebase.",
	toolserver.ToolDependencies:     "List a unit's forward dependencies.",
	toolserver.ToolDependents:       "List a unit's dependents (reverse dependencies).",
	toolserver.ToolStructure:        "Summarize the codebase's structural overview.",
	toolserver.ToolGraphAnalysis:    "Analyze the dependency graph around a unit.",
	toolserver.ToolPageRank:         "Compute PageRank importance scores over the dependency graph.",
	toolserver.ToolFramework:        "Report framework-specific conventions detected in the codebase.",
	toolserver.ToolRecentChanges:    "List units affected by the most recent extraction.",
	toolserver.ToolReload:           "Reload cached structural state from the stores.",
	toolserver.ToolCodebaseRetrieve: "Assemble a token-budgeted context bundle for a query.",
	toolserver.ToolTraceFlow:        "Trace a call/data flow starting from a unit.",
	toolserver.ToolPipelineStatus:   "Report extraction/embedding pipeline health.",
	toolserver.ToolRetrievalRate:    "Report retrieval feedback acceptance rate.",
	toolserver.ToolReportGap:        "Record a retrieval gap for later triage.",
	toolserver.ToolExplain:          "Explain why a result was or wasn't retrieved.",
	toolserver.ToolSuggest:          "Suggest related units for a query.",
}

// Server wraps an mcp-go MCPServer whose tools all forward to the same
// toolserver.Registry.
type Server struct {
	mcpServer *server.MCPServer
	registry  *toolserver.Registry
	logger    *slog.Logger
}

// NewServer builds an MCP server exposing every tool in registry that has a
// description in toolDescriptions.
func NewServer(registry *toolserver.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{registry: registry, logger: logger}

	mcpServer := server.NewMCPServer("kodex", "0.1.0", server.WithToolCapabilities(true))
	for _, name := range orderedNames(registry) {
		desc, ok := toolDescriptions[name]
		if !ok {
			continue
		}
		tool := mcp.NewTool(name,
			mcp.WithDescription(desc),
			mcp.WithString("params",
				mcp.Description("JSON object of tool-specific parameters."),
			),
		)
		mcpServer.AddTool(tool, s.handlerFor(name))
	}
	s.mcpServer = mcpServer
	return s
}

// handlerFor returns the generic forwarding handler for a single tool name,
// closing over it so every tool's mcp.AddTool callback is still a plain
// static function value, not a reflective dispatch.
func (s *Server) handlerFor(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paramsJSON := request.GetString("params", "{}")
		resp := s.registry.Dispatch(ctx, toolserver.Request{
			Tool:   name,
			Params: json.RawMessage(paramsJSON),
		})
		if !resp.Ok {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %s", resp.ErrorType, resp.Error)), nil
		}
		out, err := json.Marshal(resp.Result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

// ServeStdio runs the bridge on stdio until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying mcp-go server, e.g. for a transport this
// package doesn't itself wire up.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func orderedNames(registry *toolserver.Registry) []string {
	names := registry.Names()
	// Stable MCP tool listing: sort by the static catalogue's declaration
	// rather than Names()'s map-iteration order.
	order := []string{
		toolserver.ToolLookup, toolserver.ToolSearch, toolserver.ToolDependencies,
		toolserver.ToolDependents, toolserver.ToolStructure, toolserver.ToolGraphAnalysis,
		toolserver.ToolPageRank, toolserver.ToolFramework, toolserver.ToolRecentChanges,
		toolserver.ToolReload, toolserver.ToolCodebaseRetrieve, toolserver.ToolTraceFlow,
		toolserver.ToolPipelineStatus, toolserver.ToolRetrievalRate, toolserver.ToolReportGap,
		toolserver.ToolExplain, toolserver.ToolSuggest,
	}
	registered := make(map[string]bool, len(names))
	for _, n := range names {
		registered[n] = true
	}
	out := make([]string, 0, len(order))
	for _, n := range order {
		if registered[n] {
			out = append(out, n)
		}
	}
	return out
}
