// Package mcp exposes graph reconciliation over the Model Context Protocol so
// agents can inspect workflow runs without talking SQL.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/docuphase/rungraph/internal/query"
	"github.com/docuphase/rungraph/internal/store"
	"github.com/docuphase/rungraph/internal/validation"
)

// GraphServerDeps holds the dependencies for creating a GraphServer.
type GraphServerDeps struct {
	Store  store.Store
	Logger *slog.Logger
}

// GraphServer wraps an MCP server with graph tool handlers.
type GraphServer struct {
	store     store.Store
	validator *validation.DocumentValidator
	cel       *query.CELEngine
	expr      *query.ExprEngine
	jq        *query.GoJQEngine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewGraphServer creates a GraphServer with all tools registered.
func NewGraphServer(deps GraphServerDeps) (*GraphServer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	validator, err := validation.NewDocumentValidator()
	if err != nil {
		return nil, fmt.Errorf("compile document validator: %w", err)
	}
	cel, err := query.NewCELEngine()
	if err != nil {
		return nil, fmt.Errorf("create CEL engine: %w", err)
	}

	s := &GraphServer{
		store:     deps.Store,
		validator: validator,
		cel:       cel,
		expr:      query.NewExprEngine(),
		jq:        query.NewGoJQEngine(),
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"rungraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Rungraph reconciles workflow definitions with live execution steps into renderable graphs. Use rungraph.definition_graph for the static template, rungraph.run_graph for execution history, rungraph.live_graph for the merged live view, rungraph.classify to inspect a node type, and rungraph.validate to check a definition document."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s, nil
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *GraphServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *GraphServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *GraphServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: definitionGraphTool(), Handler: s.handleDefinitionGraph},
		{Tool: runGraphTool(), Handler: s.handleRunGraph},
		{Tool: liveGraphTool(), Handler: s.handleLiveGraph},
		{Tool: classifyTool(), Handler: s.handleClassify},
		{Tool: validateTool(), Handler: s.handleValidate},
	}
}

// --- Tool definitions ---

func definitionGraphTool() mcp.Tool {
	return mcp.NewTool("rungraph.definition_graph",
		mcp.WithDescription("Build the static template graph for a stored workflow definition"),
		mcp.WithString("definition_id", mcp.Required(), mcp.Description("ID of the stored definition")),
		mcp.WithString("format",
			mcp.Enum("json", "mermaid", "image"),
			mcp.Description("Output format (default: json)"),
		),
	)
}

func runGraphTool() mcp.Tool {
	return mcp.NewTool("rungraph.run_graph",
		mcp.WithDescription("Build the execution-history graph for a run, with every retry attempt as its own node"),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the run")),
		mcp.WithString("select",
			mcp.Description("Optional jq expression applied to each step's output payload; returns the selected values per step instead of the graph"),
		),
		mcp.WithString("format",
			mcp.Enum("json", "mermaid", "image"),
			mcp.Description("Output format (default: json)"),
		),
	)
}

func liveGraphTool() mcp.Tool {
	return mcp.NewTool("rungraph.live_graph",
		mcp.WithDescription("Merge a definition with a run's step records into the live graph"),
		mcp.WithString("definition_id", mcp.Required(), mcp.Description("ID of the stored definition")),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the run")),
		mcp.WithString("filter", mcp.Description("Optional node predicate, e.g. 'node.status == \"failed\"'. Prefix with cel: or expr: to pick the engine")),
		mcp.WithString("format",
			mcp.Enum("json", "mermaid", "image"),
			mcp.Description("Output format (default: json)"),
		),
	)
}

func classifyTool() mcp.Tool {
	return mcp.NewTool("rungraph.classify",
		mcp.WithDescription("Classify a node type into its kind, display label and description"),
		mcp.WithString("node_type", mcp.Required(), mcp.Description("Dotted node type, e.g. 'human.approval'")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("rungraph.validate",
		mcp.WithDescription("Validate a raw definition document against the schema and semantic rules"),
		mcp.WithString("document", mcp.Required(), mcp.Description("Raw definition JSON (v1 array or v2 object)")),
	)
}
