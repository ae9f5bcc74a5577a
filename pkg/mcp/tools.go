package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docuphase/rungraph/internal/graph"
	"github.com/docuphase/rungraph/internal/logging"
	"github.com/docuphase/rungraph/internal/query"
	"github.com/docuphase/rungraph/internal/render"
	"github.com/docuphase/rungraph/pkg/schema"
)

// handleDefinitionGraph builds the template-only graph for a definition.
func (s *GraphServer) handleDefinitionGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	definitionID, err := req.RequireString("definition_id")
	if err != nil {
		return mcp.NewToolResultError("definition_id is required"), nil
	}
	format := req.GetString("format", "json")

	ctx = logging.WithDefinitionID(ctx, definitionID)
	def, loadErr := s.store.GetDefinition(ctx, definitionID)
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("definition lookup failed: %v", loadErr)), nil
	}

	g := graph.BuildDefinitionGraph(schema.NormalizeDocument(def.Document))
	s.logger.InfoContext(ctx, "definition graph built", "nodes", len(g.Nodes))
	return s.renderGraph(g, def.Name, format)
}

// handleRunGraph builds the execution-history graph for a run.
func (s *GraphServer) handleRunGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id is required"), nil
	}
	format := req.GetString("format", "json")

	ctx = logging.WithRunID(ctx, runID)
	steps, loadErr := s.store.ListSteps(ctx, runID)
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("step lookup failed: %v", loadErr)), nil
	}

	if selectExpr := req.GetString("select", ""); selectExpr != "" {
		return s.selectStepPayloads(ctx, selectExpr, steps)
	}

	g := graph.BuildRunGraph(steps)
	s.logger.InfoContext(ctx, "run graph built", "nodes", len(g.Nodes))
	return s.renderGraph(g, runID, format)
}

// handleLiveGraph merges a definition with a run's step records.
func (s *GraphServer) handleLiveGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	definitionID, err := req.RequireString("definition_id")
	if err != nil {
		return mcp.NewToolResultError("definition_id is required"), nil
	}
	runID, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id is required"), nil
	}
	filter := req.GetString("filter", "")
	format := req.GetString("format", "json")

	ctx = logging.WithIDs(ctx, definitionID, runID, "")
	def, loadErr := s.store.GetDefinition(ctx, definitionID)
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("definition lookup failed: %v", loadErr)), nil
	}
	steps, stepsErr := s.store.ListSteps(ctx, runID)
	if stepsErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("step lookup failed: %v", stepsErr)), nil
	}

	g := graph.BuildLiveRunGraph(schema.NormalizeDocument(def.Document), steps)

	if filter != "" {
		filtered, filterErr := s.filterGraph(ctx, filter, g)
		if filterErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("filter failed: %v", filterErr)), nil
		}
		g = filtered
	}

	s.logger.InfoContext(ctx, "live graph built", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return s.renderGraph(g, def.Name, format)
}

// handleClassify returns the classification for a node type.
func (s *GraphServer) handleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeType, err := req.RequireString("node_type")
	if err != nil {
		return mcp.NewToolResultError("node_type is required"), nil
	}
	return marshalResult(graph.Classify(nodeType))
}

// handleValidate runs schema plus semantic validation over a raw document.
func (s *GraphServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError("document is required"), nil
	}
	result := s.validator.ValidateDocument([]byte(document))
	return marshalResult(map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

// selectStepPayloads runs a jq program over each step's output payload and
// returns the selected values keyed by step. Steps without output evaluate
// against null; programs that must tolerate that use the ? operator.
func (s *GraphServer) selectStepPayloads(ctx context.Context, expression string, steps []schema.Step) (*mcp.CallToolResult, error) {
	type selection struct {
		StepID string `json:"step_id"`
		NodeID string `json:"node_id,omitempty"`
		Values []any  `json:"values"`
	}

	out := make([]selection, 0, len(steps))
	for i := range steps {
		values, err := s.jq.SelectFromRaw(ctx, expression, steps[i].Output)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("jq selection failed: %v", err)), nil
		}
		out = append(out, selection{StepID: steps[i].ID, NodeID: steps[i].NodeID, Values: values})
	}
	return marshalResult(out)
}

// filterGraph evaluates the node predicate and keeps only the matching nodes
// plus the edges between them.
func (s *GraphServer) filterGraph(ctx context.Context, expression string, g *graph.Graph) (*graph.Graph, error) {
	engineName, body := query.SplitExpression(expression)

	var eng query.Engine
	switch engineName {
	case "cel":
		eng = s.cel
	case "expr":
		eng = s.expr
	default:
		return nil, schema.NewErrorf(schema.ErrCodeQuery, "engine %q cannot filter nodes", engineName)
	}

	nodes, err := query.FilterNodes(ctx, eng, body, g)
	if err != nil {
		return nil, err
	}

	kept := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		kept[n.ID] = true
	}
	filtered := &graph.Graph{Nodes: nodes}
	for _, e := range g.Edges {
		if kept[e.From] && kept[e.To] {
			filtered.Edges = append(filtered.Edges, e)
		}
	}
	return filtered, nil
}

// renderGraph serializes a graph in the requested format.
func (s *GraphServer) renderGraph(g *graph.Graph, title, format string) (*mcp.CallToolResult, error) {
	switch format {
	case "", "json":
		return marshalResult(g)
	case "mermaid":
		return mcp.NewToolResultText(render.RenderMermaid(g, title)), nil
	case "image":
		png, err := render.RenderImage(g, title)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", err)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	default:
		return mcp.NewToolResultError("unsupported format"), nil
	}
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
