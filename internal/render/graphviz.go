package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/docuphase/rungraph/internal/graph"
	"github.com/docuphase/rungraph/pkg/schema"
)

// RenderImage renders a built graph as a PNG image using graphviz dot layout.
// Builder positions are advisory and ignored here; dot computes its own.
func RenderImage(g *graph.Graph, title string) ([]byte, error) {
	ctx := context.Background()

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	dot, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("render: create graph: %w", err)
	}
	defer dot.Close()

	dot.SetRankDir(cgraph.LRRank)
	if title != "" {
		dot.SetLabel(title)
	}

	gvNodes := make(map[string]*cgraph.Node, len(g.Nodes))
	for _, node := range g.Nodes {
		gvNode, nErr := dot.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, fmt.Errorf("render: create node %s: %w", node.ID, nErr)
		}
		gvNode.SetLabel(nodeImageLabel(node))
		applyNodeStyle(gvNode, node)
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range g.Edges {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV == nil || toGV == nil {
			continue
		}
		e, eErr := dot.CreateEdgeByName("", fromGV, toGV)
		if eErr != nil {
			continue
		}
		if edge.Active {
			e.SetPenWidth(2.5)
			e.SetColor("#1a5276")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, dot, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: render PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// nodeImageLabel appends the formatted duration to the node label when known.
func nodeImageLabel(node *graph.Node) string {
	if d := FormatDurationMs(node.DurationMs); d != "n/a" {
		return fmt.Sprintf("%s\n%s", node.Label, d)
	}
	return node.Label
}

// applyNodeStyle sets graphviz attributes based on node kind and status.
func applyNodeStyle(gvNode *cgraph.Node, node *graph.Node) {
	switch node.Kind {
	case graph.NodeKindTrigger:
		gvNode.SetShape(cgraph.CircleShape)
		gvNode.SetWidth(0.5)
		gvNode.SetHeight(0.5)
	case graph.NodeKindCondition:
		gvNode.SetShape(cgraph.DiamondShape)
	case graph.NodeKindAI:
		gvNode.SetShape(cgraph.HexagonShape)
	case graph.NodeKindHuman, graph.NodeKindManual:
		gvNode.SetShape(cgraph.EllipseShape)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}

	applyStatusColor(gvNode, node.Status)
}

// applyStatusColor sets fill color and style based on step status.
func applyStatusColor(gvNode *cgraph.Node, status schema.StepStatus) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch status {
	case schema.StepStatusSucceeded:
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case schema.StepStatusFailed, schema.StepStatusCancelled:
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	case schema.StepStatusRunning:
		gvNode.SetFillColor("#1a5276")
		gvNode.SetFontColor("white")
	case schema.StepStatusWaiting:
		gvNode.SetFillColor("#b7791a")
		gvNode.SetFontColor("white")
	case schema.StepStatusSkipped:
		gvNode.SetFillColor("#e8e8e8")
		gvNode.SetFontColor("#888888")
		gvNode.SetStyle(cgraph.DashedNodeStyle)
	case schema.StepStatusPending:
		gvNode.SetFillColor("#d3d3d3")
		gvNode.SetFontColor("black")
	default:
		gvNode.SetFillColor("white")
		gvNode.SetFontColor("black")
	}
}
