package render

import (
	"fmt"
	"strings"

	"github.com/docuphase/rungraph/internal/graph"
	"github.com/docuphase/rungraph/pkg/schema"
)

// RenderMermaid renders a built graph as a Mermaid flowchart string.
// Node shapes follow kind, status classes follow the step status, and active
// edges are drawn as thick links.
func RenderMermaid(g *graph.Graph, title string) string {
	var b strings.Builder

	b.WriteString("graph LR\n")
	if title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", title))
	}

	for _, node := range g.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range g.Edges {
		arrow := "-->"
		if edge.Active {
			arrow = "==>"
		}
		b.WriteString(fmt.Sprintf("    %s %s %s\n",
			mermaidSafeID(edge.From), arrow, mermaidSafeID(edge.To)))
	}

	b.WriteString("\n")
	b.WriteString("    classDef succeeded fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef failed fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef running fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef waiting fill:#b7791a,stroke:#8a5c14,color:#fff\n")
	b.WriteString("    classDef pending fill:#6b6b6b,stroke:#4a4a4a,color:#fff\n")
	b.WriteString("    classDef skipped fill:#4a4a4a,stroke:#333,color:#aaa,stroke-dasharray:5 5\n")

	for _, node := range g.Nodes {
		cls := mermaidStatusClass(node.Status)
		if cls != "" {
			b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(node.ID), cls))
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with a kind-based shape.
func mermaidNodeDef(node *graph.Node) string {
	id := mermaidSafeID(node.ID)
	label := node.Label
	if d := FormatDurationMs(node.DurationMs); d != "n/a" {
		label = fmt.Sprintf("%s (%s)", label, d)
	}

	switch node.Kind {
	case graph.NodeKindTrigger:
		return fmt.Sprintf("%s((%q))", id, label)
	case graph.NodeKindCondition:
		return fmt.Sprintf("%s{%q}", id, label)
	case graph.NodeKindHuman, graph.NodeKindManual:
		return fmt.Sprintf("%s([%q])", id, label)
	case graph.NodeKindAI:
		return fmt.Sprintf("%s{{%q}}", id, label)
	case graph.NodeKindTransform:
		return fmt.Sprintf("%s[[%q]]", id, label)
	case graph.NodeKindNotification:
		return fmt.Sprintf("%s>%q]", id, label)
	default: // system, unknown
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID converts a graph node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", ":", "_", " ", "_")
	return r.Replace(id)
}

// mermaidStatusClass maps a step status to a Mermaid class name.
func mermaidStatusClass(status schema.StepStatus) string {
	switch status {
	case schema.StepStatusSucceeded:
		return "succeeded"
	case schema.StepStatusFailed, schema.StepStatusCancelled:
		return "failed"
	case schema.StepStatusRunning:
		return "running"
	case schema.StepStatusWaiting:
		return "waiting"
	case schema.StepStatusPending:
		return "pending"
	case schema.StepStatusSkipped:
		return "skipped"
	default:
		return ""
	}
}
