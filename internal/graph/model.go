package graph

import "github.com/docuphase/rungraph/pkg/schema"

// NodeKind is the semantic category a node is classified into.
// Rendering picks shapes and colors from this, never from the raw type string.
type NodeKind string

const (
	NodeKindTrigger      NodeKind = "trigger"
	NodeKindManual       NodeKind = "manual"
	NodeKindHuman        NodeKind = "human"
	NodeKindAI           NodeKind = "ai"
	NodeKindSystem       NodeKind = "system"
	NodeKindCondition    NodeKind = "condition"
	NodeKindTransform    NodeKind = "transform"
	NodeKindNotification NodeKind = "notification"
	NodeKindUnknown      NodeKind = "unknown"
)

// Position is an advisory layout hint. Consumers may replace it with a real
// layout algorithm.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one renderable node of a built graph. Rebuilt from scratch on every
// builder call; never mutated in place.
type Node struct {
	ID         string            `json:"id"`
	Index      int               `json:"index"`
	NodeID     string            `json:"node_id,omitempty"`
	NodeType   string            `json:"node_type,omitempty"`
	Label      string            `json:"label"`
	Kind       NodeKind          `json:"kind"`
	Status     schema.StepStatus `json:"status,omitempty"`
	DurationMs *int64            `json:"duration_ms,omitempty"`
	Position   Position          `json:"position"`

	// References back to the inputs, for inspection and debugging.
	Definition *schema.DefinitionNode `json:"definition,omitempty"`
	Step       *schema.Step           `json:"step,omitempty"`
}

// Edge is a directed connection between two graph nodes. Active marks an
// in-flight transition: the upstream node reached a terminal status and the
// downstream node is running or waiting.
type Edge struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Active bool   `json:"active"`
}

// Graph is the builder output consumed by the rendering layer.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
}
