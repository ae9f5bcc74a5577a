package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docuphase/rungraph/pkg/schema"
)

// Layout constants for the advisory zig-zag positioning.
const (
	layoutXStart = 80
	layoutXStep  = 290
	layoutYEven  = 90
	layoutYOdd   = 290
)

// Step types that exist only as UI run markers. They never become runtime
// graph nodes when their node_id has no definition counterpart.
var runMarkerTypes = map[string]bool{
	"manual.trigger": true,
	"chat.trigger":   true,
}

// layoutPosition computes the deterministic zig-zag position for a node index.
func layoutPosition(index int) Position {
	y := float64(layoutYEven)
	if index%2 == 1 {
		y = layoutYOdd
	}
	return Position{X: float64(layoutXStart + index*layoutXStep), Y: y}
}

// BuildDefinitionGraph renders a template with no execution state attached.
// Use it for the definition preview, before any run exists.
func BuildDefinitionGraph(def schema.NormalizedDefinition) *Graph {
	g := &Graph{Nodes: make([]*Node, 0, len(def.Nodes))}

	for i := range def.Nodes {
		dn := def.Nodes[i]
		cls := Classify(dn.Type)

		label := dn.DisplayName()
		if label == "" {
			label = cls.Label
		}

		g.Nodes = append(g.Nodes, &Node{
			ID:         fmt.Sprintf("%s__%d", dn.ID, i),
			Index:      i,
			NodeID:     dn.ID,
			NodeType:   dn.Type,
			Label:      label,
			Kind:       cls.Kind,
			Position:   layoutPosition(i),
			Definition: &def.Nodes[i],
		})
	}

	if def.Version == schema.SchemaV2 {
		g.Edges = definitionEdges(def.Edges, g.Nodes)
	} else {
		g.Edges = chainEdges(g.Nodes, false)
	}

	return g
}

// BuildRunGraph renders a run's raw step list with no definition. Every step
// record becomes a node, retries included, so all attempts stay inspectable.
func BuildRunGraph(steps []schema.Step) *Graph {
	ordered := make([]schema.Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return sortTime(&ordered[i]).Before(sortTime(&ordered[j]))
	})

	g := &Graph{Nodes: make([]*Node, 0, len(ordered))}
	for i := range ordered {
		step := &ordered[i]
		cls := Classify(step.NodeType)

		label := step.InputTitle()
		if label == "" {
			label = cls.Label
		}

		g.Nodes = append(g.Nodes, &Node{
			ID:         stepGraphID(step, fmt.Sprintf("runtime:%d", i)),
			Index:      i,
			NodeID:     step.NodeID,
			NodeType:   step.NodeType,
			Label:      label,
			Kind:       cls.Kind,
			Status:     statusOrPending(step.Status),
			DurationMs: step.DurationMs(),
			Position:   layoutPosition(i),
			Step:       step,
		})
	}

	g.Edges = chainEdges(g.Nodes, true)
	return g
}

// BuildLiveRunGraph merges a definition with the run's reconciled step list.
// This is the polling entry point: output is element-for-element identical
// across calls for identical input, so re-rendering never flickers.
func BuildLiveRunGraph(def schema.NormalizedDefinition, steps []schema.Step) *Graph {
	res := ResolveLatest(steps)

	defNodeIDs := make(map[string]bool, len(def.Nodes))
	for _, dn := range def.Nodes {
		defNodeIDs[dn.ID] = true
	}

	g := &Graph{Nodes: make([]*Node, 0, len(def.Nodes))}
	claimed := make(map[*schema.Step]bool)

	// Template-backed nodes first, in template order.
	for i := range def.Nodes {
		dn := def.Nodes[i]

		step := res.ByNodeID[dn.ID]
		if step == nil {
			step = res.ByType[dn.Type]
		}
		if step != nil {
			claimed[step] = true
		}

		// Prefer the type the executed step reported: definitions may declare
		// an abstract type while the concrete step is more specific.
		nodeType := dn.Type
		if step != nil && strings.TrimSpace(step.NodeType) != "" {
			nodeType = step.NodeType
		}
		cls := Classify(nodeType)

		label := dn.DisplayName()
		if label == "" && step != nil {
			label = step.InputTitle()
		}
		if label == "" {
			label = cls.Label
		}

		node := &Node{
			ID:         fmt.Sprintf("def:%s:%d", dn.ID, i),
			Index:      i,
			NodeID:     dn.ID,
			NodeType:   nodeType,
			Label:      label,
			Kind:       cls.Kind,
			Status:     schema.StepStatusPending,
			Position:   layoutPosition(i),
			Definition: &def.Nodes[i],
		}
		if step != nil {
			if step.ID != "" {
				node.ID = step.ID
			}
			node.Status = statusOrPending(step.Status)
			node.DurationMs = step.DurationMs()
			node.Step = step
		}

		g.Nodes = append(g.Nodes, node)
	}

	// Runtime-only nodes: reconciled steps whose node_id has no definition
	// counterpart, e.g. a dynamically inserted legal-review task. Run markers
	// are excluded; they never render as runtime nodes.
	appendRuntimeNodes(g, res, defNodeIDs, claimed)

	if def.Version == schema.SchemaV2 {
		// Runtime-only nodes have no declared position in the template graph,
		// so explicit edges never connect them.
		g.Edges = definitionEdges(def.Edges, g.Nodes)
	} else {
		g.Edges = chainEdges(g.Nodes, true)
	}

	return g
}

// appendRuntimeNodes emits unmatched reconciled steps after all template
// nodes, ordered by (started_at, completed_at) ascending.
func appendRuntimeNodes(g *Graph, res Resolved, defNodeIDs map[string]bool, claimed map[*schema.Step]bool) {
	var extras []*schema.Step
	for nodeID, step := range res.ByNodeID {
		if defNodeIDs[nodeID] || claimed[step] || runMarkerTypes[strings.TrimSpace(step.NodeType)] {
			continue
		}
		extras = append(extras, step)
	}

	sort.Slice(extras, func(i, j int) bool {
		a, b := extras[i], extras[j]
		if !a.StartedAt.Equal(b.StartedAt.Time) {
			return a.StartedAt.Before(b.StartedAt.Time)
		}
		if !a.CompletedAt.Equal(b.CompletedAt.Time) {
			return a.CompletedAt.Before(b.CompletedAt.Time)
		}
		if a.NodeID != b.NodeID {
			return a.NodeID < b.NodeID
		}
		return a.ID < b.ID
	})

	for _, step := range extras {
		i := len(g.Nodes)
		cls := Classify(step.NodeType)

		label := step.InputTitle()
		if label == "" {
			label = cls.Label
		}

		g.Nodes = append(g.Nodes, &Node{
			ID:         stepGraphID(step, fmt.Sprintf("runtime:%d", i)),
			Index:      i,
			NodeID:     step.NodeID,
			NodeType:   step.NodeType,
			Label:      label,
			Kind:       cls.Kind,
			Status:     statusOrPending(step.Status),
			DurationMs: step.DurationMs(),
			Position:   layoutPosition(i),
			Step:       step,
		})
	}
}

// definitionEdges maps a v2 edge list onto graph node IDs. Edges referencing
// unknown nodes are dropped; missing edge IDs get a stable (from, to, ordinal)
// fallback, and colliding IDs are suffixed to uniqueness.
func definitionEdges(defEdges []schema.DefinitionEdge, nodes []*Node) []Edge {
	byNodeID := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		if n.NodeID != "" && byNodeID[n.NodeID] == nil {
			byNodeID[n.NodeID] = n
		}
	}

	edges := make([]Edge, 0, len(defEdges))
	seen := make(map[string]bool, len(defEdges))

	for i, de := range defEdges {
		from, to := byNodeID[de.From], byNodeID[de.To]
		if from == nil || to == nil {
			continue
		}

		id := de.ID
		if id == "" {
			id = fmt.Sprintf("%s__%s__%d", de.From, de.To, i)
		}
		for n := 2; seen[id]; n++ {
			id = fmt.Sprintf("%s_%d", de.ID, n)
			if de.ID == "" {
				id = fmt.Sprintf("%s__%s__%d_%d", de.From, de.To, i, n)
			}
		}
		seen[id] = true

		edges = append(edges, Edge{
			ID:     id,
			From:   from.ID,
			To:     to.ID,
			Active: edgeActive(from, to),
		})
	}

	return edges
}

// chainEdges connects consecutive nodes into a linear chain.
func chainEdges(nodes []*Node, withActivity bool) []Edge {
	if len(nodes) < 2 {
		return nil
	}
	edges := make([]Edge, 0, len(nodes)-1)
	for i := 0; i < len(nodes)-1; i++ {
		from, to := nodes[i], nodes[i+1]
		edge := Edge{
			ID:   fmt.Sprintf("chain:%d", i),
			From: from.ID,
			To:   to.ID,
		}
		if withActivity {
			edge.Active = edgeActive(from, to)
		}
		edges = append(edges, edge)
	}
	return edges
}

// edgeActive marks an in-flight transition: upstream finished, downstream
// currently running or waiting.
func edgeActive(from, to *Node) bool {
	return from.Status.Terminal() && to.Status.InFlight()
}

// stepGraphID prefers the step's own ID, falling back to a synthetic one.
func stepGraphID(step *schema.Step, fallback string) string {
	if step.ID != "" {
		return step.ID
	}
	return fallback
}

// statusOrPending defaults an empty status to pending.
func statusOrPending(s schema.StepStatus) schema.StepStatus {
	if strings.TrimSpace(string(s)) == "" {
		return schema.StepStatusPending
	}
	return s
}

// sortTime orders run-graph steps: started_at with created_at as fallback.
// Zero values sort first.
func sortTime(s *schema.Step) time.Time {
	if !s.StartedAt.IsZero() {
		return s.StartedAt.Time
	}
	return s.CreatedAt.Time
}
