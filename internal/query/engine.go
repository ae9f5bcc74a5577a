// Package query evaluates user-supplied expressions against graph nodes and
// step payloads. Three engines are available: CEL for typed predicates, expr
// for loosely-typed predicates, and gojq for structural payload selection.
package query

import (
	"context"
	"strings"

	"github.com/docuphase/rungraph/internal/graph"
	"github.com/docuphase/rungraph/pkg/schema"
)

// Engine evaluates an expression against an environment map.
// Implementations cache compiled programs and are safe for concurrent use.
type Engine interface {
	// Name returns the engine identifier ("cel", "expr" or "jq").
	Name() string

	// Evaluate compiles (or reuses) the expression and runs it with data
	// bound as the evaluation environment.
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// NodeEnv builds the evaluation environment for a single graph node. Both
// predicate engines see the same shape under the "node" variable.
func NodeEnv(n *graph.Node) map[string]any {
	node := map[string]any{
		"id":        n.ID,
		"index":     n.Index,
		"node_id":   n.NodeID,
		"node_type": n.NodeType,
		"label":     n.Label,
		"kind":      string(n.Kind),
		"status":    string(n.Status),
	}
	if n.DurationMs != nil {
		node["duration_ms"] = float64(*n.DurationMs)
	}
	return map[string]any{"node": node}
}

// SplitExpression resolves an optional engine prefix ("cel:", "expr:",
// "jq:") and returns the engine name and the bare expression. Expressions
// without a prefix default to CEL.
func SplitExpression(expression string) (engine, body string) {
	for _, name := range []string{"cel", "expr", "jq"} {
		if rest, ok := strings.CutPrefix(expression, name+":"); ok {
			return name, strings.TrimSpace(rest)
		}
	}
	return "cel", strings.TrimSpace(expression)
}

// FilterNodes returns the nodes for which the predicate evaluates to true.
// The predicate must produce a boolean; any other result type is an error.
// The returned slice shares node pointers with the input graph.
func FilterNodes(ctx context.Context, eng Engine, expression string, g *graph.Graph) ([]*graph.Node, error) {
	var out []*graph.Node
	for _, n := range g.Nodes {
		result, err := eng.Evaluate(ctx, expression, NodeEnv(n))
		if err != nil {
			return nil, err
		}
		keep, ok := result.(bool)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeQuery,
				"predicate must return a boolean, got %T", result).WithNode(n.ID)
		}
		if keep {
			out = append(out, n)
		}
	}
	return out, nil
}
