package validation

import (
	"fmt"

	"github.com/docuphase/rungraph/pkg/schema"
)

// ValidateDefinition performs semantic analysis on a normalized definition.
// Everything reported here is tolerated by the graph builder (dangling edges
// are dropped, missing ids synthesized), so most findings are warnings; only
// contradictions that make a document unrenderable as intended are errors.
func ValidateDefinition(def schema.NormalizedDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	nodeIDs := make(map[string]int, len(def.Nodes))
	for i, n := range def.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)

		if first, dup := nodeIDs[n.ID]; dup {
			result.AddError(path+".id", schema.ErrCodeConflict,
				fmt.Sprintf("duplicate node id %q (first at nodes[%d])", n.ID, first))
		} else {
			nodeIDs[n.ID] = i
		}

		if n.Type == "" {
			result.AddWarning(path+".type",
				schema.ErrCodeValidation, "node has no type; it will classify as unknown")
		}
	}

	for i, e := range def.Edges {
		path := fmt.Sprintf("edges[%d]", i)
		if _, ok := nodeIDs[e.From]; !ok {
			result.AddWarning(path+".from", schema.ErrCodeValidation,
				fmt.Sprintf("edge references unknown node %q; it will be dropped", e.From))
		}
		if _, ok := nodeIDs[e.To]; !ok {
			result.AddWarning(path+".to", schema.ErrCodeValidation,
				fmt.Sprintf("edge references unknown node %q; it will be dropped", e.To))
		}
		if e.From == e.To {
			result.AddWarning(path, schema.ErrCodeValidation,
				fmt.Sprintf("edge is a self-loop on %q", e.From))
		}
	}

	return result
}
