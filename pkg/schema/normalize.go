package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizedDefinition is the uniform view of a definition that the graph
// builder consumes, regardless of which schema generation supplied it.
// Every node has a non-empty ID after normalization.
type NormalizedDefinition struct {
	Version SchemaVersion
	Nodes   []DefinitionNode
	Edges   []DefinitionEdge
}

// Normalize converts a typed definition into the uniform form.
// schema_version must be exactly 2 to select v2; anything else (including
// absent) is treated as v1, and v1 edges are discarded since the v1 contract
// is an implicit linear chain.
func Normalize(def *WorkflowDefinition) NormalizedDefinition {
	if def == nil {
		return NormalizedDefinition{Version: SchemaV1}
	}

	norm := NormalizedDefinition{
		Version: SchemaV1,
		Nodes:   withFallbackIDs(def.Nodes),
	}

	if def.SchemaVersion == 2 {
		norm.Version = SchemaV2
		norm.Edges = append([]DefinitionEdge(nil), def.Edges...)
	}

	return norm
}

// NormalizeNodes treats a bare node list as a legacy v1 definition.
func NormalizeNodes(nodes []DefinitionNode) NormalizedDefinition {
	return NormalizedDefinition{
		Version: SchemaV1,
		Nodes:   withFallbackIDs(nodes),
	}
}

// NormalizeDocument normalizes a raw JSON definition document. A JSON array
// is a v1 node list; an object envelope is read field by field, so one
// malformed field degrades to its zero value without discarding the rest of
// the document. Malformed or empty input degrades to an empty v1 definition,
// never an error.
func NormalizeDocument(raw []byte) NormalizedDefinition {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return NormalizedDefinition{Version: SchemaV1}
	}

	if trimmed[0] == '[' {
		var nodes []DefinitionNode
		if json.Unmarshal(raw, &nodes) != nil {
			return NormalizedDefinition{Version: SchemaV1}
		}
		return NormalizeNodes(nodes)
	}

	var envelope map[string]json.RawMessage
	if json.Unmarshal(raw, &envelope) != nil {
		return NormalizedDefinition{Version: SchemaV1}
	}

	var def WorkflowDefinition
	decodeField(envelope, "schema_version", &def.SchemaVersion)
	decodeField(envelope, "nodes", &def.Nodes)
	decodeField(envelope, "edges", &def.Edges)
	return Normalize(&def)
}

// decodeField decodes one envelope field into dst, leaving dst at its zero
// value when the field is absent or the wrong shape.
func decodeField[T any](envelope map[string]json.RawMessage, key string, dst *T) {
	raw, ok := envelope[key]
	if !ok {
		return
	}
	var v T
	if json.Unmarshal(raw, &v) == nil {
		*dst = v
	}
}

// withFallbackIDs copies the node list, synthesizing step_<n> for nodes with
// no ID. The input slice is never mutated.
func withFallbackIDs(nodes []DefinitionNode) []DefinitionNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]DefinitionNode, len(nodes))
	copy(out, nodes)
	for i := range out {
		if strings.TrimSpace(out[i].ID) == "" {
			out[i].ID = fmt.Sprintf("step_%d", i)
		}
	}
	return out
}
