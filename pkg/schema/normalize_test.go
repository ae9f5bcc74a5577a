package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNilDefinition(t *testing.T) {
	norm := Normalize(nil)
	assert.Equal(t, SchemaV1, norm.Version)
	assert.Empty(t, norm.Nodes)
	assert.Empty(t, norm.Edges)
}

func TestNormalizeVersionSelection(t *testing.T) {
	cases := []struct {
		name    string
		version int
		want    SchemaVersion
	}{
		{"absent", 0, SchemaV1},
		{"one", 1, SchemaV1},
		{"two", 2, SchemaV2},
		{"future", 3, SchemaV1},
		{"negative", -1, SchemaV1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			norm := Normalize(&WorkflowDefinition{SchemaVersion: tc.version})
			assert.Equal(t, tc.want, norm.Version)
		})
	}
}

func TestNormalizeDropsEdgesForV1(t *testing.T) {
	def := &WorkflowDefinition{
		SchemaVersion: 1,
		Nodes:         []DefinitionNode{{ID: "a"}, {ID: "b"}},
		Edges:         []DefinitionEdge{{From: "a", To: "b"}},
	}
	norm := Normalize(def)
	assert.Equal(t, SchemaV1, norm.Version)
	assert.Empty(t, norm.Edges)
}

func TestNormalizeKeepsEdgesForV2(t *testing.T) {
	def := &WorkflowDefinition{
		SchemaVersion: 2,
		Nodes:         []DefinitionNode{{ID: "a"}, {ID: "b"}},
		Edges:         []DefinitionEdge{{From: "a", To: "b"}},
	}
	norm := Normalize(def)
	assert.Equal(t, SchemaV2, norm.Version)
	require.Len(t, norm.Edges, 1)
	assert.Equal(t, "a", norm.Edges[0].From)
}

func TestNormalizeSynthesizesFallbackIDs(t *testing.T) {
	nodes := []DefinitionNode{
		{Type: "manual.trigger"},
		{ID: "review", Type: "human.approval"},
		{Type: "ai.prompt"},
	}
	norm := NormalizeNodes(nodes)

	require.Len(t, norm.Nodes, 3)
	assert.Equal(t, "step_0", norm.Nodes[0].ID)
	assert.Equal(t, "review", norm.Nodes[1].ID)
	assert.Equal(t, "step_2", norm.Nodes[2].ID)

	// Input slice must not be mutated.
	assert.Empty(t, nodes[0].ID)
	assert.Empty(t, nodes[2].ID)
}

func TestNormalizeDocumentArray(t *testing.T) {
	norm := NormalizeDocument([]byte(`[{"id":"a","type":"ai.prompt"},{"type":"human.approval"}]`))
	assert.Equal(t, SchemaV1, norm.Version)
	require.Len(t, norm.Nodes, 2)
	assert.Equal(t, "step_1", norm.Nodes[1].ID)
}

func TestNormalizeDocumentObject(t *testing.T) {
	doc := []byte(`{"schema_version":2,"nodes":[{"id":"a"},{"id":"b"}],"edges":[{"from":"a","to":"b"}]}`)
	norm := NormalizeDocument(doc)
	assert.Equal(t, SchemaV2, norm.Version)
	assert.Len(t, norm.Nodes, 2)
	assert.Len(t, norm.Edges, 1)
}

// One malformed envelope field must not take down the rest of the document.
func TestNormalizeDocumentFieldIsolation(t *testing.T) {
	t.Run("malformed nodes keep version and edges", func(t *testing.T) {
		norm := NormalizeDocument([]byte(`{"schema_version":2,"nodes":42,"edges":[{"from":"a","to":"b"}]}`))
		assert.Equal(t, SchemaV2, norm.Version)
		assert.Empty(t, norm.Nodes)
		require.Len(t, norm.Edges, 1)
		assert.Equal(t, "a", norm.Edges[0].From)
	})

	t.Run("malformed version keeps nodes", func(t *testing.T) {
		norm := NormalizeDocument([]byte(`{"schema_version":"2","nodes":[{"id":"a"}]}`))
		assert.Equal(t, SchemaV1, norm.Version)
		require.Len(t, norm.Nodes, 1)
	})

	t.Run("malformed edges keep version and nodes", func(t *testing.T) {
		norm := NormalizeDocument([]byte(`{"schema_version":2,"nodes":[{"id":"a"}],"edges":"nope"}`))
		assert.Equal(t, SchemaV2, norm.Version)
		require.Len(t, norm.Nodes, 1)
		assert.Empty(t, norm.Edges)
	})
}

func TestNormalizeDocumentMalformed(t *testing.T) {
	for _, raw := range []string{"", "null", "not json", `{"nodes": 42}`, `[{"id": 1}]`} {
		norm := NormalizeDocument([]byte(raw))
		assert.Equal(t, SchemaV1, norm.Version, "input %q", raw)
		assert.Empty(t, norm.Nodes, "input %q", raw)
	}
}
