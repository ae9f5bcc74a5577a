package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuphase/rungraph/internal/graph"
	"github.com/docuphase/rungraph/pkg/schema"
)

func sampleLiveGraph() *graph.Graph {
	def := schema.NormalizeNodes([]schema.DefinitionNode{
		{ID: "start", Type: "manual.trigger"},
		{ID: "draft", Type: "ai.prompt"},
		{ID: "approve", Type: "human.approval"},
	})
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	steps := []schema.Step{
		{ID: "s0", NodeID: "start", NodeType: "manual.trigger", Status: schema.StepStatusSucceeded, StartedAt: schema.At(start)},
		{ID: "s1", NodeID: "draft", NodeType: "ai.prompt", Status: schema.StepStatusSucceeded,
			StartedAt: schema.At(start.Add(time.Second)), CompletedAt: schema.At(start.Add(3 * time.Second))},
		{ID: "s2", NodeID: "approve", NodeType: "human.approval", Status: schema.StepStatusWaiting,
			StartedAt: schema.At(start.Add(4 * time.Second))},
	}
	return graph.BuildLiveRunGraph(def, steps)
}

func TestRenderMermaidStructure(t *testing.T) {
	out := RenderMermaid(sampleLiveGraph(), "Contract Intake")

	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, "%% Contract Intake")

	// One definition line per node, one line per edge.
	assert.Contains(t, out, `s0(("Manual Trigger"))`)
	assert.Contains(t, out, `s1{{"AI Prompt (2.0s)"}}`)
	assert.Contains(t, out, `s2(["Human Approval"])`)
	assert.Contains(t, out, "s0 --> s1")
}

func TestRenderMermaidActiveEdgeArrow(t *testing.T) {
	out := RenderMermaid(sampleLiveGraph(), "")
	// succeeded draft -> waiting approval renders as a thick link.
	assert.Contains(t, out, "s1 ==> s2")
	assert.NotContains(t, out, "s1 --> s2")
}

func TestRenderMermaidStatusClasses(t *testing.T) {
	out := RenderMermaid(sampleLiveGraph(), "")
	assert.Contains(t, out, "class s0 succeeded")
	assert.Contains(t, out, "class s2 waiting")
}

func TestRenderMermaidSanitizesIDs(t *testing.T) {
	def := schema.NormalizeNodes([]schema.DefinitionNode{{ID: "review", Type: "human.approval"}})
	g := graph.BuildLiveRunGraph(def, nil)
	require.Equal(t, "def:review:0", g.Nodes[0].ID)

	out := RenderMermaid(g, "")
	assert.Contains(t, out, "def_review_0")
	assert.NotContains(t, out, "def:review:0")
}

func TestRenderMermaidEmptyGraph(t *testing.T) {
	out := RenderMermaid(&graph.Graph{}, "")
	assert.Contains(t, out, "graph LR")
}
