package query

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuphase/rungraph/internal/graph"
	"github.com/docuphase/rungraph/pkg/schema"
)

func testGraph() *graph.Graph {
	ms := func(v int64) *int64 { return &v }
	return &graph.Graph{
		Nodes: []*graph.Node{
			{ID: "s0", Index: 0, NodeID: "start", NodeType: "manual.trigger", Label: "Manual Trigger", Kind: graph.NodeKindTrigger, Status: schema.StepStatusSucceeded, DurationMs: ms(10)},
			{ID: "s1", Index: 1, NodeID: "draft", NodeType: "ai.prompt", Label: "AI Prompt", Kind: graph.NodeKindAI, Status: schema.StepStatusFailed, DurationMs: ms(90000)},
			{ID: "def:approve:2", Index: 2, NodeID: "approve", NodeType: "human.approval", Label: "Human Approval", Kind: graph.NodeKindHuman, Status: schema.StepStatusPending},
		},
	}
}

func TestSplitExpression(t *testing.T) {
	tests := []struct {
		in, engine, body string
	}{
		{`node.status == "failed"`, "cel", `node.status == "failed"`},
		{`cel: node.kind == "ai"`, "cel", `node.kind == "ai"`},
		{`expr: node.duration_ms > 1000`, "expr", `node.duration_ms > 1000`},
		{`jq: .documents[].name`, "jq", `.documents[].name`},
	}
	for _, tt := range tests {
		engine, body := SplitExpression(tt.in)
		assert.Equal(t, tt.engine, engine, tt.in)
		assert.Equal(t, tt.body, body, tt.in)
	}
}

func TestCELFilterNodes(t *testing.T) {
	eng, err := NewCELEngine()
	require.NoError(t, err)

	nodes, err := FilterNodes(context.Background(), eng, `node.status == "failed"`, testGraph())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "s1", nodes[0].ID)
}

func TestCELMissingFieldErrorsCleanly(t *testing.T) {
	eng, err := NewCELEngine()
	require.NoError(t, err)

	// Pending nodes carry no duration_ms; map access on a missing key is a
	// runtime error, surfaced as a query error rather than a panic.
	_, err = eng.Evaluate(context.Background(), `node.duration_ms > 1000.0`,
		NodeEnv(testGraph().Nodes[2]))
	require.Error(t, err)
	var gerr *schema.GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, schema.ErrCodeQuery, gerr.Code)
}

func TestCELCompileErrorIsValidation(t *testing.T) {
	eng, err := NewCELEngine()
	require.NoError(t, err)

	_, err = eng.Evaluate(context.Background(), `node.status ==`, map[string]any{})
	var gerr *schema.GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, schema.ErrCodeValidation, gerr.Code)
}

func TestExprFilterGuardsMissingFields(t *testing.T) {
	eng := NewExprEngine()

	// duration_ms is absent on the pending node, so the predicate guards
	// with a key check.
	nodes, err := FilterNodes(context.Background(), eng,
		`"duration_ms" in node && node.duration_ms > 60000`, testGraph())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "s1", nodes[0].ID)
}

func TestExprStringPredicate(t *testing.T) {
	eng := NewExprEngine()
	nodes, err := FilterNodes(context.Background(), eng, `node.kind == "human"`, testGraph())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "def:approve:2", nodes[0].ID)
}

func TestFilterNodesRejectsNonBoolean(t *testing.T) {
	eng := NewExprEngine()
	_, err := FilterNodes(context.Background(), eng, `node.label`, testGraph())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boolean")
}

func TestGoJQSelectFromRaw(t *testing.T) {
	eng := NewGoJQEngine()
	raw := json.RawMessage(`{"documents":[{"name":"contract.pdf"},{"name":"rider.pdf"}]}`)

	results, err := eng.SelectFromRaw(context.Background(), `.documents[].name`, raw)
	require.NoError(t, err)
	assert.Equal(t, []any{"contract.pdf", "rider.pdf"}, results)
}

func TestGoJQNilPayloadIsNull(t *testing.T) {
	eng := NewGoJQEngine()
	results, err := eng.SelectFromRaw(context.Background(), `.`, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, results)
}

func TestGoJQParseError(t *testing.T) {
	eng := NewGoJQEngine()
	_, err := eng.SelectFromRaw(context.Background(), `.[unclosed`, nil)
	var gerr *schema.GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, schema.ErrCodeValidation, gerr.Code)
}

func TestEngineCachesAreConcurrencySafe(t *testing.T) {
	cel, err := NewCELEngine()
	require.NoError(t, err)
	engines := []Engine{cel, NewExprEngine()}

	for _, eng := range engines {
		done := make(chan struct{})
		for i := 0; i < 8; i++ {
			go func() {
				defer func() { done <- struct{}{} }()
				for j := 0; j < 25; j++ {
					_, err := eng.Evaluate(context.Background(), `node.kind == "ai"`,
						NodeEnv(testGraph().Nodes[1]))
					assert.NoError(t, err)
				}
			}()
		}
		for i := 0; i < 8; i++ {
			<-done
		}
	}
}
