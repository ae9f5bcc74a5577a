package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuphase/rungraph/pkg/schema"
)

func newValidator(t *testing.T) *DocumentValidator {
	t.Helper()
	v, err := NewDocumentValidator()
	require.NoError(t, err)
	return v
}

func TestValidateDocumentAcceptsV1Array(t *testing.T) {
	v := newValidator(t)
	res := v.ValidateDocument([]byte(`[{"id":"a","type":"ai.prompt"},{"id":"b","type":"human.approval"}]`))
	assert.True(t, res.Valid())
	assert.Empty(t, res.Warnings)
}

func TestValidateDocumentAcceptsV2Object(t *testing.T) {
	v := newValidator(t)
	doc := `{
		"schema_version": 2,
		"nodes": [{"id":"a","type":"dms.ingest"},{"id":"b","type":"human.review"}],
		"edges": [{"from":"a","to":"b"}]
	}`
	res := v.ValidateDocument([]byte(doc))
	assert.True(t, res.Valid())
}

func TestValidateDocumentRejectsNonJSON(t *testing.T) {
	v := newValidator(t)
	res := v.ValidateDocument([]byte("not json at all"))
	assert.False(t, res.Valid())
}

func TestValidateDocumentRejectsUnknownFields(t *testing.T) {
	v := newValidator(t)
	res := v.ValidateDocument([]byte(`{"nodes":[],"bogus":true}`))
	assert.False(t, res.Valid())
}

func TestValidateDocumentWarnsOnDanglingEdge(t *testing.T) {
	v := newValidator(t)
	doc := `{
		"schema_version": 2,
		"nodes": [{"id":"a","type":"ai.prompt"}],
		"edges": [{"from":"a","to":"ghost"}]
	}`
	res := v.ValidateDocument([]byte(doc))
	assert.True(t, res.Valid(), "dangling edges are tolerated, so warning only")
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0].Message, "ghost")
}

func TestValidateDefinitionDuplicateNodeID(t *testing.T) {
	res := ValidateDefinition(schema.NormalizeNodes([]schema.DefinitionNode{
		{ID: "a", Type: "ai.prompt"},
		{ID: "a", Type: "human.review"},
	}))
	assert.False(t, res.Valid())
	assert.Equal(t, schema.ErrCodeConflict, res.Errors[0].Code)
}

func TestValidateDefinitionWarnsOnMissingType(t *testing.T) {
	res := ValidateDefinition(schema.NormalizeNodes([]schema.DefinitionNode{{ID: "a"}}))
	assert.True(t, res.Valid())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "unknown")
}

func TestValidateDefinitionWarnsOnSelfLoop(t *testing.T) {
	res := ValidateDefinition(schema.Normalize(&schema.WorkflowDefinition{
		SchemaVersion: 2,
		Nodes:         []schema.DefinitionNode{{ID: "a", Type: "ai.prompt"}},
		Edges:         []schema.DefinitionEdge{{From: "a", To: "a"}},
	}))
	assert.True(t, res.Valid())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "self-loop")
}
