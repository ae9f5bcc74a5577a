package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuphase/rungraph/internal/graph"
	"github.com/docuphase/rungraph/pkg/schema"
)

func TestRenderImageLiveGraph(t *testing.T) {
	png, err := RenderImage(sampleLiveGraph(), "Contract Intake")
	require.NoError(t, err)
	require.NotEmpty(t, png)

	// PNG magic bytes: 0x89 P N G.
	assert.True(t, len(png) > 8, "PNG should be larger than header")
	assert.Equal(t, byte(0x89), png[0])
	assert.Equal(t, byte('P'), png[1])
	assert.Equal(t, byte('N'), png[2])
	assert.Equal(t, byte('G'), png[3])
}

func TestRenderImageDefinitionOnly(t *testing.T) {
	g := graph.BuildDefinitionGraph(schema.NormalizeNodes([]schema.DefinitionNode{
		{ID: "a", Type: "dms.ingest"},
		{ID: "b", Type: "condition.branch"},
	}))

	png, err := RenderImage(g, "")
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.Equal(t, byte(0x89), png[0])
}
