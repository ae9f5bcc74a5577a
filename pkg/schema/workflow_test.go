package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", `"2026-03-01T10:00:00Z"`, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"rfc3339_nano", `"2026-03-01T10:00:00.5Z"`, time.Date(2026, 3, 1, 10, 0, 0, 500000000, time.UTC)},
		{"space_separated", `"2026-03-01 10:00:00"`, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"epoch_seconds", `1767225600`, time.Unix(1767225600, 0).UTC()},
		{"epoch_millis", `1767225600000`, time.UnixMilli(1767225600000).UTC()},
		{"null", `null`, time.Time{}},
		{"garbage", `"not a time"`, time.Time{}},
		{"wrong_type", `{"a":1}`, time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &ts))
			assert.True(t, ts.Time.Equal(tc.want), "got %v want %v", ts.Time, tc.want)
		})
	}
}

func TestStepDurationMs(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	step := Step{StartedAt: At(start), CompletedAt: At(start.Add(1500 * time.Millisecond))}
	d := step.DurationMs()
	require.NotNil(t, d)
	assert.Equal(t, int64(1500), *d)

	assert.Nil(t, (&Step{StartedAt: At(start)}).DurationMs())
	assert.Nil(t, (&Step{CompletedAt: At(start)}).DurationMs())
	assert.Nil(t, (&Step{}).DurationMs())
}

func TestStepInputTitle(t *testing.T) {
	assert.Equal(t, "Legal Review", (&Step{Input: json.RawMessage(`{"title":"Legal Review"}`)}).InputTitle())
	assert.Equal(t, "Intake", (&Step{Input: json.RawMessage(`{"name":"Intake","title":""}`)}).InputTitle())
	assert.Empty(t, (&Step{Input: json.RawMessage(`"scalar"`)}).InputTitle())
	assert.Empty(t, (&Step{}).InputTitle())
}

func TestStepStatusPredicates(t *testing.T) {
	for _, s := range []StepStatus{StepStatusSucceeded, StepStatusFailed, StepStatusSkipped, StepStatusCancelled} {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
		assert.False(t, s.InFlight())
	}
	for _, s := range []StepStatus{StepStatusPending, StepStatusRunning, StepStatusWaiting, StepStatus("custom")} {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
	assert.True(t, StepStatusRunning.InFlight())
	assert.True(t, StepStatusWaiting.InFlight())
	assert.False(t, StepStatusPending.InFlight())
}

func TestDefinitionNodeDisplayName(t *testing.T) {
	assert.Equal(t, "Review", (&DefinitionNode{Title: "Review", Name: "other"}).DisplayName())
	assert.Equal(t, "Fallback", (&DefinitionNode{Name: "Fallback"}).DisplayName())
	assert.Empty(t, (&DefinitionNode{Title: "  "}).DisplayName())
}
