package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(v int64) *int64 { return &v }

func TestFormatDurationMs(t *testing.T) {
	cases := []struct {
		name string
		in   *int64
		want string
	}{
		{"nil", nil, "n/a"},
		{"negative", ms(-1), "n/a"},
		{"zero", ms(0), "0ms"},
		{"millis", ms(500), "500ms"},
		{"just_under_a_second", ms(999), "999ms"},
		{"seconds", ms(1500), "1.5s"},
		{"just_under_a_minute", ms(59999), "60.0s"},
		{"minute_one_second", ms(61000), "1m 1s"},
		{"hours_stay_minutes", ms(3723000), "62m 3s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatDurationMs(tc.in))
		})
	}
}

func TestSummarizeObjectShapes(t *testing.T) {
	fields := SummarizeObject(map[string]any{
		"title":    "Contract v3",
		"pages":    []any{1.0, 2.0, 3.0},
		"assignee": map[string]any{"id": "u1", "name": "Reviewer"},
		"priority": 2.0,
		"draft":    true,
		"note":     nil,
	}, 0)

	require.Len(t, fields, 6)
	byKey := make(map[string]string, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f.Value
	}
	assert.Equal(t, "Contract v3", byKey["title"])
	assert.Equal(t, "3 items", byKey["pages"])
	assert.Equal(t, "2 fields", byKey["assignee"])
	assert.Equal(t, "2", byKey["priority"])
	assert.Equal(t, "true", byKey["draft"])
	assert.Equal(t, "null", byKey["note"])
}

func TestSummarizeObjectMaxItems(t *testing.T) {
	obj := map[string]any{"a": 1.0, "b": 2.0, "c": 3.0}
	assert.Len(t, SummarizeObject(obj, 2), 2)
	assert.Len(t, SummarizeObject(obj, 10), 3)
	assert.Nil(t, SummarizeObject(nil, 5))
}

func TestSummarizeObjectDeterministicOrder(t *testing.T) {
	obj := map[string]any{"z": 1.0, "a": 2.0, "m": 3.0}
	first := SummarizeObject(obj, 0)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, SummarizeObject(obj, 0))
	}
	assert.Equal(t, "a", first[0].Key)
	assert.Equal(t, "z", first[2].Key)
}

func TestSummarizeObjectTruncatesLongValues(t *testing.T) {
	long := strings.Repeat("x", 200)
	fields := SummarizeObject(map[string]any{"body": long}, 0)
	require.Len(t, fields, 1)
	assert.Len(t, []rune(fields[0].Value), 121)
	assert.True(t, strings.HasSuffix(fields[0].Value, "…"))
}

// Truncation counts characters, not bytes, and must never split a rune.
func TestSummarizeObjectTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 200) // 400 bytes, 200 runes
	fields := SummarizeObject(map[string]any{"body": long}, 0)
	require.Len(t, fields, 1)
	assert.True(t, utf8.ValidString(fields[0].Value))
	assert.Len(t, []rune(fields[0].Value), 121)
	assert.True(t, strings.HasSuffix(fields[0].Value, "…"))

	// Multibyte values within the character limit pass through untouched.
	short := strings.Repeat("日", 60) // 180 bytes, 60 runes
	fields = SummarizeObject(map[string]any{"body": short}, 0)
	require.Len(t, fields, 1)
	assert.Equal(t, short, fields[0].Value)
}
