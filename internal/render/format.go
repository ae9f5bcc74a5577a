package render

import (
	"fmt"
	"sort"
	"strconv"
)

// FormatDurationMs formats a millisecond duration for display.
// nil or negative durations render as "n/a".
func FormatDurationMs(ms *int64) string {
	if ms == nil || *ms < 0 {
		return "n/a"
	}
	v := *ms
	switch {
	case v < 1000:
		return fmt.Sprintf("%dms", v)
	case v < 60000:
		return fmt.Sprintf("%.1fs", float64(v)/1000)
	default:
		return fmt.Sprintf("%dm %ds", v/60000, (v%60000)/1000)
	}
}

// Field is one displayable key/value row of a summarized object.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

const (
	defaultSummaryItems = 6
	summaryValueMax     = 120
)

// SummarizeObject produces up to maxItems rows describing an arbitrary
// object's fields for display. Arrays summarize by element count, nested
// objects by field count, scalars stringify with long values truncated.
// Keys are emitted in sorted order so output is deterministic. Pure and
// total; maxItems <= 0 selects the default of 6.
func SummarizeObject(obj map[string]any, maxItems int) []Field {
	if len(obj) == 0 {
		return nil
	}
	if maxItems <= 0 {
		maxItems = defaultSummaryItems
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) > maxItems {
		keys = keys[:maxItems]
	}

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: summarizeValue(obj[k])})
	}
	return fields
}

func summarizeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case []any:
		if len(val) == 1 {
			return "1 item"
		}
		return fmt.Sprintf("%d items", len(val))
	case map[string]any:
		if len(val) == 1 {
			return "1 field"
		}
		return fmt.Sprintf("%d fields", len(val))
	case string:
		return truncateValue(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return truncateValue(fmt.Sprintf("%v", val))
	}
}

// truncateValue caps a value at summaryValueMax characters. The cut is on
// rune boundaries so multibyte input stays valid UTF-8.
func truncateValue(s string) string {
	if len(s) <= summaryValueMax {
		return s
	}
	runes := []rune(s)
	if len(runes) <= summaryValueMax {
		return s
	}
	return string(runes[:summaryValueMax]) + "…"
}
