package graph

import (
	"strings"
	"time"

	"github.com/docuphase/rungraph/pkg/schema"
)

// Resolved indexes the authoritative execution record per node identity.
type Resolved struct {
	// ByNodeID holds exactly one authoritative step per node_id.
	ByNodeID map[string]*schema.Step
	// ByType is a first-seen-wins fallback index, consulted only when a
	// definition node has no matching node_id in the step list (some backends
	// tagged steps by type only).
	ByType map[string]*schema.Step
}

// ResolveLatest folds the raw step list into one authoritative record per
// node_id. A higher attempt always wins; on equal attempts the record with
// the later activity timestamp wins, and an exact timestamp tie keeps the
// record seen later in input order (the fold keeps the new record on >=).
// Steps without a usable node_id are skipped for the primary map but still
// feed the type index. Never fails; empty input yields empty maps.
func ResolveLatest(steps []schema.Step) Resolved {
	res := Resolved{
		ByNodeID: make(map[string]*schema.Step, len(steps)),
		ByType:   make(map[string]*schema.Step),
	}

	for i := range steps {
		step := &steps[i]

		if t := strings.TrimSpace(step.NodeType); t != "" {
			if _, seen := res.ByType[t]; !seen {
				res.ByType[t] = step
			}
		}

		nodeID := strings.TrimSpace(step.NodeID)
		if nodeID == "" {
			continue
		}

		current, ok := res.ByNodeID[nodeID]
		if !ok || supersedes(step, current) {
			res.ByNodeID[nodeID] = step
		}
	}

	return res
}

// supersedes reports whether candidate should replace current as the
// authoritative record for a shared node_id.
func supersedes(candidate, current *schema.Step) bool {
	if candidate.Attempt != current.Attempt {
		return candidate.Attempt > current.Attempt
	}
	return !activityTime(candidate).Before(activityTime(current))
}

// activityTime is the later of started_at and completed_at.
func activityTime(s *schema.Step) time.Time {
	if s.CompletedAt.After(s.StartedAt.Time) {
		return s.CompletedAt.Time
	}
	return s.StartedAt.Time
}
