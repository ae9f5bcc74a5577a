package schema

import (
	"encoding/json"
	"strings"
	"time"
)

// SchemaVersion identifies the definition document generation.
// v1 documents are a bare JSON array of nodes with an implicit linear chain;
// v2 documents are an object carrying schema_version: 2 plus explicit edges.
type SchemaVersion int

const (
	SchemaV1 SchemaVersion = 1
	SchemaV2 SchemaVersion = 2
)

// WorkflowDefinition is the static template for a workflow type.
type WorkflowDefinition struct {
	SchemaVersion int              `json:"schema_version,omitempty"`
	Nodes         []DefinitionNode `json:"nodes"`
	Edges         []DefinitionEdge `json:"edges,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
}

// DefinitionNode is one template step.
// ID may be absent in legacy documents; the normalizer synthesizes a
// positional fallback (step_<n>) rather than rejecting the node.
type DefinitionNode struct {
	ID       string          `json:"id,omitempty"`
	Type     string          `json:"type,omitempty"` // dotted namespace, e.g. "ai.prompt", "human.approval"
	Title    string          `json:"title,omitempty"`
	Name     string          `json:"name,omitempty"`
	Output   string          `json:"output,omitempty"`
	Assignee *Assignee       `json:"assignee,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// DisplayName returns the explicit title or name override, if any.
func (n *DefinitionNode) DisplayName() string {
	if t := strings.TrimSpace(n.Title); t != "" {
		return t
	}
	return strings.TrimSpace(n.Name)
}

// Assignee describes who a human node is routed to.
type Assignee struct {
	Kind string `json:"kind,omitempty"` // user | role | group
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// DefinitionEdge is an explicit connection between two template nodes (v2 only).
type DefinitionEdge struct {
	ID   string `json:"id,omitempty"`
	From string `json:"from"`
	To   string `json:"to"`
}

// StepStatus is the lifecycle state of an execution step. The wire value is
// free-form; the constants below are the canonical set.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusWaiting   StepStatus = "waiting"
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
	StepStatusCancelled StepStatus = "cancelled"
)

// Terminal reports whether the step has finished, for better or worse.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepStatusSucceeded, StepStatusFailed, StepStatusSkipped, StepStatusCancelled:
		return true
	}
	return false
}

// InFlight reports whether the step is currently executing or blocked on a signal.
func (s StepStatus) InFlight() bool {
	return s == StepStatusRunning || s == StepStatusWaiting
}

// Step is one observed execution attempt of a node during a run.
// A node may appear multiple times with increasing attempt numbers (retries).
type Step struct {
	ID          string          `json:"id"`
	RunID       string          `json:"run_id,omitempty"`
	NodeID      string          `json:"node_id,omitempty"`
	NodeType    string          `json:"node_type,omitempty"`
	Status      StepStatus      `json:"status,omitempty"`
	Attempt     int             `json:"attempt,omitempty"`
	StartedAt   Timestamp       `json:"started_at,omitempty"`
	CompletedAt Timestamp       `json:"completed_at,omitempty"`
	CreatedAt   Timestamp       `json:"created_at,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       json.RawMessage `json:"error,omitempty"`
}

// InputTitle digs a title or name out of the captured input payload.
// Legacy backends stored the display name there instead of on the definition.
func (s *Step) InputTitle() string {
	if len(s.Input) == 0 {
		return ""
	}
	var probe struct {
		Title string `json:"title"`
		Name  string `json:"name"`
	}
	if json.Unmarshal(s.Input, &probe) != nil {
		return ""
	}
	if t := strings.TrimSpace(probe.Title); t != "" {
		return t
	}
	return strings.TrimSpace(probe.Name)
}

// DurationMs returns completed_at - started_at in milliseconds, or nil when
// either timestamp is missing or unparseable.
func (s *Step) DurationMs() *int64 {
	if s.StartedAt.IsZero() || s.CompletedAt.IsZero() {
		return nil
	}
	ms := s.CompletedAt.Sub(s.StartedAt.Time).Milliseconds()
	return &ms
}

// Timestamp is a JSON timestamp that tolerates the formats observed in the
// wild: RFC 3339 (with or without sub-seconds), "2006-01-02 15:04:05", and
// numeric epoch seconds or milliseconds. Anything unparseable decodes to the
// zero value instead of failing the whole document.
type Timestamp struct {
	time.Time
}

// At wraps a time.Time in a Timestamp. Convenience for tests and fixtures.
func At(t time.Time) Timestamp { return Timestamp{Time: t} }

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	if s[0] == '"' {
		var str string
		if json.Unmarshal(data, &str) != nil {
			t.Time = time.Time{}
			return nil
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, str); err == nil {
				t.Time = parsed
				return nil
			}
		}
		t.Time = time.Time{}
		return nil
	}

	var n float64
	if json.Unmarshal(data, &n) != nil {
		t.Time = time.Time{}
		return nil
	}
	// Heuristic: values past ~33658 AD in seconds are milliseconds.
	if n > 1e12 {
		t.Time = time.UnixMilli(int64(n)).UTC()
	} else {
		t.Time = time.Unix(int64(n), 0).UTC()
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
