package store

import (
	"encoding/json"
	"time"
)

// Definition is a stored workflow definition document. The raw document is
// kept verbatim so the normalizer sees exactly what the authoring tool wrote.
type Definition struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Run is one execution of a definition.
type Run struct {
	ID           string     `json:"id"`
	DefinitionID string     `json:"definition_id"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// RunUpdate carries the mutable run fields. Nil fields are left untouched.
type RunUpdate struct {
	Status      *string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	DefinitionID string
	Status       string
	Since        *time.Time
	Limit        int
	Offset       int
}

// Snapshot is a rendered graph captured at a point in time, stored as the
// graph's JSON form plus the format it was rendered in.
type Snapshot struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Title     string          `json:"title,omitempty"`
	Format    string          `json:"format"` // "json", "mermaid" or "png"
	Graph     json.RawMessage `json:"graph"`
	CreatedAt time.Time       `json:"created_at"`
}
