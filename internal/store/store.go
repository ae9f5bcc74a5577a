// Package store persists definitions, runs, step records and graph snapshots
// in an embedded libSQL database.
package store

import (
	"context"

	"github.com/docuphase/rungraph/pkg/schema"
)

// Store is the persistence boundary for graph reconciliation inputs and
// rendered outputs.
type Store interface {
	// Definitions.
	SaveDefinition(ctx context.Context, def *Definition) error
	GetDefinition(ctx context.Context, id string) (*Definition, error)
	ListDefinitions(ctx context.Context) ([]*Definition, error)
	DeleteDefinition(ctx context.Context, id string) error

	// Runs.
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRun(ctx context.Context, id string, update RunUpdate) error
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	// Step records. Steps are upserted by id so retry attempts with the same
	// record id overwrite in place while new attempts accumulate.
	UpsertStep(ctx context.Context, runID string, step *schema.Step) error
	ListSteps(ctx context.Context, runID string) ([]schema.Step, error)

	// Snapshots.
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, runID string) ([]*Snapshot, error)

	Close() error
}
