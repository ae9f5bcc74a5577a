package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/docuphase/rungraph/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Definitions ---

func (s *LibSQLStore) SaveDefinition(ctx context.Context, def *Definition) error {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if len(def.Document) == 0 {
		return schema.NewError(schema.ErrCodeValidation, "definition document is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO definitions (id, name, document, created_at, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, document=excluded.document, updated_at=CURRENT_TIMESTAMP`,
		def.ID, nullStr(def.Name), string(def.Document), timeOrNow(def.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) GetDefinition(ctx context.Context, id string) (*Definition, error) {
	d := &Definition{}
	var name sql.NullString
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, document, created_at, updated_at FROM definitions WHERE id = ?`, id,
	).Scan(&d.ID, &name, &doc, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("definition", id)
	}
	if err != nil {
		return nil, err
	}
	d.Name = name.String
	d.Document = json.RawMessage(doc)
	return d, nil
}

func (s *LibSQLStore) ListDefinitions(ctx context.Context) ([]*Definition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, document, created_at, updated_at FROM definitions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*Definition
	for rows.Next() {
		d := &Definition{}
		var name sql.NullString
		var doc string
		if err := rows.Scan(&d.ID, &name, &doc, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Name = name.String
		d.Document = json.RawMessage(doc)
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (s *LibSQLStore) DeleteDefinition(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM definitions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "definition", id)
}

// --- Runs ---

func (s *LibSQLStore) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = string(schema.StepStatusPending)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, definition_id, status, created_at, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.DefinitionID, run.Status,
		timeOrNow(run.CreatedAt), nullTime(run.StartedAt), nullTime(run.CompletedAt),
	)
	return err
}

func (s *LibSQLStore) GetRun(ctx context.Context, id string) (*Run, error) {
	r := &Run{}
	var startedAt, completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, definition_id, status, created_at, started_at, completed_at FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.DefinitionID, &r.Status, &r.CreatedAt, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("run", id)
	}
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		r.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	return r, nil
}

func (s *LibSQLStore) UpdateRun(ctx context.Context, id string, update RunUpdate) error {
	var sets []string
	var args []any

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
	}
	if update.StartedAt != nil {
		sets = append(sets, "started_at = ?")
		args = append(args, *update.StartedAt)
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *update.CompletedAt)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE runs SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "run", id)
}

func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	var where []string
	var args []any

	if filter.DefinitionID != "" {
		where = append(where, "definition_id = ?")
		args = append(args, filter.DefinitionID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT id, definition_id, status, created_at, started_at, completed_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var startedAt, completedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.DefinitionID, &r.Status, &r.CreatedAt, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		if startedAt.Valid {
			r.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			r.CompletedAt = &completedAt.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- Steps ---

func (s *LibSQLStore) UpsertStep(ctx context.Context, runID string, step *schema.Step) error {
	if step.ID == "" {
		step.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO steps (id, run_id, node_id, node_type, status, attempt, started_at, completed_at, created_at, input, output, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   node_id=excluded.node_id, node_type=excluded.node_type, status=excluded.status,
		   attempt=excluded.attempt, started_at=excluded.started_at, completed_at=excluded.completed_at,
		   input=excluded.input, output=excluded.output, error=excluded.error`,
		step.ID, runID, nullStr(step.NodeID), nullStr(step.NodeType), string(step.Status), step.Attempt,
		nullStamp(step.StartedAt), nullStamp(step.CompletedAt), nullStamp(step.CreatedAt),
		nullRaw(step.Input), nullRaw(step.Output), nullRaw(step.Error),
	)
	return err
}

func (s *LibSQLStore) ListSteps(ctx context.Context, runID string) ([]schema.Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, node_id, node_type, status, attempt, started_at, completed_at, created_at, input, output, error
		 FROM steps WHERE run_id = ? ORDER BY created_at, id`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []schema.Step
	for rows.Next() {
		var st schema.Step
		var nodeID, nodeType, status sql.NullString
		var startedAt, completedAt, createdAt sql.NullTime
		var input, output, errJSON sql.NullString
		if err := rows.Scan(&st.ID, &st.RunID, &nodeID, &nodeType, &status, &st.Attempt,
			&startedAt, &completedAt, &createdAt, &input, &output, &errJSON); err != nil {
			return nil, err
		}
		st.NodeID = nodeID.String
		st.NodeType = nodeType.String
		st.Status = schema.StepStatus(status.String)
		if startedAt.Valid {
			st.StartedAt = schema.At(startedAt.Time)
		}
		if completedAt.Valid {
			st.CompletedAt = schema.At(completedAt.Time)
		}
		if createdAt.Valid {
			st.CreatedAt = schema.At(createdAt.Time)
		}
		st.Input = rawOrNil(input)
		st.Output = rawOrNil(output)
		st.Error = rawOrNil(errJSON)
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// --- Snapshots ---

func (s *LibSQLStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, run_id, title, format, graph, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.RunID, nullStr(snap.Title), snap.Format, string(snap.Graph), timeOrNow(snap.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	snap := &Snapshot{}
	var title sql.NullString
	var graph string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, title, format, graph, created_at FROM snapshots WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.RunID, &title, &snap.Format, &graph, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("snapshot", id)
	}
	if err != nil {
		return nil, err
	}
	snap.Title = title.String
	snap.Graph = json.RawMessage(graph)
	return snap, nil
}

func (s *LibSQLStore) ListSnapshots(ctx context.Context, runID string) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, title, format, graph, created_at FROM snapshots
		 WHERE run_id = ? ORDER BY created_at DESC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var title sql.NullString
		var graph string
		if err := rows.Scan(&snap.ID, &snap.RunID, &title, &snap.Format, &graph, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snap.Title = title.String
		snap.Graph = json.RawMessage(graph)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.GraphError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStamp(ts schema.Timestamp) any {
	if ts.IsZero() {
		return nil
	}
	return ts.Time
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}
