package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = errors.New("history: run not found")

// Pagination bounds for list queries.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Repository defines the interface for supervision history operations.
type Repository interface {
	RecordRunStart(ctx context.Context, run *Run) error
	RecordRunEnd(ctx context.Context, runID string, endedAt time.Time, exitCode *int, reason EndReason) error
	RecordVerdict(ctx context.Context, v *Verdict) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter Filter) (*RunList, error)
	ListVerdicts(ctx context.Context, runID string, filter Filter) (*VerdictList, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// SQLiteRepository stores supervision history in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordRunStart inserts a new run. The ID and StartedAt are generated
// if empty.
func (r *SQLiteRepository) RecordRunStart(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = "run-" + uuid.NewString()[:8]
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, session_id, generation, command, pid, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.Generation, run.Command,
		nullableInt(run.PID),
		run.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// RecordRunEnd closes out a run with its exit details.
// Returns ErrNotFound if the run was never recorded.
func (r *SQLiteRepository) RecordRunEnd(ctx context.Context, runID string, endedAt time.Time, exitCode *int, reason EndReason) error {
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}

	var code any
	if exitCode != nil {
		code = *exitCode
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, exit_code = ?, end_reason = ? WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339), code, string(reason), runID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking run update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordVerdict inserts an oracle assessment against its run.
// The CreatedAt is generated if empty and the row ID is written back.
func (r *SQLiteRepository) RecordVerdict(ctx context.Context, v *Verdict) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO verdicts (run_id, created_at, classification, rationale, latency_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		v.RunID, v.CreatedAt.UTC().Format(time.RFC3339),
		v.Classification, v.Rationale, v.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("inserting verdict: %w", err)
	}

	v.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading verdict id: %w", err)
	}
	return nil
}

// GetRun returns a single run by ID, or ErrNotFound.
func (r *SQLiteRepository) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, generation, command, pid, started_at, ended_at, exit_code, end_reason
		 FROM runs WHERE id = ?`, runID)

	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs ordered by most recent first.
func (r *SQLiteRepository) ListRuns(ctx context.Context, filter Filter) (*RunList, error) {
	filter = clampFilter(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, generation, command, pid, started_at, ended_at, exit_code, end_reason
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`,
		filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return &RunList{
		Runs:   runs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// ListVerdicts returns a run's verdicts ordered by most recent first.
func (r *SQLiteRepository) ListVerdicts(ctx context.Context, runID string, filter Filter) (*VerdictList, error) {
	filter = clampFilter(filter)

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM verdicts WHERE run_id = ?", runID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting verdicts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, created_at, classification, rationale, latency_ms
		 FROM verdicts WHERE run_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		runID, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying verdicts: %w", err)
	}
	defer rows.Close()

	verdicts := []Verdict{}
	for rows.Next() {
		var v Verdict
		var createdAt string
		if err := rows.Scan(&v.ID, &v.RunID, &createdAt, &v.Classification, &v.Rationale, &v.LatencyMS); err != nil {
			return nil, fmt.Errorf("scanning verdict: %w", err)
		}
		v.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating verdicts: %w", err)
	}

	return &VerdictList{
		Verdicts: verdicts,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

// Prune deletes runs that started before the cutoff. Their verdicts go
// with them via the foreign key cascade. Returns how many runs were
// removed.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM runs WHERE started_at < ?",
		olderThan.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned runs: %w", err)
	}
	return n, nil
}

// scanRun reads one runs row through the given Scan function, shared
// between single-row and multi-row queries.
func scanRun(scan func(dest ...any) error) (*Run, error) {
	var run Run
	var pid, exitCode sql.NullInt64
	var startedAt string
	var endedAt, endReason sql.NullString

	if err := scan(&run.ID, &run.SessionID, &run.Generation, &run.Command,
		&pid, &startedAt, &endedAt, &exitCode, &endReason); err != nil {
		return nil, err
	}

	if pid.Valid {
		run.PID = int(pid.Int64)
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		run.ExitCode = &code
	}
	if endReason.Valid {
		run.EndReason = EndReason(endReason.String)
	}

	t, err := parseTimestamp(startedAt)
	if err != nil {
		return nil, err
	}
	run.StartedAt = t

	if endedAt.Valid {
		t, err := parseTimestamp(endedAt.String)
		if err != nil {
			return nil, err
		}
		run.EndedAt = &t
	}
	return &run, nil
}

// parseTimestamp reads an RFC3339 TEXT column.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing history timestamp %q: %w", s, err)
	}
	return t, nil
}

// clampFilter applies pagination defaults and bounds.
func clampFilter(f Filter) Filter {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// nullableInt returns nil for zero values, for nullable INTEGER columns.
func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
