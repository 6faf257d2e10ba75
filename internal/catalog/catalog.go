package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sfgproc/internal/config"
)

var (
	// ErrUnknownRun means the referenced run id is not in the catalog.
	ErrUnknownRun = errors.New("catalog: unknown run")
	// ErrBadStatus means FinishRun was handed a non-terminal status.
	ErrBadStatus = errors.New("catalog: status must be completed or failed")
)

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database under the configured
// state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.CatalogPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records the start of a processing run and returns it.
func (s *Store) BeginRun(ctx context.Context, label, reference string) (*Run, error) {
	id := uuid.NewString()
	started := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, label, reference, status, warnings, started_at)
         VALUES (?, ?, ?, ?, 0, ?)`,
		id,
		nullableString(label),
		nullableString(reference),
		StatusRunning,
		started,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return s.GetRun(ctx, id)
}

// FinishRun marks a run as completed or failed, recording warning count and
// an optional error message.
func (s *Store) FinishRun(ctx context.Context, runID string, status Status, warnings int, errorMessage string) error {
	if status != StatusCompleted && status != StatusFailed {
		return fmt.Errorf("%w: got %q", ErrBadStatus, status)
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, warnings = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status,
		warnings,
		nullableString(errorMessage),
		time.Now().UTC().Format(time.RFC3339Nano),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return nil
}

// RecordOutput registers one exported file under a run.
func (s *Store) RecordOutput(ctx context.Context, runID, dataset, snapshot, path string, rows int) (*Output, error) {
	created := time.Now().UTC()

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_outputs (run_id, dataset, snapshot, path, row_count, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		runID,
		dataset,
		snapshot,
		path,
		rows,
		created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert output: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &Output{
		ID:        id,
		RunID:     runID,
		Dataset:   dataset,
		Snapshot:  snapshot,
		Path:      path,
		Rows:      rows,
		CreatedAt: created,
	}, nil
}

// GetRun fetches a run by identifier, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first. A limit of zero or less returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// OutputsForRun returns the files recorded for a run in insertion order.
func (s *Store) OutputsForRun(ctx context.Context, runID string) ([]*Output, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, dataset, snapshot, path, row_count, created_at FROM run_outputs WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	defer rows.Close()

	var outputs []*Output
	for rows.Next() {
		var (
			out        Output
			createdRaw string
		)
		if err := rows.Scan(&out.ID, &out.RunID, &out.Dataset, &out.Snapshot, &out.Path, &out.Rows, &createdRaw); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			out.CreatedAt = created
		}
		outputs = append(outputs, &out)
	}
	return outputs, rows.Err()
}

const runColumns = `id, label, reference, status, warnings, error_message, started_at, finished_at,
    (SELECT COUNT(1) FROM run_outputs WHERE run_outputs.run_id = runs.id)`

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           string
		label        sql.NullString
		reference    sql.NullString
		statusStr    string
		warnings     int
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
		outputs      int
	)

	if err := scanner.Scan(
		&id,
		&label,
		&reference,
		&statusStr,
		&warnings,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
		&outputs,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		Label:        label.String,
		Reference:    reference.String,
		Status:       Status(statusStr),
		Warnings:     warnings,
		ErrorMessage: errorMessage.String,
		Outputs:      outputs,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
