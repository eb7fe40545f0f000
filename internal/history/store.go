package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lofi/internal/config"
)

// Store manages job history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the history database under the state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the history database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
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

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin inserts a running record. CreatedAt defaults to now.
func (s *Store) Begin(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("record id is required")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Status = StatusRunning

	_, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (
            id, source_kind, source, mode, media_kind, acceleration,
            downscale, fast_preset, audio_only, compact_audio,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.SourceKind,
		nullableString(rec.Source),
		rec.Mode,
		rec.MediaKind,
		rec.Acceleration,
		boolToInt(rec.Downscale),
		boolToInt(rec.FastPreset),
		boolToInt(rec.AudioOnly),
		boolToInt(rec.CompactAudio),
		rec.Status,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Complete marks a running job as completed.
func (s *Store) Complete(ctx context.Context, id string, outputBytes int64, elapsed time.Duration) error {
	now := formatTime(time.Now().UTC())
	return s.finish(ctx,
		`UPDATE jobs
         SET status = ?, output_bytes = ?, duration_ms = ?, updated_at = ?, finished_at = ?
         WHERE id = ? AND status = ?`,
		id, StatusCompleted, outputBytes, elapsed.Milliseconds(), now, now, id, StatusRunning,
	)
}

// Fail marks a running job as failed with the stage that failed.
func (s *Store) Fail(ctx context.Context, id, stage, message string, elapsed time.Duration) error {
	now := formatTime(time.Now().UTC())
	return s.finish(ctx,
		`UPDATE jobs
         SET status = ?, failure_stage = ?, error_message = ?, duration_ms = ?, updated_at = ?, finished_at = ?
         WHERE id = ? AND status = ?`,
		id, StatusFailed, nullableString(stage), nullableString(message), elapsed.Milliseconds(), now, now, id, StatusRunning,
	)
}

func (s *Store) finish(ctx context.Context, query, id string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("finish job %s: %w", id, ErrNotRunning)
	}
	return nil
}

// ErrNotRunning is returned when finishing a job that is unknown or already finished.
var ErrNotRunning = errors.New("job is not running")

// Get fetches a record by identifier. It returns nil, nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+recordColumns+` FROM jobs WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return rec, nil
}

// List returns the newest records first, filtered by status when provided.
// A limit of zero or less returns every matching record.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats returns a count of records grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Summary folds Stats into per-status totals.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	for status, count := range stats {
		summary.Total += count
		switch status {
		case StatusRunning:
			summary.Running += count
		case StatusCompleted:
			summary.Completed += count
		case StatusFailed:
			summary.Failed += count
		case StatusInterrupted:
			summary.Interrupted += count
		}
	}
	return summary, nil
}

// MarkInterrupted flags every running record as interrupted. The server calls
// it on startup, before any job of its own has begun.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, updated_at = ?, finished_at = ? WHERE status = ?`,
		StatusInterrupted, now, now, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished records that finished before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM jobs WHERE status != ? AND finished_at IS NOT NULL AND finished_at < ?`,
		StatusRunning, formatTime(cutoff.UTC()),
	)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("history database connection unavailable")
	}
	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()
	return s.db.PingContext(connCtx)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
