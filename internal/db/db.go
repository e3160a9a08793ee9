// Package db provides the SQLite cache of fetched span batches.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tracestack/internal/models"
)

// ErrCacheMiss is returned when no fresh batch is cached for a trace.
var ErrCacheMiss = errors.New("cache miss")

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
	path string
	now  func() time.Time
}

// New creates a new database connection. ":memory:" opens a private in-memory database.
func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:   db,
		path: dbPath,
		now:  time.Now,
	}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS span_batches (
			trace_id TEXT PRIMARY KEY,
			span_count INTEGER NOT NULL,
			spans TEXT NOT NULL,
			fetched_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_span_batches_fetched ON span_batches(fetched_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// PutBatch stores the spans of one trace, replacing any earlier copy
func (db *DB) PutBatch(ctx context.Context, traceID string, spans []models.Span) error {
	data, err := json.Marshal(spans)
	if err != nil {
		return fmt.Errorf("failed to encode spans: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO span_batches (trace_id, span_count, spans, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(trace_id) DO UPDATE SET span_count = excluded.span_count, spans = excluded.spans, fetched_at = excluded.fetched_at`,
		traceID, len(spans), string(data), db.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store batch %s: %w", traceID, err)
	}
	return nil
}

// GetBatch returns the cached spans of a trace if they were fetched within maxAge
func (db *DB) GetBatch(ctx context.Context, traceID string, maxAge time.Duration) ([]models.Span, error) {
	var (
		data      string
		fetchedAt time.Time
	)
	err := db.QueryRowContext(ctx,
		`SELECT spans, fetched_at FROM span_batches WHERE trace_id = ?`, traceID,
	).Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read batch %s: %w", traceID, err)
	}

	if db.now().Sub(fetchedAt) > maxAge {
		return nil, ErrCacheMiss
	}

	var spans []models.Span
	if err := json.Unmarshal([]byte(data), &spans); err != nil {
		return nil, fmt.Errorf("failed to decode batch %s: %w", traceID, err)
	}
	return spans, nil
}

// PurgeBefore deletes batches fetched before cutoff and returns how many were removed
func (db *DB) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM span_batches WHERE fetched_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge batches: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
