// Package jobs keeps a local history of pipeline runs in SQLite.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Job kinds.
const (
	KindData     = "data"
	KindDocument = "document"
	KindTasks    = "tasks"
)

// Job statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one recorded run.
type Job struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	// ErrorCode is an apperrors code; Error the message. Both empty on success.
	ErrorCode string          `json:"error_code,omitempty"`
	Error     string          `json:"error,omitempty"`
	Summary   json.RawMessage `json:"summary,omitempty"`
	// Artifact is the path the output was written to.
	Artifact  string    `json:"artifact,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// createdLayout is fixed width so created_at sorts lexically.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists jobs.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	filename TEXT NOT NULL,
	status TEXT NOT NULL,
	error_code TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	artifact TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_kind_created ON jobs(kind, created_at);
`

// Open opens (creating if needed) the job database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create jobs dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open jobs db: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("jobs db pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("jobs db schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts j, filling ID and CreatedAt when empty, and returns the stored job.
func (s *Store) Record(ctx context.Context, j Job) (Job, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	j.CreatedAt = j.CreatedAt.UTC()
	if j.Kind == "" || j.Status == "" {
		return j, errors.New("job kind and status are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, kind, filename, status, error_code, error, summary, artifact, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Kind, j.Filename, j.Status, j.ErrorCode, j.Error, string(j.Summary), j.Artifact,
		j.CreatedAt.Format(createdLayout),
	)
	if err != nil {
		return j, fmt.Errorf("insert job: %w", err)
	}
	return j, nil
}

// Recent returns up to n jobs, newest first. An empty kind matches all kinds.
func (s *Store) Recent(ctx context.Context, kind string, n int) ([]Job, error) {
	if n <= 0 {
		n = 20
	}
	q := `SELECT id, kind, filename, status, error_code, error, summary, artifact, created_at FROM jobs`
	args := []any{}
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, n)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var (
			j       Job
			summary string
			created string
		)
		if err := rows.Scan(&j.ID, &j.Kind, &j.Filename, &j.Status, &j.ErrorCode, &j.Error, &summary, &j.Artifact, &created); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if summary != "" {
			j.Summary = json.RawMessage(summary)
		}
		if t, err := time.Parse(createdLayout, created); err == nil {
			j.CreatedAt = t
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
