// CLAUDE:SUMMARY SQLite-backed extraction job queue with visibility-timeout claims and once-only result writes.
// Package jobq persists asynchronous extraction jobs in SQLite with
// visibility-timeout semantics.
//
// A job is enqueued as pending; a worker claims the oldest visible job
// inside one atomic statement, marking it running with a visibility
// deadline. Completing writes the result pair (or the error) exactly once.
// If the worker crashes or overruns the deadline the job becomes claimable
// again — no external broker involved.
//
// Runner owns the worker goroutines and executes claimed jobs against an
// Extractor, which keeps long CPU-bound extraction work off callers'
// request paths.
package jobq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Valian/extractous-go/dbopen"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("jobq: job not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("jobq: store closed")

// Job is one persisted extraction call.
type Job struct {
	ID       string
	Pathway  string // "file", "bytes", "url"
	Input    string // file path or URL; empty for bytes
	Data     []byte // document bytes for the bytes pathway
	Payload  string // raw JSON configuration payload, may be empty
	Status   Status
	Attempts int
	// VisibleAt is the claim lease deadline while running; zero otherwise.
	VisibleAt time.Time
	Content   string
	Metadata  string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists jobs. All methods are safe for concurrent use.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// NewStore wraps db. Call Init once before use.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the jobs table and index if they don't exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := dbopen.Exec(ctx, s.db, `
		CREATE TABLE IF NOT EXISTS extract_jobs (
			id          TEXT PRIMARY KEY,
			pathway     TEXT NOT NULL,
			input       TEXT NOT NULL DEFAULT '',
			data        BLOB,
			payload     TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'pending',
			attempts    INTEGER NOT NULL DEFAULT 0,
			visible_at  INTEGER NOT NULL DEFAULT 0,
			content     TEXT NOT NULL DEFAULT '',
			metadata    TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_extract_jobs_claim
			ON extract_jobs (status, visible_at, created_at);
	`)
	return err
}

// Close marks the store closed. The underlying DB is owned by the caller.
func (s *Store) Close() {
	s.closed.Store(true)
}

// Enqueue inserts a pending job.
func (s *Store) Enqueue(ctx context.Context, job *Job) error {
	if s.closed.Load() {
		return ErrClosed
	}
	now := time.Now().UnixMilli()
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO extract_jobs (id, pathway, input, data, payload, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)`,
		job.ID, job.Pathway, job.Input, job.Data, job.Payload, now, now,
	)
	if err != nil {
		return fmt.Errorf("jobq: enqueue: %w", err)
	}
	job.Status = StatusPending
	job.CreatedAt = time.UnixMilli(now)
	job.UpdatedAt = job.CreatedAt
	return nil
}

// Claim atomically picks the oldest claimable job — pending, or running past
// its visibility deadline — marks it running until the new deadline, and
// returns it. Returns nil, nil when nothing is claimable.
func (s *Store) Claim(ctx context.Context, visibility time.Duration) (*Job, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	now := time.Now()
	deadline := now.Add(visibility).UnixMilli()

	// The claim races other workers, so the claiming statement runs inside
	// a BUSY-retried transaction.
	var j *Job
	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE extract_jobs
			SET status = 'running', visible_at = ?, attempts = attempts + 1, updated_at = ?
			WHERE id = (
				SELECT id FROM extract_jobs
				WHERE status = 'pending'
				   OR (status = 'running' AND visible_at <= ?)
				ORDER BY created_at ASC
				LIMIT 1
			)
			RETURNING id, pathway, input, data, payload, status, attempts,
			          visible_at, content, metadata, error, created_at, updated_at`,
			deadline, now.UnixMilli(), now.UnixMilli(),
		)
		job, err := scanJob(row)
		if err != nil {
			return err
		}
		j = job
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

// Complete writes the result pair and marks the job done.
func (s *Store) Complete(ctx context.Context, id, content, metadata string) error {
	return s.finish(ctx, id, StatusDone, content, metadata, "")
}

// Fail records the error text and marks the job failed.
func (s *Store) Fail(ctx context.Context, id, errText string) error {
	return s.finish(ctx, id, StatusFailed, "", "", errText)
}

// Release makes a running job immediately claimable again without recording
// a result, for errors worth retrying.
func (s *Store) Release(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	res, err := dbopen.Exec(ctx, s.db, `
		UPDATE extract_jobs SET status = 'pending', visible_at = 0, updated_at = ?
		WHERE id = ? AND status = 'running'`,
		time.Now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("jobq: release: %w", err)
	}
	return affectedOrNotFound(res)
}

func (s *Store) finish(ctx context.Context, id string, st Status, content, metadata, errText string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	// Result writes are once-only: the status guard and the write happen in
	// one BUSY-retried transaction.
	var n int64
	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE extract_jobs
			SET status = ?, content = ?, metadata = ?, error = ?, visible_at = 0, updated_at = ?
			WHERE id = ? AND status = 'running'`,
			string(st), content, metadata, errText, time.Now().UnixMilli(), id,
		)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("jobq: finish: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a job by id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pathway, input, data, payload, status, attempts,
		       visible_at, content, metadata, error, created_at, updated_at
		FROM extract_jobs WHERE id = ?`, id,
	)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

// Purge deletes finished jobs older than age.
func (s *Store) Purge(ctx context.Context, age time.Duration) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	cutoff := time.Now().Add(-age).UnixMilli()
	res, err := dbopen.Exec(ctx, s.db, `
		DELETE FROM extract_jobs
		WHERE status IN ('done', 'failed') AND updated_at < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("jobq: purge: %w", err)
	}
	return res.RowsAffected()
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var status string
	var visAt, creAt, updAt int64
	err := row.Scan(&j.ID, &j.Pathway, &j.Input, &j.Data, &j.Payload, &status,
		&j.Attempts, &visAt, &j.Content, &j.Metadata, &j.Error, &creAt, &updAt)
	if err != nil {
		return nil, err
	}
	j.Status = Status(status)
	if visAt > 0 {
		j.VisibleAt = time.UnixMilli(visAt)
	}
	j.CreatedAt = time.UnixMilli(creAt)
	j.UpdatedAt = time.UnixMilli(updAt)
	return &j, nil
}
