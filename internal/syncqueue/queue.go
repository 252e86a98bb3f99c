// Package syncqueue is the client-side durable queue for mutations
// that failed against the remote service. Operations are persisted in
// a local sqlite database and replayed in enqueue order once
// connectivity returns.
package syncqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultMaxRetries is the per-operation retry budget.
const DefaultMaxRetries = 3

// Sentinel errors returned by the queue.
var (
	// ErrDrainInProgress is returned when a drain is already running.
	// Replaying the same operation twice could double-apply it.
	ErrDrainInProgress = errors.New("drain already in progress")

	// ErrMaxRetriesExceeded marks an operation dropped after exhausting
	// its retry budget.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// PermanentError wraps a remote failure that no retry can fix, such as
// a validation or conflict response. Permanent failures are surfaced
// and removed from the queue instead of consuming the retry budget.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not retryable.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// Operation is one queued mutation.
type Operation struct {
	ID         int64
	Kind       string // create, update, delete
	EntityType string // session, timer, room
	EntityID   string
	Payload    []byte
	RetryCount int
	EnqueuedAt time.Time
}

// RemoteApplier replays one operation against the remote service. A
// plain error counts as transient; wrap with Permanent to drop the
// operation instead of retrying it.
type RemoteApplier interface {
	Apply(ctx context.Context, op *Operation) error
}

// DrainStats summarizes one drain pass.
type DrainStats struct {
	Applied int
	Retried int
	Dropped int
	// Surfaced holds permanent failures. The operations are gone from
	// the queue; the caller decides how loudly to report them.
	Surfaced []error
}

const schema = `
CREATE TABLE IF NOT EXISTS sync_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	payload BLOB NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	enqueued_at TIMESTAMP NOT NULL
)`

// Queue is a durable FIFO of failed mutations. Safe for concurrent
// use; at most one drain runs at a time.
type Queue struct {
	db         *sql.DB
	applier    RemoteApplier
	maxRetries int
	log        *slog.Logger

	syncing atomic.Bool
}

// Open opens (creating if needed) the queue database at path.
func Open(path string, applier RemoteApplier, log *slog.Logger) (*Queue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create queue schema: %w", err)
	}
	return &Queue{db: db, applier: applier, maxRetries: DefaultMaxRetries, log: log}, nil
}

// Close closes the underlying database.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue appends an operation to the tail of the queue.
func (q *Queue) Enqueue(ctx context.Context, kind, entityType, entityID string, payload []byte) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO sync_queue (kind, entity_type, entity_id, payload, retry_count, enqueued_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		kind, entityType, entityID, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to enqueue operation: %w", err)
	}
	q.log.Info("operation queued for sync", "kind", kind, "entity_type", entityType, "entity_id", entityID)
	return nil
}

// Len returns the number of pending operations.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n)
	return n, err
}

// Pending returns all queued operations in enqueue order.
func (q *Queue) Pending(ctx context.Context) ([]*Operation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, kind, entity_type, entity_id, payload, retry_count, enqueued_at
		 FROM sync_queue ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.Kind, &op.EntityType, &op.EntityID,
			&op.Payload, &op.RetryCount, &op.EnqueuedAt); err != nil {
			return nil, err
		}
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

// Drain replays pending operations in enqueue order. On success an
// operation is removed; on a transient failure its retry count grows,
// and once the budget is spent the operation is dropped with a
// warning. Permanent failures are removed and surfaced without
// touching the budget. Safe to call repeatedly; a second concurrent
// call returns ErrDrainInProgress.
func (q *Queue) Drain(ctx context.Context) (*DrainStats, error) {
	if !q.syncing.CompareAndSwap(false, true) {
		return nil, ErrDrainInProgress
	}
	defer q.syncing.Store(false)

	ops, err := q.Pending(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DrainStats{}
	for _, op := range ops {
		err := q.applier.Apply(ctx, op)
		if err == nil {
			if err := q.remove(ctx, op.ID); err != nil {
				return stats, err
			}
			stats.Applied++
			continue
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			if err := q.remove(ctx, op.ID); err != nil {
				return stats, err
			}
			stats.Surfaced = append(stats.Surfaced,
				fmt.Errorf("%s %s %s rejected: %w", op.Kind, op.EntityType, op.EntityID, perm.Err))
			q.log.Warn("queued operation rejected by remote",
				"kind", op.Kind, "entity_type", op.EntityType, "entity_id", op.EntityID, "error", perm.Err)
			continue
		}

		op.RetryCount++
		if op.RetryCount >= q.maxRetries {
			if err := q.remove(ctx, op.ID); err != nil {
				return stats, err
			}
			stats.Dropped++
			stats.Surfaced = append(stats.Surfaced,
				fmt.Errorf("%s %s %s: %w", op.Kind, op.EntityType, op.EntityID, ErrMaxRetriesExceeded))
			q.log.Warn("queued operation dropped",
				"kind", op.Kind, "entity_type", op.EntityType, "entity_id", op.EntityID,
				"retries", op.RetryCount, "error", err)
			continue
		}

		if _, err := q.db.ExecContext(ctx,
			`UPDATE sync_queue SET retry_count = ? WHERE id = ?`, op.RetryCount, op.ID); err != nil {
			return stats, err
		}
		stats.Retried++
	}

	if stats.Applied > 0 || stats.Dropped > 0 {
		q.log.Info("drain pass finished",
			"applied", stats.Applied, "retried", stats.Retried, "dropped", stats.Dropped)
	}
	return stats, nil
}

func (q *Queue) remove(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	return err
}
