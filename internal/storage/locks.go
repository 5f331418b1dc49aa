package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// processingLockID guards the canonicalization pass so concurrent workers
// never process the same backlog.
const processingLockID = 1001

// AdvisoryLock holds a session-level Postgres advisory lock for the
// lifetime of one pooled connection.
type AdvisoryLock struct {
	conn *pgxpool.Conn
}

// TryProcessingLock attempts to take the pipeline lock without blocking.
// Returns nil when another instance holds it.
func (db *DB) TryProcessingLock(ctx context.Context) (*AdvisoryLock, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock conn: %w", err)
	}

	var locked bool

	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", processingLockID).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}

	if !locked {
		conn.Release()
		return nil, nil
	}

	return &AdvisoryLock{conn: conn}, nil
}

// Release frees the advisory lock and returns the connection to the pool.
func (l *AdvisoryLock) Release(ctx context.Context) {
	if l == nil || l.conn == nil {
		return
	}

	_, _ = l.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", processingLockID)
	l.conn.Release()
	l.conn = nil
}
