package auditlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLStore implements TraceStore for PostgreSQL.
type PostgreSQLStore struct {
	pool          *pgxpool.Pool
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewPostgreSQLStore creates a PostgreSQL trace store. It creates the
// workflow_traces table when missing and starts a background cleanup
// goroutine when retention is configured.
func NewPostgreSQLStore(pool *pgxpool.Pool, retentionDays int) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS workflow_traces (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			duration_ns BIGINT DEFAULT 0,
			outcome TEXT,
			category TEXT,
			strategy TEXT,
			status_code INTEGER DEFAULT 0,
			data JSONB
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow_traces table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_trace_timestamp ON workflow_traces(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_trace_outcome ON workflow_traces(outcome)",
		"CREATE INDEX IF NOT EXISTS idx_trace_category ON workflow_traces(category)",
		"CREATE INDEX IF NOT EXISTS idx_trace_data_gin ON workflow_traces USING GIN (data)",
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &PostgreSQLStore{
		pool:          pool,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}

	if retentionDays > 0 {
		go RunCleanupLoop(store.stopCleanup, store.cleanup)
	}

	return store, nil
}

// WriteBatch inserts trace entries, wrapping larger batches in one
// transaction. Individual insert failures are logged, not propagated, so
// one bad entry cannot sink the batch.
func (s *PostgreSQLStore) WriteBatch(ctx context.Context, entries []*TraceEntry) error {
	if len(entries) == 0 {
		return nil
	}

	if len(entries) < 10 {
		for _, e := range entries {
			if err := s.insertOne(ctx, nil, e); err != nil {
				slog.Warn("failed to insert trace", "error", err, "id", e.ID)
			}
		}
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, e := range entries {
		if err := s.insertOne(ctx, tx, e); err != nil {
			slog.Warn("failed to insert trace in batch", "error", err, "id", e.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertOne writes a single entry through the pool or an open transaction.
func (s *PostgreSQLStore) insertOne(ctx context.Context, tx pgx.Tx, e *TraceEntry) error {
	dataJSON := marshalTraceData(e.Data, e.ID)

	const query = `
		INSERT INTO workflow_traces (id, timestamp, duration_ns, outcome, category, strategy, status_code, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	var err error
	if tx != nil {
		_, err = tx.Exec(ctx, query, e.ID, e.Timestamp, e.DurationNs, e.Outcome, e.Category, e.Strategy, e.StatusCode, dataJSON)
	} else {
		_, err = s.pool.Exec(ctx, query, e.ID, e.Timestamp, e.DurationNs, e.Outcome, e.Category, e.Strategy, e.StatusCode, dataJSON)
	}
	return err
}

// Flush is a no-op for PostgreSQL as writes are synchronous.
func (s *PostgreSQLStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. The pool belongs to the storage layer.
func (s *PostgreSQLStore) Close() error {
	if s.retentionDays > 0 && s.stopCleanup != nil {
		s.closeOnce.Do(func() {
			close(s.stopCleanup)
		})
	}
	return nil
}

// cleanup deletes trace entries older than the retention period.
func (s *PostgreSQLStore) cleanup() {
	if s.retentionDays <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	tag, err := s.pool.Exec(ctx, "DELETE FROM workflow_traces WHERE timestamp < $1", cutoff)
	if err != nil {
		slog.Error("failed to cleanup old traces", "error", err)
		return
	}

	if deleted := tag.RowsAffected(); deleted > 0 {
		slog.Info("cleaned up old traces", "deleted", deleted)
	}
}
