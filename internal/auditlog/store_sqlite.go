package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SQLite caps bindable parameters at 999 per query. With 11 columns per
// trace entry we chunk batches at 90 entries to stay under the limit.
const (
	maxSQLiteParams    = 999
	columnsPerEntry    = 11
	maxEntriesPerBatch = maxSQLiteParams / columnsPerEntry
)

// SQLiteStore implements TraceStore for SQLite databases.
type SQLiteStore struct {
	db            *sql.DB
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewSQLiteStore creates a SQLite trace store. It creates the
// workflow_traces table when missing and starts a background cleanup
// goroutine when retention is configured.
func NewSQLiteStore(db *sql.DB, retentionDays int) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Commonly filtered fields get their own columns.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_traces (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			duration_ns INTEGER DEFAULT 0,
			outcome TEXT,
			category TEXT,
			strategy TEXT,
			status_code INTEGER DEFAULT 0,
			request_id TEXT,
			client_ip TEXT,
			conversation_id TEXT,
			data JSON
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow_traces table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_trace_timestamp ON workflow_traces(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_trace_outcome ON workflow_traces(outcome)",
		"CREATE INDEX IF NOT EXISTS idx_trace_category ON workflow_traces(category)",
		"CREATE INDEX IF NOT EXISTS idx_trace_request_id ON workflow_traces(request_id)",
		"CREATE INDEX IF NOT EXISTS idx_trace_conversation ON workflow_traces(conversation_id)",
		"CREATE INDEX IF NOT EXISTS idx_trace_client_ip ON workflow_traces(client_ip)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &SQLiteStore{
		db:            db,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}

	if retentionDays > 0 {
		go RunCleanupLoop(store.stopCleanup, store.cleanup)
	}

	return store, nil
}

// WriteBatch inserts trace entries with a chunked batch insert.
func (s *SQLiteStore) WriteBatch(ctx context.Context, entries []*TraceEntry) error {
	if len(entries) == 0 {
		return nil
	}

	for i := 0; i < len(entries); i += maxEntriesPerBatch {
		end := i + maxEntriesPerBatch
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[i:end]

		placeholders := make([]string, len(chunk))
		values := make([]interface{}, 0, len(chunk)*columnsPerEntry)

		for j, e := range chunk {
			placeholders[j] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

			var requestID, clientIP, conversationID string
			var dataValue interface{}
			if e.Data != nil {
				requestID = e.Data.RequestID
				clientIP = e.Data.ClientIP
				conversationID = e.Data.ConversationID
				if dataJSON := marshalTraceData(e.Data, e.ID); dataJSON != nil {
					dataValue = string(dataJSON)
				}
			}

			values = append(values,
				e.ID,
				e.Timestamp.UTC().Format(time.RFC3339Nano),
				e.DurationNs,
				e.Outcome,
				e.Category,
				e.Strategy,
				e.StatusCode,
				requestID,
				clientIP,
				conversationID,
				dataValue,
			)
		}

		query := `INSERT OR IGNORE INTO workflow_traces (id, timestamp, duration_ns, outcome, category,
			strategy, status_code, request_id, client_ip, conversation_id, data) VALUES ` +
			strings.Join(placeholders, ",")

		if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("failed to insert trace batch %d: %w", i/maxEntriesPerBatch, err)
		}
	}

	return nil
}

// Flush is a no-op for SQLite as writes are synchronous.
func (s *SQLiteStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. The DB itself belongs to the storage
// layer. Safe to call multiple times.
func (s *SQLiteStore) Close() error {
	if s.retentionDays > 0 && s.stopCleanup != nil {
		s.closeOnce.Do(func() {
			close(s.stopCleanup)
		})
	}
	return nil
}

// cleanup deletes trace entries older than the retention period.
func (s *SQLiteStore) cleanup() {
	if s.retentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays).UTC().Format(time.RFC3339)

	result, err := s.db.Exec("DELETE FROM workflow_traces WHERE timestamp < ?", cutoff)
	if err != nil {
		slog.Error("failed to cleanup old traces", "error", err)
		return
	}

	if rowsAffected, err := result.RowsAffected(); err == nil && rowsAffected > 0 {
		slog.Info("cleaned up old traces", "deleted", rowsAffected)
	}
}

// marshalTraceData marshals entry data, logging instead of failing.
func marshalTraceData(data *TraceData, id string) []byte {
	if data == nil {
		return nil
	}
	out, err := json.Marshal(data)
	if err != nil {
		slog.Warn("failed to marshal trace data", "error", err, "id", id)
		return []byte("{}")
	}
	return out
}
