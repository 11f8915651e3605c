package auditlog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BatchFlushThreshold is the number of entries that triggers an immediate
// flush without waiting for the timer.
const BatchFlushThreshold = 100

// Logger provides async buffered trace logging with batch writes.
// Entries queue on a channel and flush to storage either when the batch
// fills or at regular intervals, so the request path never waits on a
// database.
type Logger struct {
	store         TraceStore
	config        Config
	buffer        chan *TraceEntry
	done          chan struct{}
	wg            sync.WaitGroup
	flushInterval time.Duration
}

// NewLogger creates an async buffered Logger and starts its flush goroutine.
func NewLogger(store TraceStore, cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	l := &Logger{
		store:         store,
		config:        cfg,
		buffer:        make(chan *TraceEntry, cfg.BufferSize),
		done:          make(chan struct{}),
		flushInterval: cfg.FlushInterval,
	}

	l.wg.Add(1)
	go l.flushLoop()

	return l
}

// Write queues a trace entry for async writing. Non-blocking: when the
// buffer is full the entry is dropped with a warning.
func (l *Logger) Write(entry *TraceEntry) {
	if entry == nil {
		return
	}

	select {
	case l.buffer <- entry:
	default:
		requestID := "unknown"
		if entry.Data != nil && entry.Data.RequestID != "" {
			requestID = entry.Data.RequestID
		}
		slog.Warn("trace log buffer full, dropping entry",
			"request_id", requestID,
			"outcome", entry.Outcome,
		)
	}
}

// Config returns the logger configuration.
func (l *Logger) Config() Config {
	return l.config
}

// Close stops the logger and flushes remaining entries.
// Called during graceful shutdown.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.store.Close()
}

// flushLoop runs in the background and periodically flushes the buffer.
func (l *Logger) flushLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	batch := make([]*TraceEntry, 0, BatchFlushThreshold)

	for {
		select {
		case entry := <-l.buffer:
			batch = append(batch, entry)
			if len(batch) >= BatchFlushThreshold {
				l.flushBatch(batch)
				batch = make([]*TraceEntry, 0, BatchFlushThreshold)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.flushBatch(batch)
				batch = make([]*TraceEntry, 0, BatchFlushThreshold)
			}

		case <-l.done:
			// Shutdown: drain whatever is still queued.
			close(l.buffer)
			for entry := range l.buffer {
				batch = append(batch, entry)
			}
			if len(batch) > 0 {
				l.flushBatch(batch)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := l.store.Flush(ctx); err != nil {
				slog.Error("failed to flush trace store", "error", err)
			}
			cancel()
			return
		}
	}
}

// flushBatch writes a batch of entries to the store.
func (l *Logger) flushBatch(batch []*TraceEntry) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.store.WriteBatch(ctx, batch); err != nil {
		slog.Error("failed to write trace batch",
			"error", err,
			"count", len(batch),
		)
	}
}

// NoopLogger is used when trace logging is disabled.
type NoopLogger struct{}

func (l *NoopLogger) Write(_ *TraceEntry) {}

func (l *NoopLogger) Config() Config {
	return Config{Enabled: false}
}

func (l *NoopLogger) Close() error {
	return nil
}

// LoggerInterface is satisfied by both the real and noop loggers.
type LoggerInterface interface {
	Write(entry *TraceEntry)
	Config() Config
	Close() error
}
