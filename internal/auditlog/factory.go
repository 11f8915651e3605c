package auditlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"chatgate/config"
	"chatgate/internal/storage"
)

// Result holds the initialized trace logger and its storage connection.
// The caller must call Close() during shutdown.
type Result struct {
	Logger  LoggerInterface
	Storage storage.Storage
}

// Close releases all resources. Safe to call multiple times.
func (r *Result) Close() error {
	var errs []error
	if r.Logger != nil {
		if err := r.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// New creates a trace logger from configuration. When trace logging is
// disabled it returns a NoopLogger with nil storage.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if !cfg.Logging.Enabled {
		return &Result{
			Logger:  &NoopLogger{},
			Storage: nil,
		}, nil
	}

	store, err := storage.New(ctx, buildStorageConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	traceStore, err := createTraceStore(store, cfg.Logging.RetentionDays)
	if err != nil {
		store.Close()
		return nil, err
	}

	logCfg := Config{
		Enabled:       true,
		LogBodies:     cfg.Logging.LogBodies,
		LogHeaders:    cfg.Logging.LogHeaders,
		BufferSize:    cfg.Logging.BufferSize,
		FlushInterval: cfg.Logging.FlushInterval,
		RetentionDays: cfg.Logging.RetentionDays,
	}

	return &Result{
		Logger:  NewLogger(traceStore, logCfg),
		Storage: store,
	}, nil
}

// buildStorageConfig maps the application config onto storage.Config.
func buildStorageConfig(cfg *config.Config) storage.Config {
	storageCfg := storage.Config{
		Type: cfg.Storage.Type,
		SQLite: storage.SQLiteConfig{
			Path: cfg.Storage.SQLitePath,
		},
		PostgreSQL: storage.PostgreSQLConfig{
			URL:      cfg.Storage.PostgreSQLURL,
			MaxConns: cfg.Storage.PostgreSQLMaxConns,
		},
		MongoDB: storage.MongoDBConfig{
			URL:      cfg.Storage.MongoDBURL,
			Database: cfg.Storage.MongoDBDatabase,
		},
	}

	if storageCfg.Type == "" {
		storageCfg.Type = storage.TypeSQLite
	}
	if storageCfg.SQLite.Path == "" {
		storageCfg.SQLite.Path = "data/chatgate.db"
	}
	if storageCfg.MongoDB.Database == "" {
		storageCfg.MongoDB.Database = "chatgate"
	}

	return storageCfg
}

// createTraceStore creates the TraceStore matching the storage backend.
func createTraceStore(store storage.Storage, retentionDays int) (TraceStore, error) {
	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(store.SQLiteDB(), retentionDays)

	case storage.TypePostgreSQL:
		pool := store.PostgreSQLPool()
		if pool == nil {
			return nil, fmt.Errorf("PostgreSQL pool is nil")
		}
		pgxPool, ok := pool.(*pgxpool.Pool)
		if !ok {
			return nil, fmt.Errorf("invalid PostgreSQL pool type: %T", pool)
		}
		return NewPostgreSQLStore(pgxPool, retentionDays)

	case storage.TypeMongoDB:
		db := store.MongoDatabase()
		if db == nil {
			return nil, fmt.Errorf("MongoDB database is nil")
		}
		mongoDB, ok := db.(*mongo.Database)
		if !ok {
			return nil, fmt.Errorf("invalid MongoDB database type: %T", db)
		}
		return NewMongoDBStore(mongoDB, retentionDays)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}
