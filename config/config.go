// Package config provides configuration management for the application.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Retrieval RetrievalConfig
	History   HistoryConfig
	Guard     GuardConfig
	Router    RouterConfig
	Storage   StorageConfig
	Logging   LoggingConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
}

// BackendConfig selects the generative backend.
type BackendConfig struct {
	Type    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// RetrievalConfig points at the retrieval collaborator.
type RetrievalConfig struct {
	URL    string
	APIKey string
}

// HistoryConfig configures conversation persistence.
type HistoryConfig struct {
	// RedisURL enables the Redis store; empty means in-memory.
	RedisURL  string
	Retention time.Duration
}

// GuardConfig tunes the admission pipeline.
type GuardConfig struct {
	RateLimitPerMinute int
	MaxMessageLength   int
}

// RouterConfig tunes the classifier.
type RouterConfig struct {
	DecisionTimeout time.Duration
}

// StorageConfig selects the trace storage backend.
type StorageConfig struct {
	Type string

	SQLitePath string

	PostgreSQLURL      string
	PostgreSQLMaxConns int

	MongoDBURL      string
	MongoDBDatabase string
}

// LoggingConfig configures workflow trace logging.
type LoggingConfig struct {
	Enabled       bool
	LogBodies     bool
	LogHeaders    bool
	BufferSize    int
	FlushInterval time.Duration
	RetentionDays int
}

// LogConfig configures application logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string
	// Format is "json" or "text".
	Format string
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // .env is optional

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("BACKEND_TYPE", "openai")
	viper.SetDefault("BACKEND_MODEL", "gpt-4o-mini")
	viper.SetDefault("BACKEND_TIMEOUT", "30s")
	viper.SetDefault("HISTORY_RETENTION", "720h")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("MAX_MESSAGE_LENGTH", 2000)
	viper.SetDefault("ROUTER_DECISION_TIMEOUT", "10s")
	viper.SetDefault("STORAGE_TYPE", "sqlite")
	viper.SetDefault("STORAGE_SQLITE_PATH", "data/chatgate.db")
	viper.SetDefault("STORAGE_POSTGRESQL_MAX_CONNS", 10)
	viper.SetDefault("STORAGE_MONGODB_DATABASE", "chatgate")
	viper.SetDefault("LOGGING_ENABLED", false)
	viper.SetDefault("LOGGING_BUFFER_SIZE", 1000)
	viper.SetDefault("LOGGING_FLUSH_INTERVAL", "5s")
	viper.SetDefault("LOGGING_RETENTION_DAYS", 30)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("PORT"),
		},
		Backend: BackendConfig{
			Type:    viper.GetString("BACKEND_TYPE"),
			APIKey:  viper.GetString("BACKEND_API_KEY"),
			BaseURL: viper.GetString("BACKEND_BASE_URL"),
			Model:   viper.GetString("BACKEND_MODEL"),
			Timeout: viper.GetDuration("BACKEND_TIMEOUT"),
		},
		Retrieval: RetrievalConfig{
			URL:    viper.GetString("RETRIEVAL_URL"),
			APIKey: viper.GetString("RETRIEVAL_API_KEY"),
		},
		History: HistoryConfig{
			RedisURL:  viper.GetString("REDIS_URL"),
			Retention: viper.GetDuration("HISTORY_RETENTION"),
		},
		Guard: GuardConfig{
			RateLimitPerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE"),
			MaxMessageLength:   viper.GetInt("MAX_MESSAGE_LENGTH"),
		},
		Router: RouterConfig{
			DecisionTimeout: viper.GetDuration("ROUTER_DECISION_TIMEOUT"),
		},
		Storage: StorageConfig{
			Type:               viper.GetString("STORAGE_TYPE"),
			SQLitePath:         viper.GetString("STORAGE_SQLITE_PATH"),
			PostgreSQLURL:      viper.GetString("STORAGE_POSTGRESQL_URL"),
			PostgreSQLMaxConns: viper.GetInt("STORAGE_POSTGRESQL_MAX_CONNS"),
			MongoDBURL:         viper.GetString("STORAGE_MONGODB_URL"),
			MongoDBDatabase:    viper.GetString("STORAGE_MONGODB_DATABASE"),
		},
		Logging: LoggingConfig{
			Enabled:       viper.GetBool("LOGGING_ENABLED"),
			LogBodies:     viper.GetBool("LOGGING_LOG_BODIES"),
			LogHeaders:    viper.GetBool("LOGGING_LOG_HEADERS"),
			BufferSize:    viper.GetInt("LOGGING_BUFFER_SIZE"),
			FlushInterval: viper.GetDuration("LOGGING_FLUSH_INTERVAL"),
			RetentionDays: viper.GetInt("LOGGING_RETENTION_DAYS"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}

	return cfg, nil
}
