// Package config loads application settings from environment variables with
// defaults, and validates them on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Import   ImportConfig
	Analysis AnalysisConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout applied to every request
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Storage backends accepted by StorageConfig.Backend.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// StorageConfig selects where the observation collection is persisted.
type StorageConfig struct {
	// Backend is one of: file, postgres, redis, memory (default: file)
	Backend string `env:"STORAGE_BACKEND" default:"file"`

	// FilePath is the JSON file used by the file backend
	FilePath string `env:"STORAGE_FILE" default:"data/observations.json"`

	// DatabaseURL is the PostgreSQL connection string for the postgres backend
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// RedisURL is the redis:// URL for the redis backend
	RedisURL string `env:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Key names the stored collection (row key in postgres, key in redis)
	Key string `env:"STORAGE_KEY" default:"exoplanet-observations"`

	// Timeout bounds a single load or save
	Timeout time.Duration `env:"STORAGE_TIMEOUT" default:"5s"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the largest accepted file in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	MaxConcurrent int           `env:"IMPORT_MAX_CONCURRENT" default:"5"`
	MaxWaitTime   time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// HistorySize is how many import summaries are kept in memory
	HistorySize int `env:"IMPORT_HISTORY_SIZE" default:"50"`
}

// AnalysisConfig configures classification of observations.
type AnalysisConfig struct {
	// Endpoint is the base URL of a remote analysis service. Empty means
	// the built-in rule engine is used.
	Endpoint string `env:"ANALYSIS_ENDPOINT"`

	Timeout   time.Duration `env:"ANALYSIS_TIMEOUT" default:"30s"`
	ModelName string        `env:"ANALYSIS_MODEL_NAME"`

	// ArtifactPath points at a JSON threshold artifact for the rule engine
	ArtifactPath string `env:"ANALYSIS_ARTIFACT_PATH" envAlt:"MODEL_ARTIFACT_PATH"`

	// CacheTTL is how long identical batches are served from cache
	CacheTTL time.Duration `env:"ANALYSIS_CACHE_TTL" default:"5m"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for the import endpoint
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects the /api routes with X-API-Key
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
