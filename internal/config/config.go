// Package config provides configuration structures and validation for the voucher ledger.
// It covers the HTTP server, the Postgres system of record, the Mongo statement projection,
// Kafka event streaming, the Redis rate cache and the ledger's own numbering and retry knobs.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration.
type Config struct {
	Application  ApplicationConfig
	Logging      LoggingConfig
	Server       ServerConfig
	Kafka        KafkaConfig
	Postgres     PostgresConfig
	MongoDB      MongoDBConfig
	Redis        RedisConfig
	Outbox       OutboxConfig
	WorkerPool   WorkerPoolConfig
	Ledger       LedgerConfig
	ExchangeRate ExchangeRateConfig
	Metrics      MetricsConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers            string
	VoucherEventsTopic string
	NumPartitions      int
	ReplicationFactor  int
	ConsumerGroup      string
	MinBytes           int
	MaxBytes           int
	MaxWait            time.Duration
	DLQTopic           string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis connection settings for the exchange rate cache
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig sizes the pool used for batch voucher creation
type WorkerPoolConfig struct {
	Size int
}

// Numbering scopes
const (
	NumberingScopeGlobal  = "global"
	NumberingScopePerKind = "per_kind"
)

// Reconciliation sources
const (
	ReconcileSourcePostgres = "postgres"
	ReconcileSourceMongo    = "mongo"
)

// LedgerConfig tunes voucher numbering, contention retries and journal tolerance.
type LedgerConfig struct {
	NumberingScope       string
	AllocatorMaxAttempts int
	AllocatorBaseDelay   time.Duration
	AllocatorMaxDelay    time.Duration
	CounterLockTimeout   time.Duration
	JournalEpsilon       string // decimal literal, e.g. "0.01"
	ReconcileSource      string
}

// ExchangeRateConfig controls the cached institutional rate
type ExchangeRateConfig struct {
	CacheTTL time.Duration
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// validate collects every configuration problem into a single error
func (c *Config) validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.VoucherEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_VOUCHER_EVENTS_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}

	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}
	if c.Redis.DB < 0 {
		validationErrors = append(validationErrors, "REDIS_DB must not be negative")
	}

	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	switch c.Ledger.NumberingScope {
	case NumberingScopeGlobal, NumberingScopePerKind:
	default:
		validationErrors = append(validationErrors, "LEDGER_NUMBERING_SCOPE must be one of global, per_kind")
	}
	if c.Ledger.AllocatorMaxAttempts <= 0 {
		validationErrors = append(validationErrors, "LEDGER_ALLOCATOR_MAX_ATTEMPTS must be greater than 0")
	}
	if c.Ledger.AllocatorBaseDelay <= 0 {
		validationErrors = append(validationErrors, "LEDGER_ALLOCATOR_BASE_DELAY must be greater than 0")
	}
	if c.Ledger.AllocatorMaxDelay < c.Ledger.AllocatorBaseDelay {
		validationErrors = append(validationErrors, "LEDGER_ALLOCATOR_MAX_DELAY must not be below LEDGER_ALLOCATOR_BASE_DELAY")
	}
	if c.Ledger.CounterLockTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_COUNTER_LOCK_TIMEOUT must be greater than 0")
	}
	if c.Ledger.JournalEpsilon == "" {
		validationErrors = append(validationErrors, "LEDGER_JOURNAL_EPSILON is required")
	}
	switch c.Ledger.ReconcileSource {
	case ReconcileSourcePostgres, ReconcileSourceMongo:
	default:
		validationErrors = append(validationErrors, "LEDGER_RECONCILE_SOURCE must be one of postgres, mongo")
	}

	if c.ExchangeRate.CacheTTL <= 0 {
		validationErrors = append(validationErrors, "EXCHANGE_RATE_CACHE_TTL must be greater than 0")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		validationErrors = append(validationErrors, "METRICS_PATH must start with /")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
