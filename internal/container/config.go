// Package container provides dependency injection and lifecycle management
// for the trust score engine following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Backend names accepted by StorageConfig and EvidenceConfig
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Storage selects the score repository
	Storage StorageConfig

	// Evidence selects the supplier evidence readers
	Evidence EvidenceConfig

	// Database configuration (sqlite storage)
	Database DatabaseConfig

	// Mongo configuration (mongo storage or evidence)
	Mongo MongoConfig

	// Scoring job configuration
	Scoring ScoringConfig

	// Export configuration
	Export ExportConfig

	// Server configuration
	Server ServerConfig

	// DisableWorkers skips starting background workers (CLI use)
	DisableWorkers bool
}

// StorageConfig holds score repository settings.
type StorageConfig struct {
	Backend string
}

// EvidenceConfig holds evidence reader settings.
type EvidenceConfig struct {
	Backend string

	// FixturesPath is a YAML file loaded into the memory backend
	FixturesPath string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file, or ":memory:"
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MongoConfig holds MongoDB settings.
type MongoConfig struct {
	URI              string
	Database         string
	ConnectTimeout   time.Duration
	ScoresCollection string
}

// ScoringConfig holds recalculation queue and periodic job settings.
type ScoringConfig struct {
	QueueSize           int
	QueueConcurrency    int
	JobTimeout          time.Duration
	PeriodicInterval    time.Duration
	PeriodicConcurrency int
	RunOnStart          bool
}

// ExportConfig holds ranking export settings.
type ExportConfig struct {
	// ReportsDir archives every export when set
	ReportsDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage:  StorageConfig{Backend: BackendMemory},
		Evidence: EvidenceConfig{Backend: BackendMemory},
		Database: DatabaseConfig{
			Path:         "data/trustscore.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Mongo: MongoConfig{
			Database:         "pharmachain",
			ConnectTimeout:   10 * time.Second,
			ScoresCollection: "suppliertrustscores",
		},
		Scoring: ScoringConfig{
			QueueSize:           256,
			QueueConcurrency:    4,
			JobTimeout:          30 * time.Second,
			PeriodicInterval:    24 * time.Hour,
			PeriodicConcurrency: 4,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required")
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Evidence.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required")
		}
	default:
		return fmt.Errorf("unknown evidence backend %q", c.Evidence.Backend)
	}

	return nil
}

func (c *Config) usesMongo() bool {
	return c.Storage.Backend == BackendMongo || c.Evidence.Backend == BackendMongo
}
