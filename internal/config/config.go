package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Storage and evidence backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Evidence EvidenceConfig `mapstructure:"evidence"`
	Database DatabaseConfig `mapstructure:"database"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Export   ExportConfig   `mapstructure:"export"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig selects where score records live
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// EvidenceConfig selects where supplier evidence is read from
type EvidenceConfig struct {
	Backend      string `mapstructure:"backend"`
	FixturesPath string `mapstructure:"fixtures_path"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI              string        `mapstructure:"uri"`
	Database         string        `mapstructure:"database"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	ScoresCollection string        `mapstructure:"scores_collection"`
}

// ScoringConfig holds recalculation job settings
type ScoringConfig struct {
	QueueSize           int           `mapstructure:"queue_size"`
	QueueConcurrency    int           `mapstructure:"queue_concurrency"`
	JobTimeout          time.Duration `mapstructure:"job_timeout"`
	PeriodicInterval    time.Duration `mapstructure:"periodic_interval"`
	PeriodicConcurrency int           `mapstructure:"periodic_concurrency"`
	RunOnStart          bool          `mapstructure:"run_on_start"`
}

// ExportConfig holds ranking export settings
type ExportConfig struct {
	ReportsDir string `mapstructure:"reports_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from an optional file, .env and environment
// variables. An empty configPath uses defaults and environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TRUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("evidence.backend", BackendMemory)
	v.SetDefault("evidence.fixtures_path", "")

	v.SetDefault("database.path", "data/trustscore.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "pharmachain")
	v.SetDefault("mongo.connect_timeout", 10*time.Second)
	v.SetDefault("mongo.scores_collection", "suppliertrustscores")

	v.SetDefault("scoring.queue_size", 256)
	v.SetDefault("scoring.queue_concurrency", 4)
	v.SetDefault("scoring.job_timeout", 30*time.Second)
	v.SetDefault("scoring.periodic_interval", 24*time.Hour)
	v.SetDefault("scoring.periodic_concurrency", 4)
	v.SetDefault("scoring.run_on_start", false)

	v.SetDefault("export.reports_dir", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the unprefixed names used by deployment tooling
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("mongo.uri", "TRUST_MONGO_URI", "MONGO_URI")
	_ = v.BindEnv("mongo.database", "TRUST_MONGO_DATABASE", "MONGO_DATABASE")
	_ = v.BindEnv("server.port", "TRUST_SERVER_PORT", "PORT")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite backend")
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required for the mongo backend")
		}
	default:
		return fmt.Errorf("storage.backend must be memory, sqlite or mongo, got %q", c.Storage.Backend)
	}

	switch c.Evidence.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required for the mongo evidence backend")
		}
	default:
		return fmt.Errorf("evidence.backend must be memory or mongo, got %q", c.Evidence.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Scoring.QueueSize < 0 || c.Scoring.QueueConcurrency < 0 {
		return fmt.Errorf("scoring queue settings must not be negative")
	}

	return nil
}
