package config

import (
	"github.com/pharmachain/trustscore/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Storage: container.StorageConfig{
			Backend: c.Storage.Backend,
		},
		Evidence: container.EvidenceConfig{
			Backend:      c.Evidence.Backend,
			FixturesPath: c.Evidence.FixturesPath,
		},
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Mongo: container.MongoConfig{
			URI:              c.Mongo.URI,
			Database:         c.Mongo.Database,
			ConnectTimeout:   c.Mongo.ConnectTimeout,
			ScoresCollection: c.Mongo.ScoresCollection,
		},
		Scoring: container.ScoringConfig{
			QueueSize:           c.Scoring.QueueSize,
			QueueConcurrency:    c.Scoring.QueueConcurrency,
			JobTimeout:          c.Scoring.JobTimeout,
			PeriodicInterval:    c.Scoring.PeriodicInterval,
			PeriodicConcurrency: c.Scoring.PeriodicConcurrency,
			RunOnStart:          c.Scoring.RunOnStart,
		},
		Export: container.ExportConfig{
			ReportsDir: c.Export.ReportsDir,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}
