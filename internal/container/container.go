package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/pharmachain/trustscore/internal/application/dispatcher"
	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/application/service"
	"github.com/pharmachain/trustscore/internal/infrastructure/worker"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database    *DatabaseBundle
	mongoClient *mongo.Client
	evidence    port.EvidenceReader
	scores      *ScoreBundle

	// Infrastructure - Storage
	fileStorage port.FileStorage

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Workers
	workers *WorkerBundle

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Trust   service.TrustScoreService
	Ranking service.RankingEngine
	Badges  service.BadgeEngine
	Risk    service.RiskService
	Export  service.ExportService
	Locks   *service.SupplierLocks
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Data stores (SQLite, MongoDB, evidence readers, score repository)
// 2. Report storage
// 3. Event dispatcher and application services
// 4. Workers
//
// On failure everything already opened is closed again.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization",
		zap.String("storage_backend", c.config.Storage.Backend),
		zap.String("evidence_backend", c.config.Evidence.Backend))

	if err := c.start(); err != nil {
		c.teardown()
		return err
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) start() error {
	// Step 1: Initialize data stores
	if err := c.initData(); err != nil {
		return fmt.Errorf("failed to initialize data stores: %w", err)
	}
	c.logger.Info("Data stores initialized")

	// Step 2: Initialize storage
	c.fileStorage = ProvideStorage(&c.config.Export, c.logger)
	c.logger.Info("Storage initialized", zap.Bool("archive_exports", c.fileStorage != nil))

	// Step 3: Initialize dispatcher and services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 4: Initialize and start workers
	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) teardown() []error {
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop workers (reverse of step 4)
	if c.workers != nil {
		if err := c.workers.Manager.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
		c.workers = nil
	}

	// Step 2: Close dispatcher (reverse of step 3)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	// Step 3: Disconnect MongoDB (reverse of step 1)
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := c.mongoClient.Disconnect(ctx); err != nil {
			c.logger.Error("Failed to disconnect mongo", zap.Error(err))
			errs = append(errs, fmt.Errorf("disconnect mongo: %w", err))
		} else {
			c.logger.Info("MongoDB disconnected")
		}
		cancel()
		c.mongoClient = nil
	}

	// Step 4: Close database (reverse of step 1)
	if c.database != nil {
		if err := c.database.DB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.database = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	if c.database != nil {
		if err := c.database.DB.Ping(); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.mongoClient.Ping(ctx, nil)
		cancel()
		if err != nil {
			set("mongo", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("mongo", true, "")
		}
	}

	if c.scores != nil {
		set("scores", true, c.config.Storage.Backend)
	} else {
		set("scores", false, "not initialized")
	}

	if c.dispatcher != nil {
		set("dispatcher", true, "")
	} else {
		set("dispatcher", false, "not initialized")
	}

	if c.workers != nil {
		set("workers", c.workers.Manager.IsRunning() || c.config.DisableWorkers,
			fmt.Sprintf("worker count: %d", c.workers.Manager.GetWorkerCount()))
	} else {
		set("workers", false, "not initialized")
	}

	return status
}

// initData connects the configured backends.
func (c *Container) initData() error {
	if c.config.Storage.Backend == BackendSQLite {
		db, err := ProvideDatabase(&c.config.Database, c.logger)
		if err != nil {
			return err
		}
		c.database = db
	}

	if c.config.usesMongo() {
		client, err := ProvideMongoClient(c.ctx, &c.config.Mongo, c.logger)
		if err != nil {
			return err
		}
		c.mongoClient = client
	}

	evidence, err := ProvideEvidence(&c.config.Evidence, &c.config.Mongo, c.mongoClient, c.logger)
	if err != nil {
		return err
	}
	c.evidence = evidence

	scores, err := ProvideScoreRepository(c.ctx, &c.config.Storage, c.database, &c.config.Mongo, c.mongoClient, c.logger)
	if err != nil {
		return err
	}
	c.scores = scores
	return nil
}

// initServices initializes the dispatcher and application services.
func (c *Container) initServices() error {
	c.dispatcher = ProvideDispatcher(c.logger)

	services, err := ProvideServices(&ServiceDeps{
		Evidence:   c.evidence,
		Scores:     c.scores,
		Dispatcher: c.dispatcher,
		Storage:    c.fileStorage,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// initWorkers initializes and starts all background workers.
func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&WorkerDeps{
		Suppliers: c.evidence,
		Services:  c.services,
		Scoring:   &c.config.Scoring,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if c.config.DisableWorkers {
		c.logger.Info("Background workers disabled")
		return nil
	}

	if err := c.workers.Manager.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	return nil
}

// Getters for accessing container components

// Evidence returns the evidence readers.
func (c *Container) Evidence() port.EvidenceReader {
	return c.evidence
}

// Scores returns the score repository.
func (c *Container) Scores() port.ScoreRepository {
	if c.scores == nil {
		return nil
	}
	return c.scores.Repo
}

// FileStorage returns the report archive, nil when disabled.
func (c *Container) FileStorage() port.FileStorage {
	return c.fileStorage
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	if c.workers == nil {
		return nil
	}
	return c.workers.Manager
}

// RecalcQueue returns the asynchronous recalculation queue.
func (c *Container) RecalcQueue() *worker.RecalcQueue {
	if c.workers == nil {
		return nil
	}
	return c.workers.Queue
}

// PeriodicRecalc returns the periodic recalculation worker. It is usable
// through RunOnce even when not registered for ticking.
func (c *Container) PeriodicRecalc() *worker.PeriodicRecalcWorker {
	if c.workers == nil {
		return nil
	}
	return c.workers.Periodic
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// ServiceLogger returns the container's logger in key-value form.
func (c *Container) ServiceLogger() service.Logger {
	return &zapLoggerAdapter{logger: c.logger}
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces
// of the service, dispatcher and http packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
