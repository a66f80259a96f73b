package container

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/pharmachain/trustscore/internal/application/dispatcher"
	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/application/service"
	"github.com/pharmachain/trustscore/internal/domain/event"
	"github.com/pharmachain/trustscore/internal/infrastructure/export"
	"github.com/pharmachain/trustscore/internal/infrastructure/persistence/memory"
	"github.com/pharmachain/trustscore/internal/infrastructure/persistence/mongostore"
	"github.com/pharmachain/trustscore/internal/infrastructure/persistence/repository"
	"github.com/pharmachain/trustscore/internal/infrastructure/persistence/sqlite"
	"github.com/pharmachain/trustscore/internal/infrastructure/storage"
	"github.com/pharmachain/trustscore/internal/infrastructure/worker"
	"github.com/pharmachain/trustscore/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ScoreBundle holds the score repository and its transaction manager.
type ScoreBundle struct {
	Repo      port.ScoreRepository
	TxManager port.TransactionManager
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Evidence   port.EvidenceReader
	Scores     *ScoreBundle
	Dispatcher dispatcher.Dispatcher
	Storage    port.FileStorage
	Logger     *zap.Logger
}

// WorkerDeps holds dependencies for creating workers.
type WorkerDeps struct {
	Suppliers port.SupplierReader
	Services  *ServiceBundle
	Scoring   *ScoringConfig
	Logger    *zap.Logger
}

// WorkerBundle holds the worker manager and the workers callers reach directly.
type WorkerBundle struct {
	Manager  *worker.WorkerManager
	Queue    *worker.RecalcQueue
	Periodic *worker.PeriodicRecalcWorker
}

// ProvideDatabase opens SQLite and runs the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(database.Migrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideMongoClient connects and pings MongoDB.
func ProvideMongoClient(ctx context.Context, cfg *MongoConfig, logger *zap.Logger) (*mongo.Client, error) {
	if cfg == nil || cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().Mongo.ConnectTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info("Connected to MongoDB", zap.String("database", cfg.Database))
	return client, nil
}

// ProvideEvidence creates the evidence readers for the configured backend.
func ProvideEvidence(cfg *EvidenceConfig, mongoCfg *MongoConfig, client *mongo.Client, logger *zap.Logger) (port.EvidenceReader, error) {
	switch cfg.Backend {
	case BackendMongo:
		if client == nil {
			return nil, fmt.Errorf("mongo client is required for mongo evidence")
		}
		return mongostore.NewEvidenceStore(client, mongoCfg.Database, collections(mongoCfg)), nil
	case BackendMemory, "":
		store := memory.NewStore()
		if cfg.FixturesPath != "" {
			if err := store.LoadFixturesFile(cfg.FixturesPath); err != nil {
				return nil, err
			}
			logger.Info("Evidence fixtures loaded", zap.String("path", cfg.FixturesPath))
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown evidence backend %q", cfg.Backend)
	}
}

// ProvideScoreRepository creates the score repository for the configured backend.
func ProvideScoreRepository(ctx context.Context, cfg *StorageConfig, db *DatabaseBundle, mongoCfg *MongoConfig, client *mongo.Client, logger *zap.Logger) (*ScoreBundle, error) {
	switch cfg.Backend {
	case BackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("database is required for sqlite storage")
		}
		return &ScoreBundle{
			Repo:      repository.NewScoreRepository(db.TransactionMgr, logger),
			TxManager: db.TransactionMgr,
		}, nil
	case BackendMongo:
		if client == nil {
			return nil, fmt.Errorf("mongo client is required for mongo storage")
		}
		store := mongostore.NewScoreStore(client, mongoCfg.Database, collections(mongoCfg))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return &ScoreBundle{Repo: store, TxManager: store}, nil
	case BackendMemory, "":
		store := memory.NewStore()
		return &ScoreBundle{Repo: store, TxManager: store}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ProvideStorage creates the report archive, or nil when none is configured.
func ProvideStorage(cfg *ExportConfig, logger *zap.Logger) port.FileStorage {
	if cfg == nil || cfg.ReportsDir == "" {
		return nil
	}
	return storage.NewLocalFileStorage(cfg.ReportsDir, logger)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}))
}

// ProvideServices creates all application services and subscribes the
// ranking and badge follow-ons to score events.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Evidence == nil || deps.Scores == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("service dependencies are incomplete")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}
	locks := service.NewSupplierLocks()

	trust := service.NewTrustScoreService(deps.Evidence, deps.Scores.Repo, deps.Scores.TxManager, deps.Dispatcher, locks, logger)
	ranking := service.NewRankingEngine(deps.Scores.Repo, deps.Dispatcher, locks, logger)
	badges := service.NewBadgeEngine(deps.Scores.Repo, deps.Dispatcher, locks, logger)
	risk := service.NewRiskService(deps.Evidence, deps.Scores.Repo, logger)
	exporter := service.NewExportService(trust, export.NewExcelRankingExporter(deps.Logger), deps.Storage, logger)

	for _, t := range []event.Type{event.TypeScoreRecalculated, event.TypeScoreAdjusted} {
		deps.Dispatcher.SubscribeNamed(t, "ranking", ranking.HandleScoreChanged)
		deps.Dispatcher.SubscribeNamed(t, "badges", badges.HandleScoreChanged)
	}
	deps.Dispatcher.SubscribeNamed(event.TypeRankingUpdated, "badges", badges.HandleScoreChanged)

	return &ServiceBundle{
		Trust:   trust,
		Ranking: ranking,
		Badges:  badges,
		Risk:    risk,
		Export:  exporter,
		Locks:   locks,
	}, nil
}

// ProvideWorkers creates the recalculation queue and the periodic job.
// The periodic job is registered only when an interval is configured.
func ProvideWorkers(deps *WorkerDeps) (*WorkerBundle, error) {
	if deps == nil || deps.Services == nil || deps.Scoring == nil {
		return nil, fmt.Errorf("worker dependencies are incomplete")
	}

	manager := worker.NewWorkerManager(deps.Logger)

	queue := worker.NewRecalcQueue(worker.RecalcQueueConfig{
		QueueSize:   deps.Scoring.QueueSize,
		Concurrency: deps.Scoring.QueueConcurrency,
		JobTimeout:  deps.Scoring.JobTimeout,
	}, deps.Services.Trust, deps.Logger)
	manager.Register(queue)

	periodic := worker.NewPeriodicRecalcWorker(worker.PeriodicRecalcConfig{
		Interval:    deps.Scoring.PeriodicInterval,
		Concurrency: deps.Scoring.PeriodicConcurrency,
		RunOnStart:  deps.Scoring.RunOnStart,
	}, deps.Suppliers, deps.Services.Trust, deps.Services.Ranking, deps.Logger)
	if deps.Scoring.PeriodicInterval > 0 {
		manager.Register(periodic)
	}

	return &WorkerBundle{Manager: manager, Queue: queue, Periodic: periodic}, nil
}

func collections(cfg *MongoConfig) mongostore.Collections {
	colls := mongostore.DefaultCollections()
	if cfg.ScoresCollection != "" {
		colls.Scores = cfg.ScoresCollection
	}
	return colls
}
