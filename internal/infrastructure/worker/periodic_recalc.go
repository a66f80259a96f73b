package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// RankingRefresher recomputes one supplier's cached rank
type RankingRefresher interface {
	UpdateRanking(ctx context.Context, supplierID string) (*entity.Ranking, error)
}

// PeriodicRecalcConfig holds configuration for the periodic recompute
type PeriodicRecalcConfig struct {
	Interval    time.Duration
	Concurrency int
	RunOnStart  bool
}

// DefaultPeriodicRecalcConfig returns default configuration
func DefaultPeriodicRecalcConfig() PeriodicRecalcConfig {
	return PeriodicRecalcConfig{
		Interval:    24 * time.Hour,
		Concurrency: 4,
	}
}

// RunSummary describes one full recompute pass
type RunSummary struct {
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	Suppliers    int           `json:"suppliers" yaml:"suppliers"`
	Recalculated int           `json:"recalculated" yaml:"recalculated"`
	Failed       int           `json:"failed" yaml:"failed"`
	RankFailures int           `json:"rank_failures" yaml:"rank_failures"`
}

// PeriodicRecalcWorker recalculates every eligible supplier on an interval,
// then refreshes every rank so the snapshots reflect the new population.
type PeriodicRecalcWorker struct {
	config       PeriodicRecalcConfig
	suppliers    port.SupplierReader
	recalculator Recalculator
	rankings     RankingRefresher
	logger       *zap.Logger

	runMu sync.Mutex // one pass at a time

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastRun   *RunSummary
	lastError error
}

// NewPeriodicRecalcWorker creates a new periodic recompute worker
func NewPeriodicRecalcWorker(
	config PeriodicRecalcConfig,
	suppliers port.SupplierReader,
	recalculator Recalculator,
	rankings RankingRefresher,
	logger *zap.Logger,
) *PeriodicRecalcWorker {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultPeriodicRecalcConfig().Concurrency
	}
	return &PeriodicRecalcWorker{
		config:       config,
		suppliers:    suppliers,
		recalculator: recalculator,
		rankings:     rankings,
		logger:       logger,
	}
}

// Start begins the ticker loop. A non-positive interval disables the loop;
// RunOnce still works.
func (w *PeriodicRecalcWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("periodic recalculation worker already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.isRunning = true
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	if w.config.Interval <= 0 {
		close(done)
		w.logger.Info("PeriodicRecalcWorker disabled (no interval)")
		return nil
	}

	w.logger.Info("PeriodicRecalcWorker started",
		zap.Duration("interval", w.config.Interval),
		zap.Bool("run_on_start", w.config.RunOnStart))

	go w.loop(runCtx, done)
	return nil
}

// Stop cancels the loop and waits for an in-progress pass to return
func (w *PeriodicRecalcWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	w.logger.Info("PeriodicRecalcWorker stopped")
	return nil
}

// Name implements Worker
func (w *PeriodicRecalcWorker) Name() string {
	return "PeriodicRecalcWorker"
}

// LastRun returns the summary of the most recent pass, if any
func (w *PeriodicRecalcWorker) LastRun() (*RunSummary, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRun, w.lastError
}

// Status implements StatusReporter
func (w *PeriodicRecalcWorker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := Status{Name: w.Name(), Running: w.isRunning, Details: map[string]interface{}{
		"interval": w.config.Interval.String(),
	}}
	if w.lastRun != nil {
		st.Details["last_run_at"] = w.lastRun.StartedAt
		st.Details["last_run_failed"] = w.lastRun.Failed
	}
	if w.lastError != nil {
		st.Details["last_error"] = w.lastError.Error()
	}
	return st
}

func (w *PeriodicRecalcWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if w.config.RunOnStart {
		w.runAndRecord(ctx)
	}

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runAndRecord(ctx)
		}
	}
}

func (w *PeriodicRecalcWorker) runAndRecord(ctx context.Context) {
	summary, err := w.RunOnce(ctx)
	if err != nil {
		w.logger.Error("Periodic recalculation failed", zap.Error(err))
	}
	w.mu.Lock()
	if summary != nil {
		w.lastRun = summary
	}
	w.lastError = err
	w.mu.Unlock()
}

// RunOnce recalculates every eligible supplier, then refreshes ranks.
// Per-supplier failures are counted and logged, not returned.
func (w *PeriodicRecalcWorker) RunOnce(ctx context.Context) (*RunSummary, error) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	summary := &RunSummary{StartedAt: time.Now()}
	suppliers, err := w.suppliers.ListEligibleSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	summary.Suppliers = len(suppliers)

	var mu sync.Mutex
	recalculated := make([]string, 0, len(suppliers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)
	for _, s := range suppliers {
		id := s.ID
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			_, err := w.recalculator.RecalculateTrustScore(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				w.logger.Error("Periodic recalculation of supplier failed",
					zap.String("supplier_id", id),
					zap.Error(err))
				return nil
			}
			summary.Recalculated++
			recalculated = append(recalculated, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, fmt.Errorf("recalculation pass interrupted: %w", err)
	}

	if w.rankings != nil {
		for _, id := range recalculated {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			if _, err := w.rankings.UpdateRanking(ctx, id); err != nil {
				summary.RankFailures++
				w.logger.Error("Rank refresh failed",
					zap.String("supplier_id", id),
					zap.Error(err))
			}
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	w.logger.Info("Periodic recalculation completed",
		zap.Int("suppliers", summary.Suppliers),
		zap.Int("recalculated", summary.Recalculated),
		zap.Int("failed", summary.Failed),
		zap.Int("rank_failures", summary.RankFailures),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}
