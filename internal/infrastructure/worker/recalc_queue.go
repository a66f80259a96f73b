package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pharmachain/trustscore/internal/domain/entity"
)

var (
	// ErrQueueFull is returned by Enqueue when no slot is free
	ErrQueueFull = errors.New("recalculation queue is full")
	// ErrQueueStopped is returned by Enqueue when the queue is not running
	ErrQueueStopped = errors.New("recalculation queue is not running")
)

// Recalculator recomputes one supplier's trust score
type Recalculator interface {
	RecalculateTrustScore(ctx context.Context, supplierID string) (*entity.SupplierScore, error)
}

// RecalcQueueConfig holds configuration for the recalculation queue
type RecalcQueueConfig struct {
	QueueSize   int
	Concurrency int
	JobTimeout  time.Duration
}

// DefaultRecalcQueueConfig returns default configuration
func DefaultRecalcQueueConfig() RecalcQueueConfig {
	return RecalcQueueConfig{
		QueueSize:   256,
		Concurrency: 4,
		JobTimeout:  30 * time.Second,
	}
}

// QueueStats is the observable state of the recalculation queue
type QueueStats struct {
	Running         bool       `json:"running"`
	Pending         int        `json:"pending"`
	Capacity        int        `json:"capacity"`
	Processed       int        `json:"processed"`
	Failed          int        `json:"failed"`
	Coalesced       int        `json:"coalesced"`
	LastError       string     `json:"last_error,omitempty"`
	LastFailedID    string     `json:"last_failed_supplier_id,omitempty"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
}

// RecalcQueue runs trust score recalculations off the request path.
// A supplier already waiting in the queue is not queued twice.
type RecalcQueue struct {
	config       RecalcQueueConfig
	recalculator Recalculator
	logger       *zap.Logger

	jobs chan string
	wg   sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	pending   map[string]bool
	stats     QueueStats
}

// NewRecalcQueue creates a new recalculation queue
func NewRecalcQueue(config RecalcQueueConfig, recalculator Recalculator, logger *zap.Logger) *RecalcQueue {
	defaults := DefaultRecalcQueueConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	return &RecalcQueue{
		config:       config,
		recalculator: recalculator,
		logger:       logger,
		jobs:         make(chan string, config.QueueSize),
		pending:      make(map[string]bool),
		stats:        QueueStats{Capacity: config.QueueSize},
	}
}

// Start launches the queue consumers
func (q *RecalcQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return fmt.Errorf("recalculation queue already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.isRunning = true
	q.mu.Unlock()

	for i := 0; i < q.config.Concurrency; i++ {
		q.wg.Add(1)
		go q.consume(runCtx)
	}

	q.logger.Info("RecalcQueue started",
		zap.Int("queue_size", q.config.QueueSize),
		zap.Int("concurrency", q.config.Concurrency))
	return nil
}

// Stop cancels the consumers and waits for in-flight jobs to return.
// Jobs still waiting in the queue are dropped.
func (q *RecalcQueue) Stop() error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.wg.Wait()

	q.mu.Lock()
	dropped := len(q.pending)
	q.pending = make(map[string]bool)
	stats := q.stats
	q.mu.Unlock()

drain:
	for {
		select {
		case <-q.jobs:
		default:
			break drain
		}
	}

	q.logger.Info("RecalcQueue stopped",
		zap.Int("processed_count", stats.Processed),
		zap.Int("failed_count", stats.Failed),
		zap.Int("dropped", dropped))
	return nil
}

// Name implements Worker
func (q *RecalcQueue) Name() string {
	return "RecalcQueue"
}

// Enqueue schedules a recalculation without waiting for it
func (q *RecalcQueue) Enqueue(supplierID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.isRunning {
		return ErrQueueStopped
	}
	if q.pending[supplierID] {
		q.stats.Coalesced++
		return nil
	}

	select {
	case q.jobs <- supplierID:
		q.pending[supplierID] = true
		return nil
	default:
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, q.config.QueueSize)
	}
}

// Stats returns a snapshot of the queue counters
func (q *RecalcQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Running = q.isRunning
	s.Pending = len(q.pending)
	return s
}

// Status implements StatusReporter
func (q *RecalcQueue) Status() Status {
	s := q.Stats()
	return Status{
		Name:    q.Name(),
		Running: s.Running,
		Details: map[string]interface{}{
			"pending":   s.Pending,
			"processed": s.Processed,
			"failed":    s.Failed,
		},
	}
}

func (q *RecalcQueue) consume(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case supplierID := <-q.jobs:
			q.process(ctx, supplierID)
		}
	}
}

func (q *RecalcQueue) process(ctx context.Context, supplierID string) {
	// cleared before running so a change during the job queues a fresh one
	q.mu.Lock()
	delete(q.pending, supplierID)
	q.mu.Unlock()

	jobCtx, cancel := context.WithTimeout(ctx, q.config.JobTimeout)
	defer cancel()

	start := time.Now()
	score, err := q.recalculator.RecalculateTrustScore(jobCtx, supplierID)
	finished := time.Now()

	q.mu.Lock()
	q.stats.LastProcessedAt = &finished
	if err != nil {
		q.stats.Failed++
		q.stats.LastError = err.Error()
		q.stats.LastFailedID = supplierID
	} else {
		q.stats.Processed++
	}
	q.mu.Unlock()

	if err != nil {
		q.logger.Error("Queued recalculation failed",
			zap.String("supplier_id", supplierID),
			zap.Error(err))
		return
	}
	q.logger.Info("Queued recalculation completed",
		zap.String("supplier_id", supplierID),
		zap.Int("trust_score", score.TrustScore),
		zap.Duration("duration", finished.Sub(start)))
}
