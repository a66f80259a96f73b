package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmachain/trustscore/internal/application/dispatcher"
	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/domain/entity"
	"github.com/pharmachain/trustscore/internal/domain/event"
)

// RankingEngine maintains the cached rank snapshot on score records.
//
// Ranks count strictly greater scores, so equal scores share a rank. The
// snapshot is read-count-write without isolation from other suppliers and is
// only a best-effort view.
type RankingEngine interface {
	// UpdateRanking recomputes and stores one supplier's rank
	UpdateRanking(ctx context.Context, supplierID string) (*entity.Ranking, error)

	// HandleScoreChanged is the follow-on handler for score events. It runs
	// while the publisher already holds the supplier lock.
	HandleScoreChanged(ctx context.Context, evt *event.Event) error
}

type rankingEngineImpl struct {
	scoreRepo  port.ScoreRepository
	dispatcher dispatcher.Dispatcher
	locks      *SupplierLocks
	logger     Logger
	now        func() time.Time
}

// NewRankingEngine creates a new RankingEngine
func NewRankingEngine(
	scoreRepo port.ScoreRepository,
	eventDispatcher dispatcher.Dispatcher,
	locks *SupplierLocks,
	logger Logger,
	opts ...Option,
) RankingEngine {
	o := buildOptions(opts)
	return &rankingEngineImpl{
		scoreRepo:  scoreRepo,
		dispatcher: eventDispatcher,
		locks:      locks,
		logger:     logger,
		now:        o.now,
	}
}

// UpdateRanking recomputes the rank and publishes ranking.updated
func (e *rankingEngineImpl) UpdateRanking(ctx context.Context, supplierID string) (*entity.Ranking, error) {
	unlock := e.locks.Lock(supplierID)
	defer unlock()

	ranking, err := e.updateLocked(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	if e.dispatcher != nil {
		evt := event.NewEvent(event.TypeRankingUpdated, supplierID, map[string]interface{}{
			"overall": ranking.Overall,
			"by_role": ranking.ByRole,
		})
		if err := e.dispatcher.Dispatch(ctx, evt); err != nil {
			e.logger.Error("Ranking follow-on failed", "supplier_id", supplierID, "error", err)
		}
	}
	return ranking, nil
}

// HandleScoreChanged updates the rank of the event's supplier
func (e *rankingEngineImpl) HandleScoreChanged(ctx context.Context, evt *event.Event) error {
	_, err := e.updateLocked(ctx, evt.SupplierID)
	return err
}

func (e *rankingEngineImpl) updateLocked(ctx context.Context, supplierID string) (*entity.Ranking, error) {
	score, err := e.scoreRepo.GetBySupplierID(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("get score: %w", err)
	}

	above, err := e.scoreRepo.CountAbove(ctx, score.TrustScore, "")
	if err != nil {
		return nil, fmt.Errorf("count overall: %w", err)
	}
	aboveInRole, err := e.scoreRepo.CountAbove(ctx, score.TrustScore, score.Role)
	if err != nil {
		return nil, fmt.Errorf("count by role: %w", err)
	}

	now := e.now()
	score.Ranking = entity.Ranking{
		Overall:     above + 1,
		ByRole:      aboveInRole + 1,
		LastUpdated: &now,
	}

	if err := e.scoreRepo.Save(ctx, score); err != nil {
		return nil, fmt.Errorf("save ranking: %w", err)
	}

	e.logger.Info("Ranking updated",
		"supplier_id", supplierID,
		"overall", score.Ranking.Overall,
		"by_role", score.Ranking.ByRole,
	)
	ranking := score.Ranking
	return &ranking, nil
}
