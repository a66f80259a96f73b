package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmachain/trustscore/internal/application/dispatcher"
	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/application/scoring"
	"github.com/pharmachain/trustscore/internal/domain/entity"
	"github.com/pharmachain/trustscore/internal/domain/event"
)

// BadgeEngine awards achievement badges. Badges are only ever added.
type BadgeEngine interface {
	// AwardBadges evaluates the rules and stores newly earned badges
	AwardBadges(ctx context.Context, supplierID string) ([]entity.Badge, error)

	// HandleScoreChanged is the follow-on handler for score and ranking
	// events. It runs while the publisher already holds the supplier lock.
	HandleScoreChanged(ctx context.Context, evt *event.Event) error
}

type badgeEngineImpl struct {
	scoreRepo  port.ScoreRepository
	dispatcher dispatcher.Dispatcher
	locks      *SupplierLocks
	logger     Logger
	now        func() time.Time
}

// NewBadgeEngine creates a new BadgeEngine
func NewBadgeEngine(
	scoreRepo port.ScoreRepository,
	eventDispatcher dispatcher.Dispatcher,
	locks *SupplierLocks,
	logger Logger,
	opts ...Option,
) BadgeEngine {
	o := buildOptions(opts)
	return &badgeEngineImpl{
		scoreRepo:  scoreRepo,
		dispatcher: eventDispatcher,
		locks:      locks,
		logger:     logger,
		now:        o.now,
	}
}

// AwardBadges evaluates badge rules for one supplier
func (e *badgeEngineImpl) AwardBadges(ctx context.Context, supplierID string) ([]entity.Badge, error) {
	unlock := e.locks.Lock(supplierID)
	defer unlock()

	return e.awardLocked(ctx, supplierID)
}

// HandleScoreChanged awards badges for the event's supplier
func (e *badgeEngineImpl) HandleScoreChanged(ctx context.Context, evt *event.Event) error {
	_, err := e.awardLocked(ctx, evt.SupplierID)
	return err
}

func (e *badgeEngineImpl) awardLocked(ctx context.Context, supplierID string) ([]entity.Badge, error) {
	score, err := e.scoreRepo.GetBySupplierID(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("get score: %w", err)
	}

	now := e.now()
	var awarded []entity.Badge
	for _, id := range scoring.EvaluateBadges(score) {
		def, ok := entity.LookupBadge(id)
		if !ok {
			continue
		}
		badge := entity.Badge{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			AwardedAt:   now,
		}
		if score.AddBadge(badge) {
			awarded = append(awarded, badge)
		}
	}

	if len(awarded) == 0 {
		return nil, nil
	}

	score.UpdatedAt = now
	if err := e.scoreRepo.Save(ctx, score); err != nil {
		return nil, fmt.Errorf("save badges: %w", err)
	}

	for _, badge := range awarded {
		e.logger.Info("Badge awarded", "supplier_id", supplierID, "badge", badge.ID)
		if e.dispatcher == nil {
			continue
		}
		evt := event.NewEvent(event.TypeBadgeAwarded, supplierID, map[string]interface{}{
			"badge": string(badge.ID),
			"name":  badge.Name,
		})
		if err := e.dispatcher.Dispatch(ctx, evt); err != nil {
			e.logger.Error("Badge follow-on failed", "supplier_id", supplierID, "badge", badge.ID, "error", err)
		}
	}

	return awarded, nil
}
