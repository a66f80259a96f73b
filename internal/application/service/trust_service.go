package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pharmachain/trustscore/internal/application/dispatcher"
	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/domain/entity"
	"github.com/pharmachain/trustscore/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Paging and listing limits
const (
	DefaultRankingLimit = 10
	MaxRankingLimit     = 100
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// AdjustmentMetadata carries optional context for a ledger entry
type AdjustmentMetadata struct {
	HistoryReason entity.HistoryReason `json:"history_reason,omitempty"`
	AppliedBy     string               `json:"applied_by,omitempty"`
	RelatedID     string               `json:"related_id,omitempty"`
	RelatedType   string               `json:"related_type,omitempty"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
}

// AdjustmentRequest is a manual reward or penalty
type AdjustmentRequest struct {
	Type     entity.AdjustmentType `json:"type"`
	Amount   int                   `json:"amount"`
	Reason   string                `json:"reason"`
	Metadata AdjustmentMetadata    `json:"metadata"`
}

// Validate checks required fields and bounds at now, and returns the history
// reason to record.
func (r AdjustmentRequest) Validate(now time.Time) (entity.HistoryReason, error) {
	if r.Type == "" || r.Amount <= 0 || strings.TrimSpace(r.Reason) == "" {
		return "", fmt.Errorf("%w: type, positive amount and reason are required", entity.ErrMissingRequiredField)
	}
	if !r.Type.IsValid() {
		return "", fmt.Errorf("%w: %q", entity.ErrInvalidAdjustmentType, r.Type)
	}
	if r.Amount > entity.MaxAdjustmentAmount {
		return "", fmt.Errorf("%w: amount %d exceeds %d", entity.ErrInvalidAdjustment, r.Amount, entity.MaxAdjustmentAmount)
	}
	if r.Metadata.ExpiresAt != nil && !r.Metadata.ExpiresAt.After(now) {
		return "", fmt.Errorf("%w: expires_at %s is not in the future", entity.ErrInvalidAdjustment, r.Metadata.ExpiresAt.Format(time.RFC3339))
	}
	reason := r.Metadata.HistoryReason
	if reason == "" {
		return r.Type.DefaultReason(), nil
	}
	if reason == entity.ReasonPeriodicUpdate || !reason.IsValid() {
		return "", fmt.Errorf("%w: history reason %q not allowed", entity.ErrInvalidAdjustmentType, reason)
	}
	return reason, nil
}

// RankingQuery selects a ranking listing
type RankingQuery struct {
	Limit  int         `json:"limit"`
	Role   entity.Role `json:"role,omitempty"`
	Search string      `json:"search,omitempty"`
}

// HistoryPage is one page of score history, newest first
type HistoryPage struct {
	SupplierID string                     `json:"supplier_id" yaml:"supplier_id"`
	Entries    []entity.ScoreHistoryEntry `json:"entries" yaml:"entries"`
	Page       int                        `json:"page" yaml:"page"`
	Limit      int                        `json:"limit" yaml:"limit"`
	Total      int                        `json:"total" yaml:"total"`
	TotalPages int                        `json:"total_pages" yaml:"total_pages"`
}

// ScorePreview is a read-only recomputation that is never persisted
type ScorePreview struct {
	SupplierID      string                 `json:"supplier_id" yaml:"supplier_id"`
	Role            entity.Role            `json:"role" yaml:"role"`
	Breakdown       entity.ScoreBreakdown  `json:"score_breakdown" yaml:"score_breakdown"`
	BaseScore       int                    `json:"base_score" yaml:"base_score"`
	NetAdjustment   int                    `json:"net_adjustment" yaml:"net_adjustment"`
	TrustScore      int                    `json:"trust_score" yaml:"trust_score"`
	TrustLevel      entity.TrustLevel      `json:"trust_level" yaml:"trust_level"`
	ReviewStats     entity.ReviewStats     `json:"review_stats" yaml:"review_stats"`
	ComplianceStats entity.ComplianceStats `json:"compliance_stats" yaml:"compliance_stats"`
	QualityStats    entity.QualityStats    `json:"quality_stats" yaml:"quality_stats"`
	EfficiencyStats entity.EfficiencyStats `json:"efficiency_stats" yaml:"efficiency_stats"`
	TimelinessStats entity.TimelinessStats `json:"timeliness_stats" yaml:"timeliness_stats"`
	Failures        []ComponentFailure     `json:"failures,omitempty" yaml:"failures,omitempty"`
	ComputedAt      time.Time              `json:"computed_at" yaml:"computed_at"`
}

// TrustScoreService computes, adjusts and lists supplier trust scores
type TrustScoreService interface {
	GetOrCreateTrustScore(ctx context.Context, supplierID string) (*entity.SupplierScore, error)
	RecalculateTrustScore(ctx context.Context, supplierID string) (*entity.SupplierScore, error)
	PreviewTrustScore(ctx context.Context, supplierID string) (*ScorePreview, error)
	ApplyRewardOrPenalty(ctx context.Context, supplierID string, req AdjustmentRequest) (*entity.SupplierScore, error)
	GetScoreHistory(ctx context.Context, supplierID string, page, limit int) (*HistoryPage, error)
	GetRanking(ctx context.Context, query RankingQuery) ([]entity.ScoreSummary, error)
}

// Option configures services in this package
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type trustScoreServiceImpl struct {
	evidence   port.EvidenceReader
	scoreRepo  port.ScoreRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	locks      *SupplierLocks
	scorer     *componentScorer
	logger     Logger
	now        func() time.Time
}

// NewTrustScoreService creates a new TrustScoreService
func NewTrustScoreService(
	evidence port.EvidenceReader,
	scoreRepo port.ScoreRepository,
	txManager port.TransactionManager,
	eventDispatcher dispatcher.Dispatcher,
	locks *SupplierLocks,
	logger Logger,
	opts ...Option,
) TrustScoreService {
	o := buildOptions(opts)
	return &trustScoreServiceImpl{
		evidence:   evidence,
		scoreRepo:  scoreRepo,
		txManager:  txManager,
		dispatcher: eventDispatcher,
		locks:      locks,
		scorer:     &componentScorer{evidence: evidence},
		logger:     logger,
		now:        o.now,
	}
}

// GetOrCreateTrustScore returns the stored record, computing it on first lookup
func (s *trustScoreServiceImpl) GetOrCreateTrustScore(ctx context.Context, supplierID string) (*entity.SupplierScore, error) {
	score, err := s.scoreRepo.GetBySupplierID(ctx, supplierID)
	if err == nil {
		return score, nil
	}
	if !errors.Is(err, entity.ErrScoreNotFound) {
		return nil, fmt.Errorf("get score: %w", err)
	}

	s.logger.Info("No score on file, computing", "supplier_id", supplierID)
	return s.RecalculateTrustScore(ctx, supplierID)
}

// RecalculateTrustScore runs the full aggregator for one supplier
func (s *trustScoreServiceImpl) RecalculateTrustScore(ctx context.Context, supplierID string) (*entity.SupplierScore, error) {
	unlock := s.locks.Lock(supplierID)
	defer unlock()

	return s.recalculateLocked(ctx, supplierID)
}

func (s *trustScoreServiceImpl) recalculateLocked(ctx context.Context, supplierID string) (*entity.SupplierScore, error) {
	supplier, err := s.loadSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	results, _, err := s.scorer.score(ctx, supplier, true)
	if err != nil {
		s.logger.Error("Scoring aborted", "supplier_id", supplierID, "error", err)
		return nil, err
	}

	now := s.now()
	base := entity.ClampScore(results.breakdown().Sum())
	var saved *entity.SupplierScore
	previous := 0

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		score, err := s.scoreRepo.GetBySupplierID(ctx, supplierID)
		switch {
		case errors.Is(err, entity.ErrScoreNotFound):
			score = entity.NewSupplierScore(supplier, now)
		case err != nil:
			return fmt.Errorf("get score: %w", err)
		}

		previous = score.TrustScore
		total := entity.ClampScore(base + score.NetAdjustment(now))
		if !score.IsNew() && score.TrustScore != total {
			score.AddScoreChange(entity.ScoreChange{
				Change: total - score.TrustScore,
				Reason: entity.ReasonPeriodicUpdate,
			}, now)
		} else {
			score.TrustScore = total
			score.RefreshTrustLevel()
		}

		results.applyTo(score)
		score.BaseScore = base
		score.SupplierName = supplier.DisplayName()
		score.Role = supplier.Role
		score.LastCalculated = &now
		score.UpdatedAt = now

		if err := s.scoreRepo.Save(ctx, score); err != nil {
			return fmt.Errorf("save score: %w", err)
		}
		saved = score
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to persist score", "supplier_id", supplierID, "error", err)
		return nil, err
	}

	s.logger.Info("Trust score recalculated",
		"supplier_id", supplierID,
		"previous_score", previous,
		"trust_score", saved.TrustScore,
		"trust_level", saved.TrustLevel,
	)

	s.dispatchFollowOns(ctx, event.NewEvent(event.TypeScoreRecalculated, supplierID, map[string]interface{}{
		"previous_score": previous,
		"trust_score":    saved.TrustScore,
		"base_score":     base,
	}))

	return s.reload(ctx, supplierID)
}

// PreviewTrustScore scores a supplier without persisting. Failed components
// fall back to their neutral default and are listed in Failures.
func (s *trustScoreServiceImpl) PreviewTrustScore(ctx context.Context, supplierID string) (*ScorePreview, error) {
	supplier, err := s.loadSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	results, failures, err := s.scorer.score(ctx, supplier, false)
	if err != nil {
		return nil, err
	}

	now := s.now()
	net := 0
	existing, err := s.scoreRepo.GetBySupplierID(ctx, supplierID)
	switch {
	case err == nil:
		net = existing.NetAdjustment(now)
	case !errors.Is(err, entity.ErrScoreNotFound):
		s.logger.Error("Preview could not read ledger", "supplier_id", supplierID, "error", err)
		failures = append(failures, ComponentFailure{Component: "ledger", Error: err.Error()})
	}

	breakdown := results.breakdown()
	base := entity.ClampScore(breakdown.Sum())
	total := entity.ClampScore(base + net)

	return &ScorePreview{
		SupplierID:      supplier.ID,
		Role:            supplier.Role,
		Breakdown:       breakdown,
		BaseScore:       base,
		NetAdjustment:   net,
		TrustScore:      total,
		TrustLevel:      entity.TrustLevelFor(total),
		ReviewStats:     results.review.Stats,
		ComplianceStats: results.compliance.Stats,
		QualityStats:    results.quality.Stats,
		EfficiencyStats: results.efficiency.Stats,
		TimelinessStats: results.timeliness.Stats,
		Failures:        failures,
		ComputedAt:      now,
	}, nil
}

// ApplyRewardOrPenalty appends a ledger entry and shifts the trust score by
// the signed amount, recording exactly one history entry
func (s *trustScoreServiceImpl) ApplyRewardOrPenalty(ctx context.Context, supplierID string, req AdjustmentRequest) (*entity.SupplierScore, error) {
	reason, err := req.Validate(s.now())
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(supplierID)
	defer unlock()

	if _, err := s.scoreRepo.GetBySupplierID(ctx, supplierID); err != nil {
		if !errors.Is(err, entity.ErrScoreNotFound) {
			return nil, fmt.Errorf("get score: %w", err)
		}
		if _, err := s.recalculateLocked(ctx, supplierID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	var entry entity.ScoreHistoryEntry
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		score, err := s.scoreRepo.GetBySupplierID(ctx, supplierID)
		if err != nil {
			return fmt.Errorf("get score: %w", err)
		}

		score.AppendLedgerEntry(entity.LedgerEntry{
			Type:      req.Type,
			Amount:    req.Amount,
			Reason:    req.Reason,
			AppliedAt: now,
			AppliedBy: req.Metadata.AppliedBy,
			ExpiresAt: req.Metadata.ExpiresAt,
		})
		entry = score.AddScoreChange(entity.ScoreChange{
			Change:      req.Type.Sign() * req.Amount,
			Reason:      reason,
			RelatedID:   req.Metadata.RelatedID,
			RelatedType: req.Metadata.RelatedType,
			ChangedBy:   req.Metadata.AppliedBy,
		}, now)

		if err := s.scoreRepo.Save(ctx, score); err != nil {
			return fmt.Errorf("save score: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to apply adjustment", "supplier_id", supplierID, "error", err)
		return nil, err
	}

	s.logger.Info("Adjustment applied",
		"supplier_id", supplierID,
		"type", req.Type,
		"amount", req.Amount,
		"previous_score", entry.PreviousScore,
		"trust_score", entry.NewScore,
	)

	s.dispatchFollowOns(ctx, event.NewEvent(event.TypeScoreAdjusted, supplierID, map[string]interface{}{
		"type":           string(req.Type),
		"amount":         req.Amount,
		"previous_score": entry.PreviousScore,
		"trust_score":    entry.NewScore,
	}))

	return s.reload(ctx, supplierID)
}

// GetScoreHistory pages through history newest first
func (s *trustScoreServiceImpl) GetScoreHistory(ctx context.Context, supplierID string, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	result := &HistoryPage{
		SupplierID: supplierID,
		Entries:    []entity.ScoreHistoryEntry{},
		Page:       page,
		Limit:      limit,
	}

	score, err := s.scoreRepo.GetBySupplierID(ctx, supplierID)
	if errors.Is(err, entity.ErrScoreNotFound) {
		if _, err := s.loadSupplier(ctx, supplierID); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get score: %w", err)
	}

	history := score.ScoreHistory
	result.Total = len(history)
	result.TotalPages = (result.Total + limit - 1) / limit

	// compare page counts before multiplying so huge pages cannot overflow
	if page > result.TotalPages {
		return result, nil
	}
	start := (page - 1) * limit
	end := start + limit
	if end > result.Total {
		end = result.Total
	}

	for i := start; i < end; i++ {
		result.Entries = append(result.Entries, history[result.Total-1-i])
	}
	return result, nil
}

// GetRanking lists score summaries ordered by trust score
func (s *trustScoreServiceImpl) GetRanking(ctx context.Context, query RankingQuery) ([]entity.ScoreSummary, error) {
	limit := query.Limit
	if limit < 1 {
		limit = DefaultRankingLimit
	}
	if limit > MaxRankingLimit {
		limit = MaxRankingLimit
	}

	scores, err := s.scoreRepo.List(ctx, port.ScoreQuery{
		Role:   query.Role,
		Search: strings.TrimSpace(query.Search),
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	summaries := make([]entity.ScoreSummary, 0, len(scores))
	for i, score := range scores {
		summary := score.Summary()
		summary.Position = i + 1
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// loadSupplier returns entity.ErrInvalidSupplier for unknown or ineligible accounts
func (s *trustScoreServiceImpl) loadSupplier(ctx context.Context, supplierID string) (*entity.Supplier, error) {
	supplier, err := s.evidence.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("%w: get supplier: %w", entity.ErrEvidenceRead, err)
	}
	if supplier == nil {
		return nil, fmt.Errorf("%w: %s not found", entity.ErrInvalidSupplier, supplierID)
	}
	if !supplier.Role.IsEligible() {
		return nil, fmt.Errorf("%w: role %q is not scored", entity.ErrInvalidSupplier, supplier.Role)
	}
	return supplier, nil
}

func (s *trustScoreServiceImpl) reload(ctx context.Context, supplierID string) (*entity.SupplierScore, error) {
	score, err := s.scoreRepo.GetBySupplierID(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("reload score: %w", err)
	}
	return score, nil
}

// dispatchFollowOns runs ranking and badge handlers. Their failures never
// undo the persisted score.
func (s *trustScoreServiceImpl) dispatchFollowOns(ctx context.Context, evt *event.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Follow-on handlers failed",
			"event_type", evt.Type,
			"supplier_id", evt.SupplierID,
			"error", err,
		)
	}
}
