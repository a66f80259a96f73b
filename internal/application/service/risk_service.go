package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/application/scoring"
	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// batchAssessConcurrency bounds parallel review reads for one manufacturer
const batchAssessConcurrency = 8

// RiskService assesses drug batch risk
type RiskService interface {
	AssessDrugRisk(ctx context.Context, batchID string) (*entity.DrugRiskAssessment, error)
	AssessManufacturerBatches(ctx context.Context, manufacturerID string) ([]*entity.DrugRiskAssessment, error)
}

type riskServiceImpl struct {
	evidence  port.EvidenceReader
	scoreRepo port.ScoreRepository
	logger    Logger
	now       func() time.Time
}

// NewRiskService creates a new RiskService
func NewRiskService(
	evidence port.EvidenceReader,
	scoreRepo port.ScoreRepository,
	logger Logger,
	opts ...Option,
) RiskService {
	o := buildOptions(opts)
	return &riskServiceImpl{
		evidence:  evidence,
		scoreRepo: scoreRepo,
		logger:    logger,
		now:       o.now,
	}
}

// AssessDrugRisk scores one batch. The manufacturer's score record is read
// but never created.
func (s *riskServiceImpl) AssessDrugRisk(ctx context.Context, batchID string) (*entity.DrugRiskAssessment, error) {
	batch, err := s.evidence.GetDrugBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: get batch: %w", entity.ErrEvidenceRead, err)
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrDrugBatchNotFound, batchID)
	}

	trust, err := s.manufacturerTrust(ctx, batch.ManufacturerID)
	if err != nil {
		return nil, err
	}

	return s.assess(ctx, batch, trust)
}

// AssessManufacturerBatches scores every batch of a manufacturer, riskiest first
func (s *riskServiceImpl) AssessManufacturerBatches(ctx context.Context, manufacturerID string) ([]*entity.DrugRiskAssessment, error) {
	supplier, err := s.evidence.GetSupplier(ctx, manufacturerID)
	if err != nil {
		return nil, fmt.Errorf("%w: get supplier: %w", entity.ErrEvidenceRead, err)
	}
	if supplier == nil || supplier.Role != entity.RoleManufacturer {
		return nil, fmt.Errorf("%w: %s is not a manufacturer", entity.ErrInvalidSupplier, manufacturerID)
	}

	batches, err := s.evidence.ListBatchesByManufacturer(ctx, manufacturerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list batches: %w", entity.ErrEvidenceRead, err)
	}

	trust, err := s.manufacturerTrust(ctx, manufacturerID)
	if err != nil {
		return nil, err
	}

	results := make([]*entity.DrugRiskAssessment, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchAssessConcurrency)
	for i, batch := range batches {
		g.Go(func() error {
			a, err := s.assess(gctx, batch, trust)
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].BatchNumber < results[j].BatchNumber
	})

	s.logger.Info("Manufacturer batches assessed", "manufacturer_id", manufacturerID, "batches", len(results))
	return results, nil
}

func (s *riskServiceImpl) assess(ctx context.Context, batch *entity.DrugBatch, trust *int) (*entity.DrugRiskAssessment, error) {
	reviews, err := s.evidence.ListApprovedReviews(ctx, entity.ReviewTargetDrug, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list batch reviews: %w", entity.ErrEvidenceRead, err)
	}

	return scoring.AssessRisk(scoring.RiskInput{
		Batch:             batch,
		ManufacturerTrust: trust,
		Reviews:           reviews,
	}, s.now()), nil
}

// manufacturerTrust returns nil when no score is on file
func (s *riskServiceImpl) manufacturerTrust(ctx context.Context, manufacturerID string) (*int, error) {
	score, err := s.scoreRepo.GetBySupplierID(ctx, manufacturerID)
	if errors.Is(err, entity.ErrScoreNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get manufacturer score: %w", err)
	}
	trust := score.TrustScore
	return &trust, nil
}
