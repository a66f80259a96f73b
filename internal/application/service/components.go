package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/application/scoring"
	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// ComponentFailure reports a component that could not be scored
type ComponentFailure struct {
	Component string `json:"component" yaml:"component"`
	Error     string `json:"error" yaml:"error"`
}

// componentResults holds the output of the five scorers. Fields start at the
// neutral defaults so a tolerated failure leaves the prior in place.
type componentResults struct {
	review     scoring.ReviewResult
	compliance scoring.ComplianceResult
	quality    scoring.QualityResult
	efficiency scoring.EfficiencyResult
	timeliness scoring.TimelinessResult
}

func newComponentResults() *componentResults {
	return &componentResults{
		review:     scoring.ReviewResult{Score: entity.DefaultReviewScore},
		compliance: scoring.ComplianceResult{Score: entity.DefaultComplianceScore},
		quality:    scoring.QualityResult{Score: entity.DefaultQualityScore},
		efficiency: scoring.EfficiencyResult{Score: entity.DefaultEfficiencyScore},
		timeliness: scoring.TimelinessResult{Score: entity.DefaultTimelinessScore},
	}
}

func (r *componentResults) breakdown() entity.ScoreBreakdown {
	return entity.ScoreBreakdown{
		Review:     r.review.Score,
		Compliance: r.compliance.Score,
		Quality:    r.quality.Score,
		Efficiency: r.efficiency.Score,
		Timeliness: r.timeliness.Score,
	}
}

// applyTo copies sub-scores and stats onto a score record.
func (r *componentResults) applyTo(s *entity.SupplierScore) {
	s.Breakdown = r.breakdown()
	s.ReviewStats = r.review.Stats
	s.ComplianceStats = r.compliance.Stats
	s.QualityStats = r.quality.Stats
	s.EfficiencyStats = r.efficiency.Stats
	s.TimelinessStats = r.timeliness.Stats
}

// componentScorer reads evidence and runs the five scorers concurrently
type componentScorer struct {
	evidence port.EvidenceReader
}

// score runs every component. In strict mode the first evidence read failure
// cancels the rest and is returned wrapped in entity.ErrEvidenceRead. In
// tolerant mode failed components keep their neutral default and are listed.
func (c *componentScorer) score(ctx context.Context, supplier *entity.Supplier, strict bool) (*componentResults, []ComponentFailure, error) {
	res := newComponentResults()

	var g *errgroup.Group
	gctx := ctx
	if strict {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = new(errgroup.Group)
	}

	var mu sync.Mutex
	var failures []ComponentFailure

	run := func(name string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			err := fn(gctx)
			if err == nil {
				return nil
			}
			if strict {
				return fmt.Errorf("%s scorer: %w", name, err)
			}
			mu.Lock()
			failures = append(failures, ComponentFailure{Component: name, Error: err.Error()})
			mu.Unlock()
			return nil
		})
	}

	isManufacturer := supplier.Role == entity.RoleManufacturer

	run(scoring.ComponentReview, func(ctx context.Context) error {
		reviews, err := c.evidence.ListApprovedReviews(ctx, supplier.Role.ReviewTargetType(), supplier.ID)
		if err != nil {
			return fmt.Errorf("list reviews: %w", err)
		}
		res.review = scoring.ScoreReviews(reviews)
		return nil
	})

	run(scoring.ComponentCompliance, func(ctx context.Context) error {
		signatures, err := c.evidence.ListSignaturesBySigner(ctx, supplier.ID)
		if err != nil {
			return fmt.Errorf("list signatures: %w", err)
		}
		tasks, err := c.evidence.ListTasksByAssignee(ctx, supplier.ID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		var drugs []*entity.DrugBatch
		if isManufacturer {
			if drugs, err = c.evidence.ListBatchesByManufacturer(ctx, supplier.ID); err != nil {
				return fmt.Errorf("list batches: %w", err)
			}
		}
		res.compliance = scoring.ScoreCompliance(supplier.Role, signatures, tasks, drugs)
		return nil
	})

	run(scoring.ComponentQuality, func(ctx context.Context) error {
		if !isManufacturer {
			res.quality = scoring.ScoreQuality(supplier.Role, nil, nil)
			return nil
		}
		drugs, err := c.evidence.ListBatchesByManufacturer(ctx, supplier.ID)
		if err != nil {
			return fmt.Errorf("list batches: %w", err)
		}
		reviews, err := c.evidence.ListApprovedReviews(ctx, supplier.Role.ReviewTargetType(), supplier.ID)
		if err != nil {
			return fmt.Errorf("list reviews: %w", err)
		}
		res.quality = scoring.ScoreQuality(supplier.Role, drugs, reviews)
		return nil
	})

	run(scoring.ComponentEfficiency, func(ctx context.Context) error {
		tasks, err := c.evidence.ListTasksByAssignee(ctx, supplier.ID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		res.efficiency = scoring.ScoreEfficiency(tasks)
		return nil
	})

	run(scoring.ComponentTimeliness, func(ctx context.Context) error {
		tasks, err := c.evidence.ListTasksByAssignee(ctx, supplier.ID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		res.timeliness = scoring.ScoreTimeliness(tasks)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", entity.ErrEvidenceRead, err)
	}

	order := make(map[string]int, len(scoring.Components))
	for i, key := range scoring.Components {
		order[key] = i
	}
	sort.Slice(failures, func(i, j int) bool {
		return order[failures[i].Component] < order[failures[j].Component]
	})

	return res, failures, nil
}
