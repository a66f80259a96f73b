package scoring

import (
	"fmt"
	"time"

	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// Risk factor keys
const (
	FactorRecalled             = "recalled"
	FactorExpired              = "expired"
	FactorExpiringSoon         = "expiring_soon"
	FactorExpiryUnknown        = "expiry_unknown"
	FactorQualityTestFailed    = "quality_test_failed"
	FactorQualityTestPending   = "quality_test_pending"
	FactorTrustUnknown         = "manufacturer_trust_unknown"
	FactorTrustLow             = "manufacturer_trust_low"
	FactorTrustFair            = "manufacturer_trust_fair"
	FactorTrustModerate        = "manufacturer_trust_moderate"
	FactorTrustHigh            = "manufacturer_trust_high"
	FactorNoReviews            = "no_reviews"
	FactorPoorReviews          = "poor_reviews"
	FactorMixedReviews         = "mixed_reviews"
	FactorPositiveReviews      = "positive_reviews"
	FactorNegativeReviewRatio  = "negative_review_ratio"
	ExpiryWarningWindow        = 30 * 24 * time.Hour
	NegativeReviewRatioTrigger = 0.3
)

// RiskInput is everything the risk model looks at for one batch
type RiskInput struct {
	Batch *entity.DrugBatch
	// ManufacturerTrust is nil when the manufacturer has no score on file
	ManufacturerTrust *int
	Reviews           []*entity.Review
}

// AssessRisk scores a drug batch on the additive factor model. The result
// depends only on the input and now, so repeated calls agree.
func AssessRisk(in RiskInput, now time.Time) *entity.DrugRiskAssessment {
	b := in.Batch
	var factors []entity.RiskFactor
	add := func(key string, weight int, description string) {
		factors = append(factors, entity.RiskFactor{Key: key, Weight: weight, Description: description})
	}

	if b.IsRecalled {
		add(FactorRecalled, 60, "Batch has been recalled")
	}

	switch {
	case b.ExpiryDate.IsZero():
		add(FactorExpiryUnknown, 0, "Batch has no expiry date on file")
	case b.ExpiryDate.Before(now):
		add(FactorExpired, 50, fmt.Sprintf("Batch expired on %s", b.ExpiryDate.Format("2006-01-02")))
	case !b.ExpiryDate.After(now.Add(ExpiryWarningWindow)):
		days := int(b.ExpiryDate.Sub(now).Hours() / 24)
		add(FactorExpiringSoon, 20, fmt.Sprintf("Batch expires in %d days", days))
	}

	switch {
	case b.QualityTest.Failed():
		add(FactorQualityTestFailed, 40, "Quality test failed")
	case b.QualityTest.Pending():
		add(FactorQualityTestPending, 10, "Quality test still pending")
	}

	if in.ManufacturerTrust == nil {
		add(FactorTrustUnknown, 10, "Manufacturer has no trust score on file")
	} else {
		trust := *in.ManufacturerTrust
		switch {
		case trust < entity.TrustLevelCThreshold:
			add(FactorTrustLow, 30, fmt.Sprintf("Manufacturer trust score %d is below %d", trust, entity.TrustLevelCThreshold))
		case trust < entity.TrustLevelBThreshold:
			add(FactorTrustFair, 20, fmt.Sprintf("Manufacturer trust score %d is below %d", trust, entity.TrustLevelBThreshold))
		case trust < entity.TrustLevelAThreshold:
			add(FactorTrustModerate, 10, fmt.Sprintf("Manufacturer trust score %d is below %d", trust, entity.TrustLevelAThreshold))
		default:
			add(FactorTrustHigh, -5, fmt.Sprintf("Manufacturer trust score %d is high", trust))
		}
	}

	if len(in.Reviews) == 0 {
		add(FactorNoReviews, 0, "No reviews for this batch")
	} else {
		sum, negative := 0, 0
		for _, r := range in.Reviews {
			sum += r.OverallRating
			if r.IsNegative() {
				negative++
			}
		}
		avg := float64(sum) / float64(len(in.Reviews))
		switch {
		case avg < 2.5:
			add(FactorPoorReviews, 25, fmt.Sprintf("Average review rating %.2f is poor", avg))
		case avg < 3.5:
			add(FactorMixedReviews, 10, fmt.Sprintf("Average review rating %.2f is mixed", avg))
		default:
			add(FactorPositiveReviews, -5, fmt.Sprintf("Average review rating %.2f is positive", avg))
		}
		if negRatio := ratio(negative, len(in.Reviews)); negRatio >= NegativeReviewRatioTrigger {
			add(FactorNegativeReviewRatio, 15, fmt.Sprintf("%.0f%% of reviews are negative", negRatio*100))
		}
	}

	total := 0
	for _, f := range factors {
		total += f.Weight
	}
	score := roundClamp(float64(total), entity.MaxRiskScore)

	return &entity.DrugRiskAssessment{
		DrugBatchID:    b.ID,
		BatchNumber:    b.BatchNumber,
		DrugName:       b.Name,
		ManufacturerID: b.ManufacturerID,
		Score:          score,
		Level:          entity.RiskLevelFor(score),
		Factors:        factors,
		AssessedAt:     now,
	}
}
