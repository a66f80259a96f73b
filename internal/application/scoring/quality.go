package scoring

import (
	"math"

	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// QualityResult is the quality sub-score and its evidence snapshot
type QualityResult struct {
	Score int
	Stats entity.QualityStats
}

// ScoreQuality computes the quality sub-score in [0,200]. Only manufacturers
// are scored on quality tests; every other role gets the neutral default.
// The average drugQuality criterion rating is reported but never scored.
func ScoreQuality(role entity.Role, drugs []*entity.DrugBatch, reviews []*entity.Review) QualityResult {
	if role != entity.RoleManufacturer {
		return QualityResult{Score: entity.DefaultQualityScore}
	}

	var stats entity.QualityStats
	for _, d := range drugs {
		switch {
		case d.QualityTest.Passed():
			stats.PassedTests++
		case d.QualityTest.Failed():
			stats.FailedTests++
		case d.QualityTest.Pending():
			stats.PendingTests++
		}
	}
	stats.TotalTests = stats.PassedTests + stats.FailedTests

	ratingSum := 0
	for _, r := range reviews {
		if rating, ok := r.CriteriaRatings[entity.CriterionDrugQuality]; ok {
			ratingSum += rating
			stats.DrugQualityRatings++
		}
	}
	if stats.DrugQualityRatings > 0 {
		stats.AverageDrugQualityScore = round2(float64(ratingSum) / float64(stats.DrugQualityRatings))
	}

	if stats.TotalTests == 0 {
		return QualityResult{Score: entity.DefaultQualityScore, Stats: stats}
	}

	passRate := ratio(stats.PassedTests, stats.TotalTests)
	stats.PassRate = round2(passRate * 100)

	base := passRate * 150
	volumeBonus := math.Min(50, (float64(stats.TotalTests)/50)*50)

	return QualityResult{
		Score: roundClamp(base+volumeBonus, entity.MaxQualityScore),
		Stats: stats,
	}
}
