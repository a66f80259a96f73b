package scoring

import (
	"math"

	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// ReviewResult is the review sub-score and its evidence snapshot
type ReviewResult struct {
	Score int
	Stats entity.ReviewStats
}

// ScoreReviews computes the review sub-score in [0,300] from approved reviews
// of the supplier.
func ScoreReviews(reviews []*entity.Review) ReviewResult {
	if len(reviews) == 0 {
		return ReviewResult{Score: entity.DefaultReviewScore}
	}

	stats := entity.ReviewStats{
		TotalReviews:       len(reviews),
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	sum := 0
	for _, r := range reviews {
		sum += r.OverallRating
		if r.IsVerified {
			stats.VerifiedReviews++
		}
		if r.IsPositive() {
			stats.PositiveReviews++
		}
		if r.IsNegative() {
			stats.NegativeReviews++
		}
		if r.OverallRating >= 1 && r.OverallRating <= 5 {
			stats.RatingDistribution[r.OverallRating]++
		}
	}

	n := float64(len(reviews))
	avg := float64(sum) / n
	stats.AverageRating = round2(avg)

	base := (avg / 5) * 200
	volumeBonus := math.Min(50, (n/20)*50)
	verifiedBonus := ratio(stats.VerifiedReviews, len(reviews)) * 50
	negativePenalty := ratio(stats.NegativeReviews, len(reviews)) * 50

	return ReviewResult{
		Score: roundClamp(base+volumeBonus+verifiedBonus-negativePenalty, entity.MaxReviewScore),
		Stats: stats,
	}
}
