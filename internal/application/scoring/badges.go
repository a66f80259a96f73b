package scoring

import "github.com/pharmachain/trustscore/internal/domain/entity"

// Badge rule thresholds
const (
	ExcellenceScoreThreshold   = 900
	CustomerFavoriteMinReviews = 10
	CustomerFavoriteMinRatio   = 0.8
	TopPerformerMaxRank        = 10
)

// BadgeRule decides whether a score record qualifies for a badge
type BadgeRule struct {
	ID      entity.BadgeID
	Matches func(s *entity.SupplierScore) bool
}

// BadgeRules are evaluated independently; several may match at once.
var BadgeRules = []BadgeRule{
	{
		ID: entity.BadgeExcellence900,
		Matches: func(s *entity.SupplierScore) bool {
			return s.TrustScore >= ExcellenceScoreThreshold
		},
	},
	{
		ID: entity.BadgePerfectCompliance,
		Matches: func(s *entity.SupplierScore) bool {
			c := s.ComplianceStats
			return c.TotalSignatures > 0 && c.ValidSignatures == c.TotalSignatures &&
				c.CompletedTasks > 0 && c.OnTimeTasks == c.CompletedTasks
		},
	},
	{
		ID: entity.BadgeQualityMaster,
		Matches: func(s *entity.SupplierScore) bool {
			q := s.QualityStats
			return q.TotalTests > 0 && q.PassedTests == q.TotalTests
		},
	},
	{
		ID: entity.BadgeReliability,
		Matches: func(s *entity.SupplierScore) bool {
			t := s.TimelinessStats
			return s.EfficiencyStats.TotalTasks > 0 && t.CompletedTasks > 0 && t.OnTimeTasks == t.CompletedTasks
		},
	},
	{
		ID: entity.BadgeCustomerFavorite,
		Matches: func(s *entity.SupplierScore) bool {
			r := s.ReviewStats
			return r.TotalReviews >= CustomerFavoriteMinReviews && r.PositiveRatio() >= CustomerFavoriteMinRatio
		},
	},
	{
		ID: entity.BadgeTopPerformer,
		Matches: func(s *entity.SupplierScore) bool {
			return s.Ranking.Overall >= 1 && s.Ranking.Overall <= TopPerformerMaxRank
		},
	},
}

// EvaluateBadges returns every badge id the record currently qualifies for,
// in rule order. It does not look at badges already held.
func EvaluateBadges(s *entity.SupplierScore) []entity.BadgeID {
	var ids []entity.BadgeID
	for _, rule := range BadgeRules {
		if rule.Matches(s) {
			ids = append(ids, rule.ID)
		}
	}
	return ids
}
