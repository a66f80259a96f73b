package entity

import (
	"time"

	"github.com/google/uuid"
)

// TrustLevel is the letter tier derived from a trust score
type TrustLevel string

const (
	TrustLevelA TrustLevel = "A"
	TrustLevelB TrustLevel = "B"
	TrustLevelC TrustLevel = "C"
	TrustLevelD TrustLevel = "D"
)

// TrustLevelFor maps a trust score to its tier.
func TrustLevelFor(score int) TrustLevel {
	switch {
	case score >= TrustLevelAThreshold:
		return TrustLevelA
	case score >= TrustLevelBThreshold:
		return TrustLevelB
	case score >= TrustLevelCThreshold:
		return TrustLevelC
	default:
		return TrustLevelD
	}
}

// ClampScore bounds a value to the trust score range.
func ClampScore(v int) int {
	if v < MinTrustScore {
		return MinTrustScore
	}
	if v > MaxTrustScore {
		return MaxTrustScore
	}
	return v
}

// ClampDelta bounds a score change to the width of the score range, so
// prev+delta cannot overflow for any stored or requested amount.
func ClampDelta(v int) int {
	if v > MaxTrustScore {
		return MaxTrustScore
	}
	if v < -MaxTrustScore {
		return -MaxTrustScore
	}
	return v
}

// ScoreBreakdown holds the five weighted sub-scores
type ScoreBreakdown struct {
	Review     int `json:"review" bson:"review" yaml:"review"`
	Compliance int `json:"compliance" bson:"compliance" yaml:"compliance"`
	Quality    int `json:"quality" bson:"quality" yaml:"quality"`
	Efficiency int `json:"efficiency" bson:"efficiency" yaml:"efficiency"`
	Timeliness int `json:"timeliness" bson:"timeliness" yaml:"timeliness"`
}

// DefaultBreakdown returns the neutral prior assigned to new records.
func DefaultBreakdown() ScoreBreakdown {
	return ScoreBreakdown{
		Review:     DefaultReviewScore,
		Compliance: DefaultComplianceScore,
		Quality:    DefaultQualityScore,
		Efficiency: DefaultEfficiencyScore,
		Timeliness: DefaultTimelinessScore,
	}
}

// Sum adds the five sub-scores.
func (b ScoreBreakdown) Sum() int {
	return b.Review + b.Compliance + b.Quality + b.Efficiency + b.Timeliness
}

// ReviewStats snapshots the review evidence behind the review sub-score
type ReviewStats struct {
	TotalReviews       int         `json:"total_reviews" bson:"totalReviews" yaml:"total_reviews"`
	AverageRating      float64     `json:"average_rating" bson:"averageRating" yaml:"average_rating"`
	VerifiedReviews    int         `json:"verified_reviews" bson:"verifiedReviews" yaml:"verified_reviews"`
	PositiveReviews    int         `json:"positive_reviews" bson:"positiveReviews" yaml:"positive_reviews"`
	NegativeReviews    int         `json:"negative_reviews" bson:"negativeReviews" yaml:"negative_reviews"`
	RatingDistribution map[int]int `json:"rating_distribution,omitempty" bson:"ratingDistribution,omitempty" yaml:"rating_distribution,omitempty"`
}

// PositiveRatio returns the share of reviews rated 4 or 5.
func (s ReviewStats) PositiveRatio() float64 {
	if s.TotalReviews == 0 {
		return 0
	}
	return float64(s.PositiveReviews) / float64(s.TotalReviews)
}

// ComplianceStats snapshots signature, task and drug validity evidence
type ComplianceStats struct {
	TotalSignatures       int     `json:"total_signatures" bson:"totalSignatures" yaml:"total_signatures"`
	ValidSignatures       int     `json:"valid_signatures" bson:"validSignatures" yaml:"valid_signatures"`
	SignatureValidityRate float64 `json:"signature_validity_rate" bson:"signatureValidityRate" yaml:"signature_validity_rate"`
	CompletedTasks        int     `json:"completed_tasks" bson:"completedTasks" yaml:"completed_tasks"`
	OnTimeTasks           int     `json:"on_time_tasks" bson:"onTimeTasks" yaml:"on_time_tasks"`
	OnTimeRate            float64 `json:"on_time_rate" bson:"onTimeRate" yaml:"on_time_rate"`
	TotalDrugs            int     `json:"total_drugs" bson:"totalDrugs" yaml:"total_drugs"`
	ValidDrugs            int     `json:"valid_drugs" bson:"validDrugs" yaml:"valid_drugs"`
	RecalledDrugs         int     `json:"recalled_drugs" bson:"recalledDrugs" yaml:"recalled_drugs"`
}

// QualityStats snapshots quality test outcomes for a manufacturer
type QualityStats struct {
	TotalTests              int     `json:"total_tests" bson:"totalTests" yaml:"total_tests"`
	PassedTests             int     `json:"passed_tests" bson:"passedTests" yaml:"passed_tests"`
	FailedTests             int     `json:"failed_tests" bson:"failedTests" yaml:"failed_tests"`
	PendingTests            int     `json:"pending_tests" bson:"pendingTests" yaml:"pending_tests"`
	PassRate                float64 `json:"pass_rate" bson:"passRate" yaml:"pass_rate"`
	DrugQualityRatings      int     `json:"drug_quality_ratings" bson:"drugQualityRatings" yaml:"drug_quality_ratings"`
	AverageDrugQualityScore float64 `json:"average_drug_quality_score" bson:"averageDrugQualityScore" yaml:"average_drug_quality_score"`
}

// EfficiencyStats snapshots task completion evidence
type EfficiencyStats struct {
	TotalTasks        int     `json:"total_tasks" bson:"totalTasks" yaml:"total_tasks"`
	CompletedTasks    int     `json:"completed_tasks" bson:"completedTasks" yaml:"completed_tasks"`
	CompletionRate    float64 `json:"completion_rate" bson:"completionRate" yaml:"completion_rate"`
	RatedTasks        int     `json:"rated_tasks" bson:"ratedTasks" yaml:"rated_tasks"`
	AverageTaskRating float64 `json:"average_task_rating" bson:"averageTaskRating" yaml:"average_task_rating"`
}

// TimelinessStats snapshots on-time delivery evidence
type TimelinessStats struct {
	CompletedTasks int     `json:"completed_tasks" bson:"completedTasks" yaml:"completed_tasks"`
	OnTimeTasks    int     `json:"on_time_tasks" bson:"onTimeTasks" yaml:"on_time_tasks"`
	OnTimeRate     float64 `json:"on_time_rate" bson:"onTimeRate" yaml:"on_time_rate"`
}

// ScoreHistoryEntry records one change of the trust score.
// NewScore always equals ClampScore(PreviousScore + Change).
type ScoreHistoryEntry struct {
	ID            string        `json:"id" bson:"id" yaml:"id"`
	PreviousScore int           `json:"previous_score" bson:"previousScore" yaml:"previous_score"`
	NewScore      int           `json:"new_score" bson:"newScore" yaml:"new_score"`
	Change        int           `json:"change" bson:"change" yaml:"change"`
	Reason        HistoryReason `json:"reason" bson:"reason" yaml:"reason"`
	RelatedID     string        `json:"related_id,omitempty" bson:"relatedId,omitempty" yaml:"related_id,omitempty"`
	RelatedType   string        `json:"related_type,omitempty" bson:"relatedType,omitempty" yaml:"related_type,omitempty"`
	ChangedAt     time.Time     `json:"changed_at" bson:"changedAt" yaml:"changed_at"`
	ChangedBy     string        `json:"changed_by,omitempty" bson:"changedBy,omitempty" yaml:"changed_by,omitempty"`
}

// LedgerEntry is a manual reward or penalty
type LedgerEntry struct {
	ID        string         `json:"id" bson:"id" yaml:"id"`
	Type      AdjustmentType `json:"type" bson:"type" yaml:"type"`
	Amount    int            `json:"amount" bson:"amount" yaml:"amount"`
	Reason    string         `json:"reason" bson:"reason" yaml:"reason"`
	AppliedAt time.Time      `json:"applied_at" bson:"appliedAt" yaml:"applied_at"`
	AppliedBy string         `json:"applied_by,omitempty" bson:"appliedBy,omitempty" yaml:"applied_by,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty" bson:"expiresAt,omitempty" yaml:"expires_at,omitempty"`
}

// ActiveAt reports whether the entry still counts at the given time.
func (l LedgerEntry) ActiveAt(now time.Time) bool {
	return l.ExpiresAt == nil || now.Before(*l.ExpiresAt)
}

// SignedAmount returns the amount with the sign of the entry type, bounded
// to the score range.
func (l LedgerEntry) SignedAmount() int {
	return l.Type.Sign() * ClampDelta(l.Amount)
}

// Badge is an achievement held by a supplier
type Badge struct {
	ID          BadgeID   `json:"id" bson:"id" yaml:"id"`
	Name        string    `json:"name" bson:"name" yaml:"name"`
	Description string    `json:"description" bson:"description" yaml:"description"`
	AwardedAt   time.Time `json:"awarded_at" bson:"awardedAt" yaml:"awarded_at"`
}

// Ranking is the cached rank snapshot. Zero ranks mean not yet computed.
type Ranking struct {
	Overall     int        `json:"overall" bson:"overall" yaml:"overall"`
	ByRole      int        `json:"by_role" bson:"byRole" yaml:"by_role"`
	LastUpdated *time.Time `json:"last_updated,omitempty" bson:"lastUpdated,omitempty" yaml:"last_updated,omitempty"`
}

// SupplierScore is the persisted trust score record of one supplier
type SupplierScore struct {
	SupplierID   string `json:"supplier_id" bson:"supplier" yaml:"supplier_id"`
	SupplierName string `json:"supplier_name" bson:"supplierName" yaml:"supplier_name"`
	Role         Role   `json:"role" bson:"role" yaml:"role"`

	TrustScore int            `json:"trust_score" bson:"trustScore" yaml:"trust_score"`
	BaseScore  int            `json:"base_score" bson:"baseScore" yaml:"base_score"`
	TrustLevel TrustLevel     `json:"trust_level" bson:"trustLevel" yaml:"trust_level"`
	Breakdown  ScoreBreakdown `json:"score_breakdown" bson:"scoreBreakdown" yaml:"score_breakdown"`

	ReviewStats     ReviewStats     `json:"review_stats" bson:"reviewStats" yaml:"review_stats"`
	ComplianceStats ComplianceStats `json:"compliance_stats" bson:"complianceStats" yaml:"compliance_stats"`
	QualityStats    QualityStats    `json:"quality_stats" bson:"qualityStats" yaml:"quality_stats"`
	EfficiencyStats EfficiencyStats `json:"efficiency_stats" bson:"efficiencyStats" yaml:"efficiency_stats"`
	TimelinessStats TimelinessStats `json:"timeliness_stats" bson:"timelinessStats" yaml:"timeliness_stats"`

	ScoreHistory        []ScoreHistoryEntry `json:"score_history" bson:"scoreHistory" yaml:"score_history"`
	RewardsAndPenalties []LedgerEntry       `json:"rewards_and_penalties" bson:"rewardsAndPenalties" yaml:"rewards_and_penalties"`
	Badges              []Badge             `json:"badges" bson:"badges" yaml:"badges"`
	Ranking             Ranking             `json:"ranking" bson:"ranking" yaml:"ranking"`

	Version        int64      `json:"version" bson:"version" yaml:"version"`
	LastCalculated *time.Time `json:"last_calculated,omitempty" bson:"lastCalculated,omitempty" yaml:"last_calculated,omitempty"`
	CreatedAt      time.Time  `json:"created_at" bson:"createdAt" yaml:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updatedAt" yaml:"updated_at"`
}

// NewSupplierScore creates a record holding the neutral prior for a supplier.
// Version 0 marks a record that has never been stored.
func NewSupplierScore(supplier *Supplier, now time.Time) *SupplierScore {
	breakdown := DefaultBreakdown()
	s := &SupplierScore{
		SupplierID:          supplier.ID,
		SupplierName:        supplier.DisplayName(),
		Role:                supplier.Role,
		TrustScore:          breakdown.Sum(),
		BaseScore:           breakdown.Sum(),
		Breakdown:           breakdown,
		ScoreHistory:        []ScoreHistoryEntry{},
		RewardsAndPenalties: []LedgerEntry{},
		Badges:              []Badge{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.RefreshTrustLevel()
	return s
}

// IsNew reports whether the record has not been persisted yet.
func (s *SupplierScore) IsNew() bool {
	return s.Version == 0
}

// RefreshTrustLevel derives TrustLevel from TrustScore.
func (s *SupplierScore) RefreshTrustLevel() {
	s.TrustLevel = TrustLevelFor(s.TrustScore)
}

// ScoreChange describes a trust score mutation to be recorded in history
type ScoreChange struct {
	Change      int
	Reason      HistoryReason
	RelatedID   string
	RelatedType string
	ChangedBy   string
}

// AddScoreChange shifts the trust score by change.Change, clamps it and
// appends exactly one history entry.
func (s *SupplierScore) AddScoreChange(change ScoreChange, now time.Time) ScoreHistoryEntry {
	prev := s.TrustScore
	delta := ClampDelta(change.Change)
	entry := ScoreHistoryEntry{
		ID:            uuid.New().String(),
		PreviousScore: prev,
		NewScore:      ClampScore(prev + delta),
		Change:        delta,
		Reason:        change.Reason,
		RelatedID:     change.RelatedID,
		RelatedType:   change.RelatedType,
		ChangedAt:     now,
		ChangedBy:     change.ChangedBy,
	}
	s.ScoreHistory = append(s.ScoreHistory, entry)
	s.TrustScore = entry.NewScore
	s.RefreshTrustLevel()
	s.UpdatedAt = now
	return entry
}

// NetAdjustment sums the signed amounts of ledger entries still active at now.
func (s *SupplierScore) NetAdjustment(now time.Time) int {
	net := 0
	for _, entry := range s.RewardsAndPenalties {
		if entry.ActiveAt(now) {
			net += entry.SignedAmount()
		}
	}
	return net
}

// AppendLedgerEntry appends a manual adjustment to the ledger.
func (s *SupplierScore) AppendLedgerEntry(entry LedgerEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	s.RewardsAndPenalties = append(s.RewardsAndPenalties, entry)
}

// HasBadge reports whether the badge id is already held.
func (s *SupplierScore) HasBadge(id BadgeID) bool {
	for _, b := range s.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// AddBadge appends a badge unless the id is already held. It returns true
// when the badge was added.
func (s *SupplierScore) AddBadge(badge Badge) bool {
	if s.HasBadge(badge.ID) {
		return false
	}
	s.Badges = append(s.Badges, badge)
	return true
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *SupplierScore) Clone() *SupplierScore {
	if s == nil {
		return nil
	}
	c := *s
	c.ScoreHistory = append([]ScoreHistoryEntry(nil), s.ScoreHistory...)
	c.RewardsAndPenalties = append([]LedgerEntry(nil), s.RewardsAndPenalties...)
	c.Badges = append([]Badge(nil), s.Badges...)
	if s.ReviewStats.RatingDistribution != nil {
		c.ReviewStats.RatingDistribution = make(map[int]int, len(s.ReviewStats.RatingDistribution))
		for k, v := range s.ReviewStats.RatingDistribution {
			c.ReviewStats.RatingDistribution[k] = v
		}
	}
	return &c
}

// ScoreSummary is the ranking view of a score record
type ScoreSummary struct {
	Position     int        `json:"position" yaml:"position"`
	SupplierID   string     `json:"supplier_id" yaml:"supplier_id"`
	SupplierName string     `json:"supplier_name" yaml:"supplier_name"`
	Role         Role       `json:"role" yaml:"role"`
	TrustScore   int        `json:"trust_score" yaml:"trust_score"`
	TrustLevel   TrustLevel `json:"trust_level" yaml:"trust_level"`
	Badges       []BadgeID  `json:"badges" yaml:"badges"`
	Ranking      Ranking    `json:"ranking" yaml:"ranking"`
}

// Summary builds the ranking view of the record.
func (s *SupplierScore) Summary() ScoreSummary {
	badges := make([]BadgeID, 0, len(s.Badges))
	for _, b := range s.Badges {
		badges = append(badges, b.ID)
	}
	return ScoreSummary{
		SupplierID:   s.SupplierID,
		SupplierName: s.SupplierName,
		Role:         s.Role,
		TrustScore:   s.TrustScore,
		TrustLevel:   s.TrustLevel,
		Badges:       badges,
		Ranking:      s.Ranking,
	}
}
