package entity

// Trust score bounds
const (
	MinTrustScore = 0
	MaxTrustScore = 1000

	// MaxAdjustmentAmount bounds a single reward or penalty. Anything larger
	// already saturates the score.
	MaxAdjustmentAmount = MaxTrustScore
)

// Sub-score caps. They sum to MaxTrustScore.
const (
	MaxReviewScore     = 300
	MaxComplianceScore = 250
	MaxQualityScore    = 200
	MaxEfficiencyScore = 150
	MaxTimelinessScore = 100
)

// Neutral sub-scores used when a component has no evidence (half of each cap)
const (
	DefaultReviewScore     = 150
	DefaultComplianceScore = 125
	DefaultQualityScore    = 100
	DefaultEfficiencyScore = 75
	DefaultTimelinessScore = 50
)

// Trust level thresholds
const (
	TrustLevelAThreshold = 800
	TrustLevelBThreshold = 600
	TrustLevelCThreshold = 400
)

// HistoryReason labels why a trust score changed
type HistoryReason string

const (
	ReasonPeriodicUpdate      HistoryReason = "periodic_update"
	ReasonManualReward        HistoryReason = "manual_reward"
	ReasonManualPenalty       HistoryReason = "manual_penalty"
	ReasonTaskCompleted       HistoryReason = "task_completed"
	ReasonReviewReceived      HistoryReason = "review_received"
	ReasonComplianceViolation HistoryReason = "compliance_violation"
	ReasonDrugRecall          HistoryReason = "drug_recall"
	ReasonQualityIssue        HistoryReason = "quality_issue"
)

// IsValid checks if the reason is one of the defined constants
func (r HistoryReason) IsValid() bool {
	switch r {
	case ReasonPeriodicUpdate,
		ReasonManualReward,
		ReasonManualPenalty,
		ReasonTaskCompleted,
		ReasonReviewReceived,
		ReasonComplianceViolation,
		ReasonDrugRecall,
		ReasonQualityIssue:
		return true
	default:
		return false
	}
}

// AdjustmentType is the kind of a manual ledger entry
type AdjustmentType string

const (
	AdjustmentReward  AdjustmentType = "reward"
	AdjustmentPenalty AdjustmentType = "penalty"
)

// IsValid reports whether the type is reward or penalty.
func (t AdjustmentType) IsValid() bool {
	return t == AdjustmentReward || t == AdjustmentPenalty
}

// Sign returns +1 for rewards and -1 for penalties.
func (t AdjustmentType) Sign() int {
	if t == AdjustmentPenalty {
		return -1
	}
	return 1
}

// DefaultReason returns the history reason used when the caller supplies none.
func (t AdjustmentType) DefaultReason() HistoryReason {
	if t == AdjustmentPenalty {
		return ReasonManualPenalty
	}
	return ReasonManualReward
}
