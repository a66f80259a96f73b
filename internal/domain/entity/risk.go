package entity

import "time"

// RiskLevel classifies a drug batch risk score
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Risk score bounds and level thresholds
const (
	MinRiskScore = 0
	MaxRiskScore = 100

	RiskCriticalThreshold = 80
	RiskHighThreshold     = 60
	RiskMediumThreshold   = 40
)

// RiskLevelFor maps a clamped risk score to its level.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= RiskCriticalThreshold:
		return RiskCritical
	case score >= RiskHighThreshold:
		return RiskHigh
	case score >= RiskMediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskFactor is one entry of the explanation trail. Negative weights mitigate risk.
type RiskFactor struct {
	Key         string `json:"key" yaml:"key"`
	Weight      int    `json:"weight" yaml:"weight"`
	Description string `json:"description" yaml:"description"`
}

// DrugRiskAssessment is the explainable risk score of one drug batch.
// It is computed on demand and never stored.
type DrugRiskAssessment struct {
	DrugBatchID    string       `json:"drug_batch_id" yaml:"drug_batch_id"`
	BatchNumber    string       `json:"batch_number" yaml:"batch_number"`
	DrugName       string       `json:"drug_name" yaml:"drug_name"`
	ManufacturerID string       `json:"manufacturer_id" yaml:"manufacturer_id"`
	Score          int          `json:"score" yaml:"score"`
	Level          RiskLevel    `json:"level" yaml:"level"`
	Factors        []RiskFactor `json:"factors" yaml:"factors"`
	AssessedAt     time.Time    `json:"assessed_at" yaml:"assessed_at"`
}
