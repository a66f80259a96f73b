package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmachain/trustscore/internal/application/scoring"
	"github.com/pharmachain/trustscore/internal/domain/entity"
)

var riskNow = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func freshBatch() *entity.DrugBatch {
	return &entity.DrugBatch{
		ID:             "b1",
		BatchNumber:    "LOT-2025-001",
		Name:           "Paracetamol 500mg",
		ManufacturerID: "m1",
		ExpiryDate:     riskNow.AddDate(1, 0, 0),
		Status:         entity.DrugStatusActive,
		QualityTest:    entity.QualityTest{TestResult: entity.TestResultPassed},
	}
}

func ptrInt(v int) *int { return &v }

func factorKeys(a *entity.DrugRiskAssessment) []string {
	keys := make([]string, 0, len(a.Factors))
	for _, f := range a.Factors {
		keys = append(keys, f.Key)
	}
	return keys
}

func TestAssessRisk_RecalledFailedUnknownTrust(t *testing.T) {
	b := freshBatch()
	b.IsRecalled = true
	b.QualityTest.TestResult = entity.TestResultFailed

	a := scoring.AssessRisk(scoring.RiskInput{Batch: b}, riskNow)

	assert.Equal(t, 100, a.Score)
	assert.Equal(t, entity.RiskCritical, a.Level)
	assert.Equal(t, []string{
		scoring.FactorRecalled,
		scoring.FactorQualityTestFailed,
		scoring.FactorTrustUnknown,
		scoring.FactorNoReviews,
	}, factorKeys(a))
}

func TestAssessRisk_MitigatingFactorsClampAtZero(t *testing.T) {
	a := scoring.AssessRisk(scoring.RiskInput{
		Batch:             freshBatch(),
		ManufacturerTrust: ptrInt(850),
		Reviews:           reviews(5, 4, 5),
	}, riskNow)

	assert.Equal(t, 0, a.Score)
	assert.Equal(t, entity.RiskLow, a.Level)
	require.Len(t, a.Factors, 2)
	assert.Equal(t, -5, a.Factors[0].Weight)
	assert.Equal(t, -5, a.Factors[1].Weight)
}

func TestAssessRisk_Expiry(t *testing.T) {
	tests := []struct {
		name   string
		expiry time.Time
		want   string
		weight int
	}{
		{"expired yesterday", riskNow.AddDate(0, 0, -1), scoring.FactorExpired, 50},
		{"expires in ten days", riskNow.AddDate(0, 0, 10), scoring.FactorExpiringSoon, 20},
		{"expires in exactly thirty days", riskNow.Add(scoring.ExpiryWarningWindow), scoring.FactorExpiringSoon, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := freshBatch()
			b.ExpiryDate = tt.expiry
			a := scoring.AssessRisk(scoring.RiskInput{Batch: b, ManufacturerTrust: ptrInt(700)}, riskNow)

			require.NotEmpty(t, a.Factors)
			assert.Equal(t, tt.want, a.Factors[0].Key)
			assert.Equal(t, tt.weight, a.Factors[0].Weight)
			assert.Equal(t, tt.weight+10, a.Score)
		})
	}

	b := freshBatch()
	b.ExpiryDate = riskNow.AddDate(0, 2, 0)
	a := scoring.AssessRisk(scoring.RiskInput{Batch: b, ManufacturerTrust: ptrInt(700)}, riskNow)
	assert.NotContains(t, factorKeys(a), scoring.FactorExpiringSoon)

	missing := freshBatch()
	missing.ExpiryDate = time.Time{}
	a = scoring.AssessRisk(scoring.RiskInput{Batch: missing, ManufacturerTrust: ptrInt(700)}, riskNow)
	require.NotEmpty(t, a.Factors)
	assert.Equal(t, scoring.FactorExpiryUnknown, a.Factors[0].Key)
	assert.Equal(t, 0, a.Factors[0].Weight)
	assert.NotContains(t, factorKeys(a), scoring.FactorExpired)
	assert.Equal(t, 10, a.Score, "only the moderate manufacturer trust counts")
}

func TestAssessRisk_ManufacturerTrustTiers(t *testing.T) {
	tests := []struct {
		trust int
		key   string
		score int
	}{
		{399, scoring.FactorTrustLow, 30},
		{400, scoring.FactorTrustFair, 20},
		{599, scoring.FactorTrustFair, 20},
		{600, scoring.FactorTrustModerate, 10},
		{800, scoring.FactorTrustHigh, 0},
	}

	for _, tt := range tests {
		a := scoring.AssessRisk(scoring.RiskInput{Batch: freshBatch(), ManufacturerTrust: ptrInt(tt.trust)}, riskNow)
		assert.Contains(t, factorKeys(a), tt.key, "trust %d", tt.trust)
		assert.Equal(t, tt.score, a.Score, "trust %d", tt.trust)
	}
}

func TestAssessRisk_ReviewSentiment(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		keys    []string
		score   int
	}{
		{"poor with many negatives", []int{1, 2, 3}, []string{scoring.FactorPoorReviews, scoring.FactorNegativeReviewRatio}, 50},
		{"mixed", []int{3, 3, 4, 2}, []string{scoring.FactorMixedReviews}, 20},
		{"positive", []int{4, 4, 5}, []string{scoring.FactorPositiveReviews}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := scoring.AssessRisk(scoring.RiskInput{
				Batch:             freshBatch(),
				ManufacturerTrust: ptrInt(600),
				Reviews:           reviews(tt.ratings...),
			}, riskNow)

			for _, k := range tt.keys {
				assert.Contains(t, factorKeys(a), k)
			}
			assert.Equal(t, tt.score, a.Score)
		})
	}
}

func TestAssessRisk_Pure(t *testing.T) {
	b := freshBatch()
	b.QualityTest.TestResult = entity.TestResultPending
	in := scoring.RiskInput{Batch: b, ManufacturerTrust: ptrInt(450), Reviews: reviews(2, 4)}

	first := scoring.AssessRisk(in, riskNow)
	second := scoring.AssessRisk(in, riskNow)

	assert.Equal(t, first, second)
	assert.Equal(t, entity.RiskMedium, first.Level)
}
