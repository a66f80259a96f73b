package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmachain/trustscore/internal/application/scoring"
	"github.com/pharmachain/trustscore/internal/domain/entity"
)

func seedBatches(env *testEnv) {
	env.addSupplier("m1", entity.RoleManufacturer, "Imexpharm")
	env.store.AddDrugBatch(entity.DrugBatch{
		ID:             "b-bad",
		BatchNumber:    "LOT-002",
		Name:           "Cefuroxime 500mg",
		ManufacturerID: "m1",
		IsRecalled:     true,
		ExpiryDate:     testNow.AddDate(1, 0, 0),
		Status:         entity.DrugStatusSuspended,
		QualityTest:    entity.QualityTest{TestResult: entity.TestResultFailed},
	})
	env.store.AddDrugBatch(entity.DrugBatch{
		ID:             "b-good",
		BatchNumber:    "LOT-001",
		Name:           "Cefuroxime 250mg",
		ManufacturerID: "m1",
		ExpiryDate:     testNow.AddDate(2, 0, 0),
		Status:         entity.DrugStatusActive,
		QualityTest:    entity.QualityTest{TestResult: entity.TestResultPassed},
	})
}

func TestAssessDrugRisk_NoTrustRecord(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	seedBatches(env)

	a, err := env.risk.AssessDrugRisk(ctx, "b-bad")
	require.NoError(t, err)
	assert.Equal(t, 100, a.Score)
	assert.Equal(t, entity.RiskCritical, a.Level)
	assert.Equal(t, "LOT-002", a.BatchNumber)

	_, err = env.store.GetBySupplierID(ctx, "m1")
	assert.ErrorIs(t, err, entity.ErrScoreNotFound, "risk assessment never creates score records")
}

func TestAssessDrugRisk_UsesManufacturerTrustAndBatchReviews(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	seedBatches(env)
	env.addReviews(entity.ReviewTargetDrug, "b-good", 5, 5, 4)

	_, err := env.trust.ApplyRewardOrPenalty(ctx, "m1", AdjustmentRequest{
		Type: entity.AdjustmentReward, Amount: 500, Reason: "WHO-GMP certification",
	})
	require.NoError(t, err)

	a, err := env.risk.AssessDrugRisk(ctx, "b-good")
	require.NoError(t, err)

	keys := make([]string, 0, len(a.Factors))
	for _, f := range a.Factors {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{scoring.FactorTrustHigh, scoring.FactorPositiveReviews}, keys)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, entity.RiskLow, a.Level)
}

func TestAssessDrugRisk_UnknownBatch(t *testing.T) {
	env := newTestEnv()
	_, err := env.risk.AssessDrugRisk(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrDrugBatchNotFound)
}

func TestAssessManufacturerBatches(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	seedBatches(env)
	env.addSupplier("p1", entity.RolePharmacy, "An Khang")

	list, err := env.risk.AssessManufacturerBatches(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b-bad", list[0].DrugBatchID, "riskiest first")
	assert.Equal(t, "b-good", list[1].DrugBatchID)
	assert.GreaterOrEqual(t, list[0].Score, list[1].Score)

	_, err = env.risk.AssessManufacturerBatches(ctx, "p1")
	assert.ErrorIs(t, err, entity.ErrInvalidSupplier)
}

func TestAssessDrugRisk_Deterministic(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	seedBatches(env)
	env.addReviews(entity.ReviewTargetDrug, "b-bad", 1, 2, 4)

	first, err := env.risk.AssessDrugRisk(ctx, "b-bad")
	require.NoError(t, err)
	second, err := env.risk.AssessDrugRisk(ctx, "b-bad")
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Level, second.Level)
	assert.Equal(t, first.Factors, second.Factors)
}
