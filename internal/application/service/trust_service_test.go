package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pharmachain/trustscore/internal/application/dispatcher"
	"github.com/pharmachain/trustscore/internal/application/scoring"
	"github.com/pharmachain/trustscore/internal/domain/entity"
	"github.com/pharmachain/trustscore/internal/domain/event"
	"github.com/pharmachain/trustscore/internal/infrastructure/persistence/memory"
)

func TestRecalculateTrustScore_EmptySupplierIsNeutral(t *testing.T) {
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang Pharmacy")

	score, err := env.trust.RecalculateTrustScore(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, 500, score.TrustScore)
	assert.Equal(t, 500, score.BaseScore)
	assert.Equal(t, entity.TrustLevelC, score.TrustLevel)
	assert.Equal(t, entity.DefaultBreakdown(), score.Breakdown)
	assert.Empty(t, score.ScoreHistory, "first computation records no history")
	require.NotNil(t, score.LastCalculated)
	assert.Equal(t, testNow, *score.LastCalculated)
	assert.Equal(t, 1, score.Ranking.Overall)
	assert.Equal(t, 1, score.Ranking.ByRole)
	assert.Equal(t, "An Khang Pharmacy", score.SupplierName)
}

func TestRecalculateTrustScore_InvalidSupplier(t *testing.T) {
	env := newTestEnv()
	env.addSupplier("admin", entity.Role("admin"), "Ops")

	for _, id := range []string{"ghost", "admin"} {
		_, err := env.trust.RecalculateTrustScore(context.Background(), id)
		assert.ErrorIs(t, err, entity.ErrInvalidSupplier, id)
	}
}

func TestRecalculateTrustScore_RecordsPeriodicUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang Pharmacy")

	_, err := env.trust.RecalculateTrustScore(ctx, "p1")
	require.NoError(t, err)

	env.addOnTimeTasks("p1", 4, 5)
	score, err := env.trust.RecalculateTrustScore(ctx, "p1")
	require.NoError(t, err)

	// review 150 + compliance 125 + quality 100 + efficiency 150 + timeliness 100
	assert.Equal(t, 625, score.TrustScore)
	assert.Equal(t, entity.TrustLevelB, score.TrustLevel)
	require.Len(t, score.ScoreHistory, 1)
	h := score.ScoreHistory[0]
	assert.Equal(t, entity.ReasonPeriodicUpdate, h.Reason)
	assert.Equal(t, 500, h.PreviousScore)
	assert.Equal(t, 625, h.NewScore)
	assert.Equal(t, 125, h.Change)

	again, err := env.trust.RecalculateTrustScore(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, again.ScoreHistory, 1, "unchanged score appends nothing")
}

func TestRecalculateTrustScore_EvidenceFailureAborts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.AddSupplier(entity.Supplier{ID: "p1", Role: entity.RolePharmacy})

	evidence := &mockEvidence{Store: store}
	evidence.On("ListTasksByAssignee", mock.Anything, "p1").Return(nil, errors.New("connection reset"))

	logger := &mockLogger{}
	svc := NewTrustScoreService(evidence, store, store, nil, NewSupplierLocks(), logger)

	_, err := svc.RecalculateTrustScore(ctx, "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrEvidenceRead)

	_, err = store.GetBySupplierID(ctx, "p1")
	assert.ErrorIs(t, err, entity.ErrScoreNotFound, "nothing may be persisted")
	assert.True(t, logger.HasError("Scoring aborted"))
}

func TestPreviewTrustScore_ToleratesFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.AddSupplier(entity.Supplier{ID: "p1", Role: entity.RolePharmacy})
	store.AddSignature(entity.Signature{ID: "s1", SignedBy: "p1", IsValid: true})

	evidence := &mockEvidence{Store: store}
	evidence.On("ListTasksByAssignee", mock.Anything, "p1").Return(nil, errors.New("timeout"))

	svc := NewTrustScoreService(evidence, store, store, nil, NewSupplierLocks(), &mockLogger{})

	preview, err := svc.PreviewTrustScore(ctx, "p1")
	require.NoError(t, err)

	components := make([]string, 0, len(preview.Failures))
	for _, f := range preview.Failures {
		components = append(components, f.Component)
	}
	assert.Equal(t, []string{scoring.ComponentCompliance, scoring.ComponentEfficiency, scoring.ComponentTimeliness}, components)
	assert.Equal(t, entity.DefaultBreakdown(), preview.Breakdown)
	assert.Equal(t, 500, preview.TrustScore)

	_, err = store.GetBySupplierID(ctx, "p1")
	assert.ErrorIs(t, err, entity.ErrScoreNotFound, "preview never persists")
}

func TestGetOrCreateTrustScore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addSupplier("d1", entity.RoleDistributor, "Phu Thai")

	first, err := env.trust.GetOrCreateTrustScore(ctx, "d1")
	require.NoError(t, err)

	env.addOnTimeTasks("d1", 2, 5)
	second, err := env.trust.GetOrCreateTrustScore(ctx, "d1")
	require.NoError(t, err)

	assert.Equal(t, first.TrustScore, second.TrustScore, "stored record is returned without recompute")
	assert.Equal(t, first.Version, second.Version)
}

func TestApplyRewardOrPenalty_Validation(t *testing.T) {
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang")
	pastExpiry := testNow.Add(-time.Minute)
	nowExpiry := testNow

	tests := []struct {
		name string
		req  AdjustmentRequest
		want error
	}{
		{"missing type", AdjustmentRequest{Amount: 10, Reason: "x"}, entity.ErrMissingRequiredField},
		{"zero amount", AdjustmentRequest{Type: entity.AdjustmentReward, Reason: "x"}, entity.ErrMissingRequiredField},
		{"negative amount", AdjustmentRequest{Type: entity.AdjustmentReward, Amount: -5, Reason: "x"}, entity.ErrMissingRequiredField},
		{"blank reason", AdjustmentRequest{Type: entity.AdjustmentPenalty, Amount: 5, Reason: "  "}, entity.ErrMissingRequiredField},
		{"unknown type", AdjustmentRequest{Type: "bonus", Amount: 5, Reason: "x"}, entity.ErrInvalidAdjustmentType},
		{"amount over bound", AdjustmentRequest{Type: entity.AdjustmentReward, Amount: entity.MaxAdjustmentAmount + 1, Reason: "x"}, entity.ErrInvalidAdjustment},
		{"amount near max int", AdjustmentRequest{Type: entity.AdjustmentReward, Amount: math.MaxInt - 10, Reason: "x"}, entity.ErrInvalidAdjustment},
		{
			"expiry in the past",
			AdjustmentRequest{Type: entity.AdjustmentReward, Amount: 5, Reason: "x", Metadata: AdjustmentMetadata{ExpiresAt: &pastExpiry}},
			entity.ErrInvalidAdjustment,
		},
		{
			"expiry at now",
			AdjustmentRequest{Type: entity.AdjustmentPenalty, Amount: 5, Reason: "x", Metadata: AdjustmentMetadata{ExpiresAt: &nowExpiry}},
			entity.ErrInvalidAdjustment,
		},
		{
			"periodic reason rejected",
			AdjustmentRequest{Type: entity.AdjustmentReward, Amount: 5, Reason: "x", Metadata: AdjustmentMetadata{HistoryReason: entity.ReasonPeriodicUpdate}},
			entity.ErrInvalidAdjustmentType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.trust.ApplyRewardOrPenalty(context.Background(), "p1", tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := env.store.GetBySupplierID(context.Background(), "p1")
	assert.ErrorIs(t, err, entity.ErrScoreNotFound, "validation failures touch nothing")
}

func TestApplyRewardOrPenalty_RewardThenPenalty(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang")

	rewarded, err := env.trust.ApplyRewardOrPenalty(ctx, "p1", AdjustmentRequest{
		Type:   entity.AdjustmentReward,
		Amount: 120,
		Reason: "GDP audit passed",
		Metadata: AdjustmentMetadata{
			AppliedBy:   "admin-7",
			RelatedID:   "audit-42",
			RelatedType: "audit",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 620, rewarded.TrustScore)
	require.Len(t, rewarded.RewardsAndPenalties, 1)
	require.Len(t, rewarded.ScoreHistory, 1)
	h := rewarded.ScoreHistory[0]
	assert.Equal(t, entity.ReasonManualReward, h.Reason)
	assert.Equal(t, 120, h.Change)
	assert.Equal(t, "audit-42", h.RelatedID)
	assert.Equal(t, "admin-7", h.ChangedBy)

	penalized, err := env.trust.ApplyRewardOrPenalty(ctx, "p1", AdjustmentRequest{
		Type:     entity.AdjustmentPenalty,
		Amount:   120,
		Reason:   "late delivery",
		Metadata: AdjustmentMetadata{HistoryReason: entity.ReasonComplianceViolation},
	})
	require.NoError(t, err)
	assert.Equal(t, 500, penalized.TrustScore)
	require.Len(t, penalized.ScoreHistory, 2)
	assert.Equal(t, entity.ReasonComplianceViolation, penalized.ScoreHistory[1].Reason)
	assert.Equal(t, -120, penalized.ScoreHistory[1].Change)
}

func TestApplyRewardOrPenalty_ClampsAtBounds(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang")

	score, err := env.trust.ApplyRewardOrPenalty(ctx, "p1", AdjustmentRequest{
		Type: entity.AdjustmentPenalty, Amount: 900, Reason: "counterfeit lot",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, score.TrustScore)
	assert.Equal(t, entity.TrustLevelD, score.TrustLevel)

	score, err = env.trust.ApplyRewardOrPenalty(ctx, "p1", AdjustmentRequest{
		Type: entity.AdjustmentReward, Amount: entity.MaxAdjustmentAmount, Reason: "appeal upheld",
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, score.TrustScore)

	for _, h := range score.ScoreHistory {
		assert.Equal(t, entity.ClampScore(h.PreviousScore+h.Change), h.NewScore)
	}
}

func TestApplyRewardOrPenalty_MaxAmountSaturates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang")

	score, err := env.trust.ApplyRewardOrPenalty(ctx, "p1", AdjustmentRequest{
		Type: entity.AdjustmentReward, Amount: entity.MaxAdjustmentAmount, Reason: "regulator commendation",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MaxTrustScore, score.TrustScore)
	assert.Equal(t, entity.TrustLevelA, score.TrustLevel)
	require.Len(t, score.ScoreHistory, 1)
	assert.Equal(t, 500, score.ScoreHistory[0].PreviousScore)
	assert.Equal(t, entity.MaxTrustScore, score.ScoreHistory[0].NewScore)

	score, err = env.trust.RecalculateTrustScore(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, entity.MaxTrustScore, score.TrustScore, "recompute keeps the saturated reward")
	assert.Equal(t, 500, score.BaseScore)
}

func TestRecalculate_ReappliesActiveLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang")

	expires := testNow.Add(time.Hour)
	_, err := env.trust.ApplyRewardOrPenalty(ctx, "p1", AdjustmentRequest{
		Type:     entity.AdjustmentReward,
		Amount:   50,
		Reason:   "seasonal campaign",
		Metadata: AdjustmentMetadata{ExpiresAt: &expires},
	})
	require.NoError(t, err)

	score, err := env.trust.RecalculateTrustScore(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 550, score.TrustScore, "active reward survives recompute")
	assert.Equal(t, 500, score.BaseScore)
	assert.Len(t, score.ScoreHistory, 1)

	env.now = testNow.Add(2 * time.Hour)
	score, err = env.trust.RecalculateTrustScore(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 500, score.TrustScore, "expired reward drops out")
	require.Len(t, score.ScoreHistory, 2)
	assert.Equal(t, -50, score.ScoreHistory[1].Change)
	assert.Equal(t, entity.ReasonPeriodicUpdate, score.ScoreHistory[1].Reason)
}

func TestApplyRewardOrPenalty_ConcurrentCallsLoseNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang")

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.trust.ApplyRewardOrPenalty(ctx, "p1", AdjustmentRequest{
				Type: entity.AdjustmentReward, Amount: 1, Reason: "on-time delivery",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	score, err := env.store.GetBySupplierID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 520, score.TrustScore)
	assert.Len(t, score.ScoreHistory, workers)
	assert.Len(t, score.RewardsAndPenalties, workers)
	assert.Equal(t, 0, env.locks.Len())
}

func TestGetScoreHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang")
	env.addSupplier("p2", entity.RolePharmacy, "Long Chau")

	for i, amount := range []int{10, 20, 30} {
		env.now = testNow.Add(time.Duration(i) * time.Minute)
		_, err := env.trust.ApplyRewardOrPenalty(ctx, "p1", AdjustmentRequest{
			Type: entity.AdjustmentReward, Amount: amount, Reason: "bonus",
		})
		require.NoError(t, err)
	}

	page, err := env.trust.GetScoreHistory(ctx, "p1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, 30, page.Entries[0].Change, "newest first")
	assert.Equal(t, 20, page.Entries[1].Change)

	page, err = env.trust.GetScoreHistory(ctx, "p1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, 10, page.Entries[0].Change)

	page, err = env.trust.GetScoreHistory(ctx, "p1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultHistoryLimit, page.Limit)

	page, err = env.trust.GetScoreHistory(ctx, "p1", 9, 500)
	require.NoError(t, err)
	assert.Equal(t, MaxHistoryLimit, page.Limit)
	assert.Empty(t, page.Entries)

	for _, huge := range []int{math.MaxInt/100 + 2, math.MaxInt} {
		page, err = env.trust.GetScoreHistory(ctx, "p1", huge, 100)
		require.NoError(t, err)
		assert.Equal(t, huge, page.Page)
		assert.Equal(t, 3, page.Total)
		assert.Empty(t, page.Entries)
	}

	empty, err := env.trust.GetScoreHistory(ctx, "p2", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.NotNil(t, empty.Entries)

	_, err = env.trust.GetScoreHistory(ctx, "ghost", 1, 10)
	assert.ErrorIs(t, err, entity.ErrInvalidSupplier)
}

func TestFollowOnFailureIsLoggedNotReturned(t *testing.T) {
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang")
	env.events.SubscribeNamed(event.TypeScoreRecalculated, "broken", func(ctx context.Context, evt *event.Event) error {
		return errors.New("downstream unavailable")
	})

	score, err := env.trust.RecalculateTrustScore(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 500, score.TrustScore)
	assert.True(t, env.logger.HasError("Follow-on handlers failed"))
}

func TestDispatcherClosedDoesNotFailRecompute(t *testing.T) {
	env := newTestEnv()
	env.addSupplier("p1", entity.RolePharmacy, "An Khang")
	require.NoError(t, env.events.Close())

	_, err := env.trust.RecalculateTrustScore(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, env.logger.HasError("Follow-on handlers failed"))
	assert.ErrorIs(t, env.events.Dispatch(context.Background(), event.NewEvent(event.TypeScoreAdjusted, "p1", nil)), dispatcher.ErrClosed)
}
