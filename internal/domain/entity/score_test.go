package entity

import (
	"math"
	"testing"
	"time"
)

func TestTrustLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  TrustLevel
	}{
		{1000, TrustLevelA},
		{800, TrustLevelA},
		{799, TrustLevelB},
		{600, TrustLevelB},
		{599, TrustLevelC},
		{400, TrustLevelC},
		{399, TrustLevelD},
		{0, TrustLevelD},
	}

	for _, tt := range tests {
		if got := TrustLevelFor(tt.score); got != tt.want {
			t.Errorf("TrustLevelFor(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestNewSupplierScore_NeutralPrior(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewSupplierScore(&Supplier{ID: "s1", Role: RolePharmacy, FullName: "Nha Thuoc An Khang"}, now)

	if s.TrustScore != 500 {
		t.Errorf("TrustScore = %d, want 500", s.TrustScore)
	}
	if s.TrustLevel != TrustLevelC {
		t.Errorf("TrustLevel = %v, want C", s.TrustLevel)
	}
	if s.Breakdown != DefaultBreakdown() {
		t.Errorf("Breakdown = %+v, want default", s.Breakdown)
	}
	if !s.IsNew() {
		t.Error("new record should report IsNew")
	}
	if s.SupplierName != "Nha Thuoc An Khang" {
		t.Errorf("SupplierName = %q", s.SupplierName)
	}
}

func TestAddScoreChange_ClampsAndRecords(t *testing.T) {
	now := time.Now()
	s := NewSupplierScore(&Supplier{ID: "s1", Role: RoleDealer}, now)

	changes := []int{300, 400, -2000, 50, -10}
	for _, c := range changes {
		s.AddScoreChange(ScoreChange{Change: c, Reason: ReasonManualReward}, now)
	}

	if len(s.ScoreHistory) != len(changes) {
		t.Fatalf("history length = %d, want %d", len(s.ScoreHistory), len(changes))
	}
	for i, h := range s.ScoreHistory {
		if h.NewScore != ClampScore(h.PreviousScore+h.Change) {
			t.Errorf("entry %d violates clamp invariant: %+v", i, h)
		}
		if h.ID == "" {
			t.Errorf("entry %d has no id", i)
		}
	}
	if s.TrustScore != 40 {
		t.Errorf("TrustScore = %d, want 40", s.TrustScore)
	}
	if s.TrustLevel != TrustLevelD {
		t.Errorf("TrustLevel = %v, want D", s.TrustLevel)
	}
}

func TestRewardThenPenaltyRestoresScore(t *testing.T) {
	now := time.Now()
	s := NewSupplierScore(&Supplier{ID: "s1", Role: RoleHospital}, now)
	before := s.TrustScore

	s.AddScoreChange(ScoreChange{Change: 120, Reason: ReasonManualReward}, now)
	s.AddScoreChange(ScoreChange{Change: -120, Reason: ReasonManualPenalty}, now)

	if s.TrustScore != before {
		t.Errorf("TrustScore = %d, want %d", s.TrustScore, before)
	}
}

func TestNetAdjustment_IgnoresExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	s := NewSupplierScore(&Supplier{ID: "s1", Role: RoleDistributor}, now)
	s.AppendLedgerEntry(LedgerEntry{Type: AdjustmentReward, Amount: 50})
	s.AppendLedgerEntry(LedgerEntry{Type: AdjustmentPenalty, Amount: 20, ExpiresAt: &future})
	s.AppendLedgerEntry(LedgerEntry{Type: AdjustmentReward, Amount: 100, ExpiresAt: &past})

	if got := s.NetAdjustment(now); got != 30 {
		t.Errorf("NetAdjustment() = %d, want 30", got)
	}
	for _, e := range s.RewardsAndPenalties {
		if e.ID == "" {
			t.Error("ledger entry missing id")
		}
	}
}

func TestAddScoreChange_HugeDeltaSaturates(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSupplierScore(&Supplier{ID: "s1", Role: RolePharmacy}, now)
	s.TrustScore = 500

	up := s.AddScoreChange(ScoreChange{Change: math.MaxInt - 10, Reason: ReasonManualReward}, now)
	if up.NewScore != MaxTrustScore || s.TrustLevel != TrustLevelA {
		t.Errorf("reward: NewScore = %d level %s, want %d level A", up.NewScore, s.TrustLevel, MaxTrustScore)
	}
	if up.NewScore != ClampScore(up.PreviousScore+up.Change) {
		t.Errorf("history entry breaks clamp invariant: %+v", up)
	}

	down := s.AddScoreChange(ScoreChange{Change: math.MinInt, Reason: ReasonManualPenalty}, now)
	if down.NewScore != MinTrustScore {
		t.Errorf("penalty: NewScore = %d, want %d", down.NewScore, MinTrustScore)
	}
}

func TestNetAdjustment_HugeStoredAmountsDoNotOverflow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSupplierScore(&Supplier{ID: "s1", Role: RolePharmacy}, now)
	s.AppendLedgerEntry(LedgerEntry{Type: AdjustmentReward, Amount: math.MaxInt})
	s.AppendLedgerEntry(LedgerEntry{Type: AdjustmentReward, Amount: math.MaxInt})

	got := s.NetAdjustment(now)
	if got != 2*MaxTrustScore {
		t.Errorf("NetAdjustment() = %d, want %d", got, 2*MaxTrustScore)
	}
	if total := ClampScore(500 + got); total != MaxTrustScore {
		t.Errorf("total = %d, want %d", total, MaxTrustScore)
	}
}

func TestAddBadge_Idempotent(t *testing.T) {
	s := NewSupplierScore(&Supplier{ID: "s1", Role: RoleManufacturer}, time.Now())

	if !s.AddBadge(Badge{ID: BadgeReliability}) {
		t.Fatal("first AddBadge should add")
	}
	if s.AddBadge(Badge{ID: BadgeReliability}) {
		t.Error("second AddBadge should be a no-op")
	}
	if len(s.Badges) != 1 {
		t.Errorf("badge count = %d, want 1", len(s.Badges))
	}
}

func TestClone_IsIndependent(t *testing.T) {
	s := NewSupplierScore(&Supplier{ID: "s1", Role: RoleManufacturer}, time.Now())
	s.ReviewStats.RatingDistribution = map[int]int{5: 1}
	c := s.Clone()

	c.AddBadge(Badge{ID: BadgeTopPerformer})
	c.ReviewStats.RatingDistribution[5] = 9

	if len(s.Badges) != 0 {
		t.Error("clone shares badge slice")
	}
	if s.ReviewStats.RatingDistribution[5] != 1 {
		t.Error("clone shares rating distribution")
	}
}

func TestTaskIsOnTime(t *testing.T) {
	due := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	early := due.Add(-time.Hour)
	late := due.Add(time.Hour)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"completed early", Task{Status: TaskStatusCompleted, DueDate: &due, CompletedAt: &early}, true},
		{"completed exactly at due", Task{Status: TaskStatusCompleted, DueDate: &due, CompletedAt: &due}, true},
		{"completed late", Task{Status: TaskStatusCompleted, DueDate: &due, CompletedAt: &late}, false},
		{"not completed", Task{Status: TaskStatusInProgress, DueDate: &due, CompletedAt: &early}, false},
		{"no due date", Task{Status: TaskStatusCompleted, CompletedAt: &early}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsOnTime(); got != tt.want {
				t.Errorf("IsOnTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoleIsEligible(t *testing.T) {
	for _, r := range EligibleRoles {
		if !r.IsEligible() {
			t.Errorf("%s should be eligible", r)
		}
	}
	for _, r := range []Role{"admin", "patient", ""} {
		if r.IsEligible() {
			t.Errorf("%q should not be eligible", r)
		}
	}
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{100, RiskCritical},
		{80, RiskCritical},
		{79, RiskHigh},
		{60, RiskHigh},
		{59, RiskMedium},
		{40, RiskMedium},
		{39, RiskLow},
		{0, RiskLow},
	}
	for _, tt := range tests {
		if got := RiskLevelFor(tt.score); got != tt.want {
			t.Errorf("RiskLevelFor(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}
