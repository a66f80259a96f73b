package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/domain/entity"
	"github.com/pharmachain/trustscore/internal/infrastructure/persistence/sqlite"
	"github.com/pharmachain/trustscore/pkg/database"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "scores.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(database.Migrations()))
	return sqlite.NewDB(db.DB, logger)
}

func newScore(id string, role entity.Role, name string, trust int) *entity.SupplierScore {
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	s := entity.NewSupplierScore(&entity.Supplier{ID: id, Role: role, OrganizationName: name}, now)
	s.TrustScore = trust
	s.RefreshTrustLevel()
	return s
}

func TestScoreRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewScoreRepository(setupTestDB(t), zap.NewNop())

	score := newScore("p1", entity.RolePharmacy, "An Khang", 640)
	score.AddScoreChange(entity.ScoreChange{Change: 20, Reason: entity.ReasonManualReward, ChangedBy: "admin"}, score.CreatedAt)
	require.NoError(t, repo.Save(ctx, score))
	assert.Equal(t, int64(1), score.Version)

	got, err := repo.GetBySupplierID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 660, got.TrustScore)
	assert.Equal(t, int64(1), got.Version)
	require.Len(t, got.ScoreHistory, 1)
	assert.Equal(t, "admin", got.ScoreHistory[0].ChangedBy)

	_, err = repo.GetBySupplierID(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrScoreNotFound)
}

func TestScoreRepository_VersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewScoreRepository(setupTestDB(t), zap.NewNop())

	require.NoError(t, repo.Save(ctx, newScore("p1", entity.RolePharmacy, "An Khang", 500)))

	dup := newScore("p1", entity.RolePharmacy, "An Khang", 500)
	assert.ErrorIs(t, repo.Save(ctx, dup), entity.ErrVersionConflict)

	first, err := repo.GetBySupplierID(ctx, "p1")
	require.NoError(t, err)
	second, err := repo.GetBySupplierID(ctx, "p1")
	require.NoError(t, err)

	first.TrustScore = 520
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.TrustScore = 480
	assert.ErrorIs(t, repo.Save(ctx, second), entity.ErrVersionConflict)

	stored, err := repo.GetBySupplierID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 520, stored.TrustScore)
}

func TestScoreRepository_CountAboveAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewScoreRepository(setupTestDB(t), zap.NewNop())

	for _, s := range []*entity.SupplierScore{
		newScore("p1", entity.RolePharmacy, "An Khang Pharmacy", 500),
		newScore("p2", entity.RolePharmacy, "Long Chau Pharmacy", 625),
		newScore("h1", entity.RoleHospital, "Cho Ray Hospital", 500),
	} {
		require.NoError(t, repo.Save(ctx, s))
	}

	n, err := repo.CountAbove(ctx, 500, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.CountAbove(ctx, 500, entity.RoleHospital)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	tests := []struct {
		name  string
		query port.ScoreQuery
		want  []string
	}{
		{"all", port.ScoreQuery{}, []string{"p2", "h1", "p1"}},
		{"limit", port.ScoreQuery{Limit: 2}, []string{"p2", "h1"}},
		{"role", port.ScoreQuery{Role: entity.RolePharmacy}, []string{"p2", "p1"}},
		{"search", port.ScoreQuery{Search: "CHAU"}, []string{"p2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.List(ctx, tt.query)
			require.NoError(t, err)
			ids := make([]string, 0, len(list))
			for _, s := range list {
				ids = append(ids, s.SupplierID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestScoreRepository_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewScoreRepository(db, zap.NewNop())

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Save(ctx, newScore("p1", entity.RolePharmacy, "An Khang", 500)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetBySupplierID(ctx, "p1")
	assert.ErrorIs(t, err, entity.ErrScoreNotFound)
}
