package port

import (
	"context"

	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// ScoreQuery filters and limits score listings
type ScoreQuery struct {
	Role   entity.Role // empty for all roles
	Search string      // case-insensitive substring of supplier name
	Limit  int         // 0 for no limit
}

// ScoreRepository defines persistence operations for SupplierScore.
//
// Save inserts records whose Version is 0 and otherwise updates only when the
// stored version still equals score.Version. On success score.Version is
// incremented; a lost race returns entity.ErrVersionConflict.
type ScoreRepository interface {
	// GetBySupplierID returns entity.ErrScoreNotFound when no record exists
	GetBySupplierID(ctx context.Context, supplierID string) (*entity.SupplierScore, error)

	Save(ctx context.Context, score *entity.SupplierScore) error

	// CountAbove counts records with a trust score strictly greater than
	// score, restricted to role when role is non-empty
	CountAbove(ctx context.Context, score int, role entity.Role) (int, error)

	// List returns records ordered by trust score desc, then supplier id
	List(ctx context.Context, query ScoreQuery) ([]*entity.SupplierScore, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
