package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/domain/entity"
	"github.com/pharmachain/trustscore/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ScoreRepository implements port.ScoreRepository on SQLite
type ScoreRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db *sqlite.DB, logger *zap.Logger) *ScoreRepository {
	return &ScoreRepository{
		db:     db,
		logger: logger,
	}
}

// GetBySupplierID loads one score record
func (r *ScoreRepository) GetBySupplierID(ctx context.Context, supplierID string) (*entity.SupplierScore, error) {
	query := `SELECT data, version FROM supplier_scores WHERE supplier_id = ?`

	var data string
	var version int64
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, supplierID).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entity.ErrScoreNotFound, supplierID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}

	score, err := decodeScore(data)
	if err != nil {
		return nil, err
	}
	score.Version = version
	return score, nil
}

// Save inserts a new record or updates it when the stored version matches
func (r *ScoreRepository) Save(ctx context.Context, score *entity.SupplierScore) error {
	next := score.Version + 1
	data, err := encodeScore(score, next)
	if err != nil {
		return err
	}

	exec := r.db.Executor(ctx)
	if score.Version == 0 {
		query := `
			INSERT INTO supplier_scores (
				supplier_id, role, supplier_name, trust_score, trust_level,
				version, data, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(supplier_id) DO NOTHING
		`
		result, err := exec.ExecContext(ctx, query,
			score.SupplierID,
			string(score.Role),
			score.SupplierName,
			score.TrustScore,
			string(score.TrustLevel),
			next,
			data,
			score.CreatedAt.UTC().Format(time.RFC3339Nano),
			score.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			r.logger.Error("Failed to insert score", zap.String("supplier_id", score.SupplierID), zap.Error(err))
			return fmt.Errorf("failed to insert score: %w", err)
		}
		if err := expectOneRow(result, score); err != nil {
			return err
		}
		score.Version = next
		return nil
	}

	query := `
		UPDATE supplier_scores
		SET role = ?, supplier_name = ?, trust_score = ?, trust_level = ?,
			version = ?, data = ?, updated_at = ?
		WHERE supplier_id = ? AND version = ?
	`
	result, err := exec.ExecContext(ctx, query,
		string(score.Role),
		score.SupplierName,
		score.TrustScore,
		string(score.TrustLevel),
		next,
		data,
		score.UpdatedAt.UTC().Format(time.RFC3339Nano),
		score.SupplierID,
		score.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update score", zap.String("supplier_id", score.SupplierID), zap.Error(err))
		return fmt.Errorf("failed to update score: %w", err)
	}
	if err := expectOneRow(result, score); err != nil {
		return err
	}
	score.Version = next
	return nil
}

// CountAbove counts records with a strictly greater trust score
func (r *ScoreRepository) CountAbove(ctx context.Context, score int, role entity.Role) (int, error) {
	query := `SELECT COUNT(*) FROM supplier_scores WHERE trust_score > ?`
	args := []interface{}{score}
	if role != "" {
		query += ` AND role = ?`
		args = append(args, string(role))
	}

	var n int
	if err := r.db.Executor(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scores: %w", err)
	}
	return n, nil
}

// List returns records ordered by trust score desc, then supplier id
func (r *ScoreRepository) List(ctx context.Context, q port.ScoreQuery) ([]*entity.SupplierScore, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(q.Role))
	}
	if q.Search != "" {
		where = append(where, "instr(lower(supplier_name), ?) > 0")
		args = append(args, strings.ToLower(q.Search))
	}

	query := `SELECT data, version FROM supplier_scores`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY trust_score DESC, supplier_id ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	defer rows.Close()

	var scores []*entity.SupplierScore
	for rows.Next() {
		var data string
		var version int64
		if err := rows.Scan(&data, &version); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		score, err := decodeScore(data)
		if err != nil {
			return nil, err
		}
		score.Version = version
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

func expectOneRow(result sql.Result, score *entity.SupplierScore) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected != 1 {
		return fmt.Errorf("%w: %s at version %d", entity.ErrVersionConflict, score.SupplierID, score.Version)
	}
	return nil
}

func encodeScore(score *entity.SupplierScore, version int64) (string, error) {
	snapshot := *score
	snapshot.Version = version
	b, err := json.Marshal(&snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to encode score: %w", err)
	}
	return string(b), nil
}

func decodeScore(data string) (*entity.SupplierScore, error) {
	var score entity.SupplierScore
	if err := json.Unmarshal([]byte(data), &score); err != nil {
		return nil, fmt.Errorf("failed to decode score: %w", err)
	}
	return &score, nil
}

// Verify interface compliance
var _ port.ScoreRepository = (*ScoreRepository)(nil)
