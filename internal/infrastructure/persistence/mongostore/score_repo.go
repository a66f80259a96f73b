package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// ScoreStore persists SupplierScore documents with a version guard
type ScoreStore struct {
	scores *mongo.Collection
}

// NewScoreStore creates a score repository on dbName
func NewScoreStore(client *mongo.Client, dbName string, colls Collections) *ScoreStore {
	return &ScoreStore{scores: client.Database(dbName).Collection(colls.Scores)}
}

// EnsureIndexes creates the unique supplier index and the ranking indexes
func (s *ScoreStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.scores.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "supplier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "trustScore", Value: -1}}},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "trustScore", Value: -1}}},
	})
	return err
}

// GetBySupplierID loads one score document
func (s *ScoreStore) GetBySupplierID(ctx context.Context, supplierID string) (*entity.SupplierScore, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var score entity.SupplierScore
	err := s.scores.FindOne(ctx, bson.M{"supplier": supplierID}).Decode(&score)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", entity.ErrScoreNotFound, supplierID)
	}
	if err != nil {
		return nil, fmt.Errorf("find score: %w", err)
	}
	return &score, nil
}

// Save inserts a new document or replaces it when the stored version matches
func (s *ScoreStore) Save(ctx context.Context, score *entity.SupplierScore) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	expected := score.Version
	doc := *score
	doc.Version = expected + 1

	if expected == 0 {
		_, err := s.scores.InsertOne(ctx, &doc)
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s already stored", entity.ErrVersionConflict, score.SupplierID)
		}
		if err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
		score.Version = doc.Version
		return nil
	}

	res, err := s.scores.ReplaceOne(ctx, bson.M{"supplier": score.SupplierID, "version": expected}, &doc)
	if err != nil {
		return fmt.Errorf("replace score: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s at version %d", entity.ErrVersionConflict, score.SupplierID, expected)
	}
	score.Version = doc.Version
	return nil
}

// CountAbove counts documents with a strictly greater trust score
func (s *ScoreStore) CountAbove(ctx context.Context, score int, role entity.Role) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"trustScore": bson.M{"$gt": score}}
	if role != "" {
		filter["role"] = string(role)
	}
	n, err := s.scores.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count scores: %w", err)
	}
	return int(n), nil
}

// List returns documents ordered by trust score desc, then supplier id
func (s *ScoreStore) List(ctx context.Context, q port.ScoreQuery) ([]*entity.SupplierScore, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "trustScore", Value: -1},
		{Key: "supplier", Value: 1},
	})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	identity := func(rec entity.SupplierScore) *entity.SupplierScore { return &rec }
	return findAll(ctx, s.scores, listFilter(q), opts, identity)
}

func listFilter(q port.ScoreQuery) bson.M {
	filter := bson.M{}
	if q.Role != "" {
		filter["role"] = string(q.Role)
	}
	if q.Search != "" {
		filter["supplierName"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
	}
	return filter
}

// WithTransaction runs fn directly. Writes are single-document and guarded
// by the version check, so no multi-document session is opened.
func (s *ScoreStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Verify interface compliance
var (
	_ port.ScoreRepository    = (*ScoreStore)(nil)
	_ port.TransactionManager = (*ScoreStore)(nil)
)
