package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/domain/entity"
)

const queryTimeout = 5 * time.Second

// EvidenceStore reads supplier accounts and their evidence from the
// upstream platform's collections. It never writes to them.
type EvidenceStore struct {
	users      *mongo.Collection
	reviews    *mongo.Collection
	tasks      *mongo.Collection
	signatures *mongo.Collection
	drugs      *mongo.Collection
}

// NewEvidenceStore creates an evidence reader on dbName
func NewEvidenceStore(client *mongo.Client, dbName string, colls Collections) *EvidenceStore {
	db := client.Database(dbName)
	return &EvidenceStore{
		users:      db.Collection(colls.Users),
		reviews:    db.Collection(colls.Reviews),
		tasks:      db.Collection(colls.Tasks),
		signatures: db.Collection(colls.Signatures),
		drugs:      db.Collection(colls.Drugs),
	}
}

// GetSupplier returns nil, nil for unknown or malformed ids
func (s *EvidenceStore) GetSupplier(ctx context.Context, id string) (*entity.Supplier, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toEntity(), nil
}

// ListEligibleSuppliers returns every account whose role is scored
func (s *EvidenceStore) ListEligibleSuppliers(ctx context.Context) ([]*entity.Supplier, error) {
	roles := make([]string, 0, len(entity.EligibleRoles))
	for _, r := range entity.EligibleRoles {
		roles = append(roles, string(r))
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return findAll(ctx, s.users, bson.M{"role": bson.M{"$in": roles}}, opts, userDoc.toEntity)
}

// ListApprovedReviews returns approved reviews for one target
func (s *EvidenceStore) ListApprovedReviews(ctx context.Context, targetType, targetID string) ([]*entity.Review, error) {
	oid, ok := objectID(targetID)
	if !ok {
		return nil, nil
	}
	filter := bson.M{
		"targetType": targetType,
		"targetId":   oid,
		"status":     entity.ReviewStatusApproved,
	}
	return findAll(ctx, s.reviews, filter, nil, reviewDoc.toEntity)
}

// ListTasksByAssignee returns all tasks assigned to a supplier
func (s *EvidenceStore) ListTasksByAssignee(ctx context.Context, supplierID string) ([]*entity.Task, error) {
	oid, ok := objectID(supplierID)
	if !ok {
		return nil, nil
	}
	return findAll(ctx, s.tasks, bson.M{"assignedTo": oid}, nil, taskDoc.toEntity)
}

// ListSignaturesBySigner returns all signatures a supplier produced
func (s *EvidenceStore) ListSignaturesBySigner(ctx context.Context, supplierID string) ([]*entity.Signature, error) {
	oid, ok := objectID(supplierID)
	if !ok {
		return nil, nil
	}
	return findAll(ctx, s.signatures, bson.M{"signedBy": oid}, nil, signatureDoc.toEntity)
}

// GetDrugBatch returns nil, nil for unknown or malformed ids
func (s *EvidenceStore) GetDrugBatch(ctx context.Context, id string) (*entity.DrugBatch, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc drugDoc
	err := s.drugs.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find drug: %w", err)
	}
	return doc.toEntity(), nil
}

// ListBatchesByManufacturer returns every batch a manufacturer produced
func (s *EvidenceStore) ListBatchesByManufacturer(ctx context.Context, manufacturerID string) ([]*entity.DrugBatch, error) {
	oid, ok := objectID(manufacturerID)
	if !ok {
		return nil, nil
	}
	return findAll(ctx, s.drugs, bson.M{"manufacturerId": oid}, nil, drugDoc.toEntity)
}

func findAll[D any, E any](
	ctx context.Context,
	coll *mongo.Collection,
	filter interface{},
	opts *options.FindOptions,
	convert func(D) *E,
) ([]*E, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var cur *mongo.Cursor
	var err error
	if opts != nil {
		cur, err = coll.Find(ctx, filter, opts)
	} else {
		cur, err = coll.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	var out []*E
	for cur.Next(ctx) {
		var doc D
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
		}
		out = append(out, convert(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", coll.Name(), err)
	}
	return out, nil
}

// Verify interface compliance
var _ port.EvidenceReader = (*EvidenceStore)(nil)
