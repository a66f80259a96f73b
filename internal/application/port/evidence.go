package port

import (
	"context"

	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// SupplierReader reads supplier account records.
// GetSupplier returns nil, nil when the account does not exist.
type SupplierReader interface {
	GetSupplier(ctx context.Context, id string) (*entity.Supplier, error)
	ListEligibleSuppliers(ctx context.Context) ([]*entity.Supplier, error)
}

// ReviewReader reads approved reviews by target
type ReviewReader interface {
	ListApprovedReviews(ctx context.Context, targetType, targetID string) ([]*entity.Review, error)
}

// TaskReader reads tasks assigned to a supplier
type TaskReader interface {
	ListTasksByAssignee(ctx context.Context, supplierID string) ([]*entity.Task, error)
}

// SignatureReader reads digital signatures produced by a supplier
type SignatureReader interface {
	ListSignaturesBySigner(ctx context.Context, supplierID string) ([]*entity.Signature, error)
}

// DrugBatchReader reads drug batches.
// GetDrugBatch returns nil, nil when the batch does not exist.
type DrugBatchReader interface {
	GetDrugBatch(ctx context.Context, id string) (*entity.DrugBatch, error)
	ListBatchesByManufacturer(ctx context.Context, manufacturerID string) ([]*entity.DrugBatch, error)
}

// EvidenceReader groups every read-only collaborator the engine consumes
type EvidenceReader interface {
	SupplierReader
	ReviewReader
	TaskReader
	SignatureReader
	DrugBatchReader
}
