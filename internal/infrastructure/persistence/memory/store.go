// Package memory provides an in-process implementation of every evidence and
// score port. It backs tests and the CLI's fixture mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pharmachain/trustscore/internal/application/port"
	"github.com/pharmachain/trustscore/internal/domain/entity"
)

// Store keeps evidence and score records in maps guarded by one RWMutex.
// Reads return copies so callers cannot mutate stored state.
type Store struct {
	mu         sync.RWMutex
	suppliers  map[string]entity.Supplier
	reviews    []entity.Review
	tasks      []entity.Task
	signatures []entity.Signature
	batches    map[string]entity.DrugBatch
	scores     map[string]*entity.SupplierScore
}

// Compile-time interface checks
var (
	_ port.EvidenceReader     = (*Store)(nil)
	_ port.ScoreRepository    = (*Store)(nil)
	_ port.TransactionManager = (*Store)(nil)
)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		suppliers: map[string]entity.Supplier{},
		batches:   map[string]entity.DrugBatch{},
		scores:    map[string]*entity.SupplierScore{},
	}
}

// AddSupplier stores or replaces a supplier account
func (s *Store) AddSupplier(sup entity.Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[sup.ID] = sup
}

// AddReview appends a review
func (s *Store) AddReview(r entity.Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = append(s.reviews, r)
}

// AddTask appends a task
func (s *Store) AddTask(t entity.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

// AddSignature appends a signature
func (s *Store) AddSignature(sig entity.Signature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signatures = append(s.signatures, sig)
}

// AddDrugBatch stores or replaces a drug batch
func (s *Store) AddDrugBatch(b entity.DrugBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
}

// GetSupplier returns nil, nil for unknown ids
func (s *Store) GetSupplier(_ context.Context, id string) (*entity.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.suppliers[id]
	if !ok {
		return nil, nil
	}
	return &sup, nil
}

// ListEligibleSuppliers returns scored suppliers ordered by id
func (s *Store) ListEligibleSuppliers(_ context.Context) ([]*entity.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		if sup.Role.IsEligible() {
			sup := sup
			out = append(out, &sup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListApprovedReviews returns approved reviews of one target
func (s *Store) ListApprovedReviews(_ context.Context, targetType, targetID string) ([]*entity.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Review
	for _, r := range s.reviews {
		if r.TargetType == targetType && r.TargetID == targetID && r.Status == entity.ReviewStatusApproved {
			r := r
			out = append(out, &r)
		}
	}
	return out, nil
}

// ListTasksByAssignee returns tasks assigned to a supplier
func (s *Store) ListTasksByAssignee(_ context.Context, supplierID string) ([]*entity.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Task
	for _, t := range s.tasks {
		if t.AssignedTo == supplierID {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

// ListSignaturesBySigner returns signatures produced by a supplier
func (s *Store) ListSignaturesBySigner(_ context.Context, supplierID string) ([]*entity.Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Signature
	for _, sig := range s.signatures {
		if sig.SignedBy == supplierID {
			sig := sig
			out = append(out, &sig)
		}
	}
	return out, nil
}

// GetDrugBatch returns nil, nil for unknown ids
func (s *Store) GetDrugBatch(_ context.Context, id string) (*entity.DrugBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// ListBatchesByManufacturer returns a manufacturer's batches ordered by batch number
func (s *Store) ListBatchesByManufacturer(_ context.Context, manufacturerID string) ([]*entity.DrugBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.DrugBatch
	for _, b := range s.batches {
		if b.ManufacturerID == manufacturerID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchNumber < out[j].BatchNumber })
	return out, nil
}

// GetBySupplierID returns a copy of the stored record
func (s *Store) GetBySupplierID(_ context.Context, supplierID string) (*entity.SupplierScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[supplierID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrScoreNotFound, supplierID)
	}
	return score.Clone(), nil
}

// Save inserts or compare-and-swaps on Version
func (s *Store) Save(_ context.Context, score *entity.SupplierScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.scores[score.SupplierID]
	switch {
	case score.Version == 0 && exists:
		return fmt.Errorf("%w: %s already stored", entity.ErrVersionConflict, score.SupplierID)
	case score.Version != 0 && (!exists || current.Version != score.Version):
		return fmt.Errorf("%w: %s at version %d", entity.ErrVersionConflict, score.SupplierID, score.Version)
	}

	score.Version++
	s.scores[score.SupplierID] = score.Clone()
	return nil
}

// CountAbove counts records with a strictly greater trust score
func (s *Store) CountAbove(_ context.Context, score int, role entity.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.scores {
		if rec.TrustScore > score && (role == "" || rec.Role == role) {
			n++
		}
	}
	return n, nil
}

// List returns copies ordered by trust score desc, then supplier id
func (s *Store) List(_ context.Context, query port.ScoreQuery) ([]*entity.SupplierScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(query.Search)
	var out []*entity.SupplierScore
	for _, rec := range s.scores {
		if query.Role != "" && rec.Role != query.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rec.SupplierName), search) {
			continue
		}
		out = append(out, rec.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TrustScore != out[j].TrustScore {
			return out[i].TrustScore > out[j].TrustScore
		}
		return out[i].SupplierID < out[j].SupplierID
	})

	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

// WithTransaction runs fn directly; single Save calls are already atomic here
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
