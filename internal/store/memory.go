package store

import (
	"context"
	"sync"

	"github.com/chaintrace/provenance-api/internal/domain"
)

// memoryStore is the default in-process Store. A single mutex covers both the
// per-product ledgers and the global feed so that feed order always agrees
// with each product's internal order.
type memoryStore struct {
	mu       sync.RWMutex
	products map[string][]domain.ProvenanceRecord
	feed     []domain.ProvenanceRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memoryStore{
		products: make(map[string][]domain.ProvenanceRecord),
	}
}

// CreateProduct creates a product ledger from its Manufacture record
func (s *memoryStore) CreateProduct(_ context.Context, record *domain.ProvenanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[record.ProductID]; exists {
		return domain.ErrDuplicateProduct
	}

	s.products[record.ProductID] = []domain.ProvenanceRecord{*record}
	s.feed = append(s.feed, *record)
	return nil
}

// AppendRecord appends a record at record.Seq, failing on sequence conflicts
func (s *memoryStore) AppendRecord(_ context.Context, record *domain.ProvenanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, exists := s.products[record.ProductID]
	if !exists {
		return domain.ErrUnknownProduct
	}

	if uint64(len(history)) != record.Seq {
		return domain.ErrSequenceConflict
	}

	s.products[record.ProductID] = append(history, *record)
	s.feed = append(s.feed, *record)
	return nil
}

// GetLatestRecord returns the last record of a product's ledger
func (s *memoryStore) GetLatestRecord(_ context.Context, productID string) (*domain.ProvenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.products[productID]
	if !exists {
		return nil, domain.ErrUnknownProduct
	}

	latest := history[len(history)-1]
	return &latest, nil
}

// GetHistory returns a copy of the product's full history in append order
func (s *memoryStore) GetHistory(_ context.Context, productID string) ([]domain.ProvenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.products[productID]
	if !exists {
		return nil, domain.ErrUnknownProduct
	}

	out := make([]domain.ProvenanceRecord, len(history))
	copy(out, history)
	return out, nil
}

// ListRecords walks the global feed backwards applying the filter
func (s *memoryStore) ListRecords(_ context.Context, filter Filter) ([]domain.ProvenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ProvenanceRecord
	for i := len(s.feed) - 1; i >= 0; i-- {
		record := s.feed[i]
		if !filter.matches(&record) {
			continue
		}
		out = append(out, record)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}

	return out, nil
}
