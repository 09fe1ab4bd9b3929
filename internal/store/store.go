package store

import (
	"context"
	"time"

	"github.com/chaintrace/provenance-api/internal/domain"
)

// Filter narrows feed queries. Nil/zero fields mean no constraint on that
// field; populated fields compose with logical AND.
type Filter struct {
	// Owner matches records whose post-record owner equals the value
	Owner *domain.WalletAddress
	// PreviousOwner matches Transfer records whose previous owner equals the value
	PreviousOwner *domain.WalletAddress
	// StartTime is the inclusive lower bound on record timestamps
	StartTime *time.Time
	// EndTime is the inclusive upper bound on record timestamps
	EndTime *time.Time
	// Limit caps the result count; 0 means no cap
	Limit int
}

// Store defines the interface for provenance ledger persistence.
// Implementations must keep each product's records append-only and keep the
// global feed order consistent with every product's internal order.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// CreateProduct atomically creates a product ledger from its Manufacture
	// record. Returns domain.ErrDuplicateProduct when the ledger already exists.
	CreateProduct(ctx context.Context, record *domain.ProvenanceRecord) error

	// AppendRecord appends a record at the given sequence position. Returns
	// domain.ErrUnknownProduct when no ledger exists and
	// domain.ErrSequenceConflict when another append already took the position.
	// The conflict signal is what makes check-then-append atomic per product:
	// callers re-read the head and re-validate before retrying.
	AppendRecord(ctx context.Context, record *domain.ProvenanceRecord) error

	// GetLatestRecord returns the last record of a product's ledger, which
	// determines the current owner. Returns domain.ErrUnknownProduct when absent.
	GetLatestRecord(ctx context.Context, productID string) (*domain.ProvenanceRecord, error)

	// GetHistory returns the full append-ordered history of a product as a
	// copy the caller may not mutate through. Returns domain.ErrUnknownProduct
	// when absent.
	GetHistory(ctx context.Context, productID string) ([]domain.ProvenanceRecord, error)

	// ListRecords returns records across all products matching filter, in
	// reverse global append order (most recent first).
	ListRecords(ctx context.Context, filter Filter) ([]domain.ProvenanceRecord, error)
}

// matches reports whether a record passes all populated filter fields
func (f Filter) matches(record *domain.ProvenanceRecord) bool {
	if f.Owner != nil && record.Owner != *f.Owner {
		return false
	}
	if f.PreviousOwner != nil {
		if record.PreviousOwner == nil || *record.PreviousOwner != *f.PreviousOwner {
			return false
		}
	}
	if f.StartTime != nil && record.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && record.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}
