package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chaintrace/provenance-api/internal/adapter"
	"github.com/chaintrace/provenance-api/internal/anchor"
	"github.com/chaintrace/provenance-api/internal/domain"
	"github.com/chaintrace/provenance-api/internal/logger"
	"github.com/chaintrace/provenance-api/internal/messaging"
	"github.com/chaintrace/provenance-api/internal/store"
)

// Receipt describes a successful append: the record as written plus the
// ledger-anchor references produced for it
type Receipt struct {
	Record    *domain.ProvenanceRecord
	TxRef     string
	AccountID string
}

// Service is the provenance ledger. Every mutating operation is gated by the
// ownership chain: the acting identity must equal the owner of the last
// record in the product's ledger, compared byte-for-byte.
type Service struct {
	store     store.Store
	anchorer  anchor.Anchor
	clock     adapter.Clock
	publisher messaging.Publisher
}

// New creates a ledger service. publisher may be nil when record event
// publishing is not configured.
func New(s store.Store, a anchor.Anchor, clock adapter.Clock, publisher messaging.Publisher) *Service {
	return &Service{
		store:     s,
		anchorer:  a,
		clock:     clock,
		publisher: publisher,
	}
}

// CreateProduct creates a product ledger with its Manufacture record.
// The acting identity becomes the first owner; there is no prior owner
// to check against.
func (s *Service) CreateProduct(ctx context.Context, productID, metadata string, acting domain.WalletAddress) (*Receipt, error) {
	if productID == "" {
		return nil, domain.ErrInvalidProductID
	}
	if !acting.Valid() {
		return nil, domain.ErrInvalidIdentity
	}

	record := &domain.ProvenanceRecord{
		ProductID: productID,
		Kind:      domain.RecordKindManufacture,
		Owner:     acting,
		Metadata:  metadata,
		Timestamp: s.clock.Now(),
		Seq:       0,
	}

	result, err := s.anchorer.Anchor(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to anchor record: %w", err)
	}
	record.Ref = result.TxRef

	if err := s.store.CreateProduct(ctx, record); err != nil {
		return nil, err
	}

	s.publish(ctx, record)
	return &Receipt{Record: record, TxRef: result.TxRef, AccountID: result.AccountID}, nil
}

// TransferOwnership appends a Transfer record moving the product from the
// acting identity to nextOwner
func (s *Service) TransferOwnership(ctx context.Context, productID string, acting, nextOwner domain.WalletAddress) (*Receipt, error) {
	if !nextOwner.Valid() || nextOwner == acting {
		// A no-op transfer is rejected, not silently accepted
		return nil, domain.ErrInvalidTarget
	}

	return s.appendMutation(ctx, productID, acting, func() *domain.ProvenanceRecord {
		previous := acting
		return &domain.ProvenanceRecord{
			ProductID:     productID,
			Kind:          domain.RecordKindTransfer,
			Owner:         nextOwner,
			PreviousOwner: &previous,
		}
	})
}

// RecordRepair appends a Repair record; ownership is unchanged and the
// repair detail is required
func (s *Service) RecordRepair(ctx context.Context, productID string, acting domain.WalletAddress, metadata string) (*Receipt, error) {
	if metadata == "" {
		return nil, domain.ErrMissingRepairDetail
	}

	return s.appendMutation(ctx, productID, acting, func() *domain.ProvenanceRecord {
		return &domain.ProvenanceRecord{
			ProductID: productID,
			Kind:      domain.RecordKindRepair,
			Owner:     acting,
			Metadata:  metadata,
		}
	})
}

// RetireProduct appends an EndOfLife record. Once retired, the product
// accepts no further mutations; history remains queryable.
func (s *Service) RetireProduct(ctx context.Context, productID string, acting domain.WalletAddress) (*Receipt, error) {
	return s.appendMutation(ctx, productID, acting, func() *domain.ProvenanceRecord {
		return &domain.ProvenanceRecord{
			ProductID: productID,
			Kind:      domain.RecordKindEndOfLife,
			Owner:     acting,
			Metadata:  domain.EndOfLifeMetadata,
		}
	})
}

// History returns the product's full append-ordered record sequence
func (s *Service) History(ctx context.Context, productID string) ([]domain.ProvenanceRecord, error) {
	if productID == "" {
		return nil, domain.ErrInvalidProductID
	}
	return s.store.GetHistory(ctx, productID)
}

// Feed returns records across all products matching filter, most recent first
func (s *Service) Feed(ctx context.Context, filter store.Filter) ([]domain.ProvenanceRecord, error) {
	return s.store.ListRecords(ctx, filter)
}

// appendMutation runs the shared check-then-append sequence for Transfer,
// Repair and EndOfLife records. The read-validate-append is made atomic per
// product by optimistic sequencing: an append that loses the race returns
// a sequence conflict, and we re-read the new head and validate again, so a
// stale acting identity surfaces as an ownership mismatch rather than a
// double append.
func (s *Service) appendMutation(ctx context.Context, productID string, acting domain.WalletAddress, build func() *domain.ProvenanceRecord) (*Receipt, error) {
	if productID == "" {
		return nil, domain.ErrInvalidProductID
	}
	if !acting.Valid() {
		return nil, domain.ErrInvalidIdentity
	}

	for {
		latest, err := s.store.GetLatestRecord(ctx, productID)
		if err != nil {
			return nil, err
		}

		if latest.Kind == domain.RecordKindEndOfLife {
			return nil, domain.ErrProductRetired
		}

		// The single authorization gate: exact comparison against the
		// last record's owner, no normalization
		if latest.Owner != acting {
			return nil, &domain.OwnershipMismatchError{Required: latest.Owner, Supplied: acting}
		}

		record := build()
		record.Seq = latest.Seq + 1
		record.Timestamp = s.clock.Now()
		if record.Timestamp.Before(latest.Timestamp) {
			// Keep per-product timestamps non-decreasing across clock skew
			record.Timestamp = latest.Timestamp
		}

		if !record.Valid() {
			return nil, fmt.Errorf("internal: built inconsistent %s record for product %s", record.Kind, productID)
		}

		result, err := s.anchorer.Anchor(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("failed to anchor record: %w", err)
		}
		record.Ref = result.TxRef

		err = s.store.AppendRecord(ctx, record)
		if errors.Is(err, domain.ErrSequenceConflict) {
			// Another append took this position; re-validate against the new head
			continue
		}
		if err != nil {
			return nil, err
		}

		s.publish(ctx, record)
		return &Receipt{Record: record, TxRef: result.TxRef, AccountID: result.AccountID}, nil
	}
}

// publish emits a record event when a publisher is configured. Publishing is
// best-effort; a broker failure never rolls back an append.
func (s *Service) publish(ctx context.Context, record *domain.ProvenanceRecord) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishRecord(ctx, messaging.NewRecordEvent(record)); err != nil {
		logger.Error(err,
			zap.String("product_id", record.ProductID),
			zap.String("ref", record.Ref),
		)
	}
}
