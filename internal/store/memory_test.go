package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace/provenance-api/internal/domain"
)

const (
	walletA = domain.WalletAddress("4Nd1mY5ZkPv1rYXqd5tLQzTVmKvXrqRkkEdDihEdrKLJ")
	walletB = domain.WalletAddress("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
)

func manufactureRecord(productID string, owner domain.WalletAddress, ts time.Time) *domain.ProvenanceRecord {
	return &domain.ProvenanceRecord{
		Ref:       "ref-" + productID + "-0",
		ProductID: productID,
		Kind:      domain.RecordKindManufacture,
		Owner:     owner,
		Timestamp: ts,
		Seq:       0,
	}
}

func TestMemoryStore_CreateProduct(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	err := s.CreateProduct(ctx, manufactureRecord("SN-1", walletA, now))
	require.NoError(t, err)

	// Second create on the same product must fail and append nothing
	err = s.CreateProduct(ctx, manufactureRecord("SN-1", walletB, now))
	assert.ErrorIs(t, err, domain.ErrDuplicateProduct)

	history, err := s.GetHistory(ctx, "SN-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, walletA, history[0].Owner)
}

func TestMemoryStore_AppendRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	require.NoError(t, s.CreateProduct(ctx, manufactureRecord("SN-1", walletA, now)))

	previous := walletA
	transfer := &domain.ProvenanceRecord{
		Ref:           "ref-SN-1-1",
		ProductID:     "SN-1",
		Kind:          domain.RecordKindTransfer,
		Owner:         walletB,
		PreviousOwner: &previous,
		Timestamp:     now,
		Seq:           1,
	}
	require.NoError(t, s.AppendRecord(ctx, transfer))

	t.Run("unknown product", func(t *testing.T) {
		missing := *transfer
		missing.ProductID = "SN-404"
		err := s.AppendRecord(ctx, &missing)
		assert.ErrorIs(t, err, domain.ErrUnknownProduct)
	})

	t.Run("sequence conflict", func(t *testing.T) {
		stale := *transfer
		stale.Ref = "ref-SN-1-1b"
		err := s.AppendRecord(ctx, &stale)
		assert.ErrorIs(t, err, domain.ErrSequenceConflict)
	})

	latest, err := s.GetLatestRecord(ctx, "SN-1")
	require.NoError(t, err)
	assert.Equal(t, walletB, latest.Owner)
	assert.Equal(t, uint64(1), latest.Seq)
}

func TestMemoryStore_GetHistory_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateProduct(ctx, manufactureRecord("SN-1", walletA, time.Now())))

	history, err := s.GetHistory(ctx, "SN-1")
	require.NoError(t, err)

	// Mutating the returned slice must not touch the backing ledger
	history[0].Owner = walletB
	again, err := s.GetHistory(ctx, "SN-1")
	require.NoError(t, err)
	assert.Equal(t, walletA, again[0].Owner)

	_, err = s.GetHistory(ctx, "SN-404")
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
}

func TestMemoryStore_ListRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateProduct(ctx, manufactureRecord("SN-1", walletA, base)))
	require.NoError(t, s.CreateProduct(ctx, manufactureRecord("SN-2", walletB, base.Add(time.Minute))))

	previous := walletA
	require.NoError(t, s.AppendRecord(ctx, &domain.ProvenanceRecord{
		Ref:           "ref-SN-1-1",
		ProductID:     "SN-1",
		Kind:          domain.RecordKindTransfer,
		Owner:         walletB,
		PreviousOwner: &previous,
		Timestamp:     base.Add(2 * time.Minute),
		Seq:           1,
	}))

	t.Run("reverse append order", func(t *testing.T) {
		records, err := s.ListRecords(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, domain.RecordKindTransfer, records[0].Kind)
		assert.Equal(t, "SN-2", records[1].ProductID)
		assert.Equal(t, "SN-1", records[2].ProductID)
	})

	t.Run("owner filter", func(t *testing.T) {
		owner := walletB
		records, err := s.ListRecords(ctx, Filter{Owner: &owner})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("previous owner filter", func(t *testing.T) {
		previousOwner := walletA
		records, err := s.ListRecords(ctx, Filter{PreviousOwner: &previousOwner})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.RecordKindTransfer, records[0].Kind)
	})

	t.Run("time window is inclusive", func(t *testing.T) {
		start := base.Add(time.Minute)
		end := base.Add(time.Minute)
		records, err := s.ListRecords(ctx, Filter{StartTime: &start, EndTime: &end})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "SN-2", records[0].ProductID)
	})

	t.Run("filters compose with AND", func(t *testing.T) {
		owner := walletB
		end := base.Add(90 * time.Second)
		records, err := s.ListRecords(ctx, Filter{Owner: &owner, EndTime: &end})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "SN-2", records[0].ProductID)
	})

	t.Run("limit caps results", func(t *testing.T) {
		records, err := s.ListRecords(ctx, Filter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}
