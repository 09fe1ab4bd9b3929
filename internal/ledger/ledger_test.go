package ledger_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace/provenance-api/internal/adapter"
	"github.com/chaintrace/provenance-api/internal/anchor"
	"github.com/chaintrace/provenance-api/internal/domain"
	"github.com/chaintrace/provenance-api/internal/ledger"
	"github.com/chaintrace/provenance-api/internal/logger"
	"github.com/chaintrace/provenance-api/internal/mocks"
	"github.com/chaintrace/provenance-api/internal/store"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{Debug: false})
	if err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

func newWallet(t *testing.T) domain.WalletAddress {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return domain.WalletAddress(base58.Encode(pub))
}

type fixture struct {
	service *ledger.Service
	store   store.Store
	advance func(time.Duration)
}

// newFixture wires the service against the in-memory store, a local anchor
// and a controllable clock
func newFixture(t *testing.T, publisher *mocks.MockPublisher) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().DoAndReturn(func() time.Time { return now }).AnyTimes()

	memStore := store.NewMemoryStore()
	var svc *ledger.Service
	if publisher != nil {
		svc = ledger.New(memStore, anchor.NewLocalAnchor(clock), clock, publisher)
	} else {
		svc = ledger.New(memStore, anchor.NewLocalAnchor(clock), clock, nil)
	}

	return &fixture{
		service: svc,
		store:   memStore,
		advance: func(d time.Duration) { now = now.Add(d) },
	}
}

func TestService_CreateProduct(t *testing.T) {
	ctx := context.Background()
	w1 := newWallet(t)
	f := newFixture(t, nil)

	receipt, err := f.service.CreateProduct(ctx, "SN-1", "batch 42", w1)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.TxRef)
	assert.NotEmpty(t, receipt.AccountID)
	assert.Equal(t, receipt.TxRef, receipt.Record.Ref)

	history, err := f.service.History(ctx, "SN-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.RecordKindManufacture, history[0].Kind)
	assert.Equal(t, w1, history[0].Owner)
	assert.Equal(t, "batch 42", history[0].Metadata)

	t.Run("duplicate product never appends", func(t *testing.T) {
		_, err := f.service.CreateProduct(ctx, "SN-1", "", newWallet(t))
		assert.ErrorIs(t, err, domain.ErrDuplicateProduct)

		history, err := f.service.History(ctx, "SN-1")
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("invalid identity", func(t *testing.T) {
		_, err := f.service.CreateProduct(ctx, "SN-2", "", "not-a-wallet")
		assert.ErrorIs(t, err, domain.ErrInvalidIdentity)
	})

	t.Run("missing product ID", func(t *testing.T) {
		_, err := f.service.CreateProduct(ctx, "", "", w1)
		assert.ErrorIs(t, err, domain.ErrInvalidProductID)
	})
}

func TestService_TransferOwnership(t *testing.T) {
	ctx := context.Background()
	w1 := newWallet(t)
	w2 := newWallet(t)
	f := newFixture(t, nil)

	_, err := f.service.CreateProduct(ctx, "SN-1", "", w1)
	require.NoError(t, err)

	f.advance(time.Minute)
	receipt, err := f.service.TransferOwnership(ctx, "SN-1", w1, w2)
	require.NoError(t, err)
	assert.Equal(t, domain.RecordKindTransfer, receipt.Record.Kind)
	assert.Equal(t, w2, receipt.Record.Owner)
	require.NotNil(t, receipt.Record.PreviousOwner)
	assert.Equal(t, w1, *receipt.Record.PreviousOwner)

	history, err := f.service.History(ctx, "SN-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, w2, history[1].Owner)

	t.Run("stale owner gets mismatch with both identities", func(t *testing.T) {
		w3 := newWallet(t)
		_, err := f.service.TransferOwnership(ctx, "SN-1", w1, w3)

		var mismatch *domain.OwnershipMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, w2, mismatch.Required)
		assert.Equal(t, w1, mismatch.Supplied)
		assert.ErrorIs(t, err, domain.ErrOwnershipMismatch)

		// Ledger length unchanged after the rejection
		history, err := f.service.History(ctx, "SN-1")
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.service.TransferOwnership(ctx, "SN-404", w1, w2)
		assert.ErrorIs(t, err, domain.ErrUnknownProduct)
	})

	t.Run("transfer to self is rejected", func(t *testing.T) {
		_, err := f.service.TransferOwnership(ctx, "SN-1", w2, w2)
		assert.ErrorIs(t, err, domain.ErrInvalidTarget)
	})

	t.Run("unparseable target is rejected", func(t *testing.T) {
		_, err := f.service.TransferOwnership(ctx, "SN-1", w2, "")
		assert.ErrorIs(t, err, domain.ErrInvalidTarget)
	})
}

func TestService_RecordRepair(t *testing.T) {
	ctx := context.Background()
	w1 := newWallet(t)
	f := newFixture(t, nil)

	_, err := f.service.CreateProduct(ctx, "SN-1", "", w1)
	require.NoError(t, err)

	receipt, err := f.service.RecordRepair(ctx, "SN-1", w1, "replaced battery")
	require.NoError(t, err)
	assert.Equal(t, domain.RecordKindRepair, receipt.Record.Kind)
	assert.Equal(t, w1, receipt.Record.Owner)
	assert.Nil(t, receipt.Record.PreviousOwner)

	t.Run("empty metadata is rejected", func(t *testing.T) {
		_, err := f.service.RecordRepair(ctx, "SN-1", w1, "")
		assert.ErrorIs(t, err, domain.ErrMissingRepairDetail)
	})

	t.Run("non-owner is rejected and ledger is unchanged", func(t *testing.T) {
		_, err := f.service.RecordRepair(ctx, "SN-1", newWallet(t), "bogus")
		assert.ErrorIs(t, err, domain.ErrOwnershipMismatch)

		history, err := f.service.History(ctx, "SN-1")
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})
}

func TestService_RetireProduct(t *testing.T) {
	ctx := context.Background()
	w1 := newWallet(t)
	f := newFixture(t, nil)

	_, err := f.service.CreateProduct(ctx, "SN-1", "", w1)
	require.NoError(t, err)

	receipt, err := f.service.RetireProduct(ctx, "SN-1", w1)
	require.NoError(t, err)
	assert.Equal(t, domain.RecordKindEndOfLife, receipt.Record.Kind)
	assert.Equal(t, domain.EndOfLifeMetadata, receipt.Record.Metadata)

	t.Run("no mutation after end of life", func(t *testing.T) {
		_, err := f.service.TransferOwnership(ctx, "SN-1", w1, newWallet(t))
		assert.ErrorIs(t, err, domain.ErrProductRetired)

		_, err = f.service.RecordRepair(ctx, "SN-1", w1, "too late")
		assert.ErrorIs(t, err, domain.ErrProductRetired)

		_, err = f.service.RetireProduct(ctx, "SN-1", w1)
		assert.ErrorIs(t, err, domain.ErrProductRetired)
	})

	t.Run("history still served", func(t *testing.T) {
		history, err := f.service.History(ctx, "SN-1")
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})
}

// TestService_HistoryChain checks the ownership chain invariant: every
// transfer's previous owner equals the owner of the preceding record, and
// timestamps never decrease within a product.
func TestService_HistoryChain(t *testing.T) {
	ctx := context.Background()
	owners := []domain.WalletAddress{newWallet(t), newWallet(t), newWallet(t)}
	f := newFixture(t, nil)

	_, err := f.service.CreateProduct(ctx, "SN-1", "made in plant 7", owners[0])
	require.NoError(t, err)

	f.advance(time.Hour)
	_, err = f.service.TransferOwnership(ctx, "SN-1", owners[0], owners[1])
	require.NoError(t, err)

	f.advance(time.Hour)
	_, err = f.service.RecordRepair(ctx, "SN-1", owners[1], "serviced")
	require.NoError(t, err)

	f.advance(time.Hour)
	_, err = f.service.TransferOwnership(ctx, "SN-1", owners[1], owners[2])
	require.NoError(t, err)

	history, err := f.service.History(ctx, "SN-1")
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, domain.RecordKindManufacture, history[0].Kind)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, uint64(i), history[i].Seq)
		assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp))
		if history[i].PreviousOwner != nil {
			assert.Equal(t, history[i-1].Owner, *history[i].PreviousOwner)
		}
	}
	assert.Equal(t, owners[2], history[len(history)-1].Owner)
}

func TestService_Feed(t *testing.T) {
	ctx := context.Background()
	w1 := newWallet(t)
	w2 := newWallet(t)
	f := newFixture(t, nil)

	_, err := f.service.CreateProduct(ctx, "SN-1", "", w1)
	require.NoError(t, err)
	f.advance(time.Minute)
	_, err = f.service.CreateProduct(ctx, "SN-2", "", w2)
	require.NoError(t, err)
	f.advance(time.Minute)
	_, err = f.service.TransferOwnership(ctx, "SN-1", w1, w2)
	require.NoError(t, err)

	records, err := f.service.Feed(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.RecordKindTransfer, records[0].Kind)

	owner := w2
	records, err = f.service.Feed(ctx, store.Filter{Owner: &owner, Limit: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SN-1", records[0].ProductID)
}

// TestService_ConcurrentTransfers drives two transfers from the same starting
// owner in parallel: exactly one must win, the other must observe an
// ownership mismatch, never a double append.
func TestService_ConcurrentTransfers(t *testing.T) {
	ctx := context.Background()
	w1 := newWallet(t)
	targets := []domain.WalletAddress{newWallet(t), newWallet(t)}

	for i := 0; i < 20; i++ {
		memStore := store.NewMemoryStore()
		clock := adapter.NewClock()
		svc := ledger.New(memStore, anchor.NewLocalAnchor(clock), clock, nil)

		_, err := svc.CreateProduct(ctx, "SN-1", "", w1)
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make([]error, 2)
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				_, results[j] = svc.TransferOwnership(ctx, "SN-1", w1, targets[j])
			}(j)
		}
		wg.Wait()

		var successes, mismatches int
		for _, err := range results {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrOwnershipMismatch):
				mismatches++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, successes)
		assert.Equal(t, 1, mismatches)

		history, err := svc.History(ctx, "SN-1")
		require.NoError(t, err)
		assert.Len(t, history, 2)
	}
}

func TestService_PublishesRecordEvents(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w1 := newWallet(t)
	publisher := mocks.NewMockPublisher(ctrl)
	f := newFixture(t, publisher)

	publisher.EXPECT().
		PublishRecord(gomock.Any(), gomock.Any()).
		Return(nil)

	_, err := f.service.CreateProduct(ctx, "SN-1", "", w1)
	require.NoError(t, err)

	t.Run("publish failure never fails an append", func(t *testing.T) {
		publisher.EXPECT().
			PublishRecord(gomock.Any(), gomock.Any()).
			Return(errors.New("broker unavailable"))

		_, err := f.service.RecordRepair(ctx, "SN-1", w1, "serviced")
		assert.NoError(t, err)
	})
}
