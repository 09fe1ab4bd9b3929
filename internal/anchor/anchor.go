package anchor

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/chaintrace/provenance-api/internal/adapter"
	"github.com/chaintrace/provenance-api/internal/domain"
)

// Result carries the external references produced by anchoring a record
type Result struct {
	// TxRef is the stable, unique transaction reference for the append
	TxRef string
	// AccountID is the address of the account holding the anchored record
	AccountID string
}

// Anchor writes a provenance record to an external durable ledger and
// returns its reference. The ledger itself is an external collaborator;
// implementations only have to guarantee that every successful append
// yields a stable, unique TxRef.
//
//go:generate mockgen -source=anchor.go -destination=../mocks/anchor.go -package=mocks -mock_names=Anchor=MockAnchor
type Anchor interface {
	Anchor(ctx context.Context, record *domain.ProvenanceRecord) (*Result, error)
}

// localAnchor is the in-process stand-in used until records are written to a
// real chain. Refs are ULIDs so they sort by anchor time.
type localAnchor struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	clock   adapter.Clock
}

// NewLocalAnchor creates an anchor that mints references locally
func NewLocalAnchor(clock adapter.Clock) Anchor {
	return &localAnchor{
		entropy: ulid.Monotonic(rand.Reader, 0),
		clock:   clock,
	}
}

// Anchor mints a unique reference for the record
func (a *localAnchor) Anchor(_ context.Context, _ *domain.ProvenanceRecord) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(a.clock.Now()), a.entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to mint anchor reference: %w", err)
	}

	return &Result{
		TxRef:     id.String(),
		AccountID: uuid.NewString(),
	}, nil
}
