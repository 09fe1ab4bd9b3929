package domain

import (
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
)

// WalletAddress represents a base58-encoded ed25519 public key.
// It is the sole authorization principal in the system; there is no
// registration step, any syntactically valid key can present itself.
type WalletAddress string

// Valid reports whether the address decodes to an ed25519 public key.
// Addresses are case-sensitive base58; no normalization is applied.
func (w WalletAddress) Valid() bool {
	raw, err := base58.Decode(string(w))
	if err != nil {
		return false
	}
	return len(raw) == ed25519.PublicKeySize
}

// Bytes returns the decoded public key bytes
func (w WalletAddress) Bytes() ([]byte, error) {
	return base58.Decode(string(w))
}

// String returns the string representation of the wallet address
func (w WalletAddress) String() string {
	return string(w)
}

// RecordKind represents the type of provenance record
type RecordKind string

const (
	RecordKindManufacture RecordKind = "Manufacture"
	RecordKindTransfer    RecordKind = "Transfer"
	RecordKindRepair      RecordKind = "Repair"
	RecordKindEndOfLife   RecordKind = "EndOfLife"
)

// IsValidRecordKind checks if a record kind is valid
func IsValidRecordKind(kind RecordKind) bool {
	return kind == RecordKindManufacture ||
		kind == RecordKindTransfer ||
		kind == RecordKindRepair ||
		kind == RecordKindEndOfLife
}

// EndOfLifeMetadata is the fixed metadata written on EndOfLife records
const EndOfLifeMetadata = "Product marked as end-of-life"

// ProvenanceRecord represents one immutable entry in a product's history.
// Records are append-only; the owner of the last record in a product's
// ledger is the product's current owner.
type ProvenanceRecord struct {
	// Ref is the ledger-anchor transaction reference, unique per record
	Ref string `json:"ref"`
	// ProductID is the external correlation key, set by Manufacture
	ProductID string `json:"product_id"`
	// Kind identifies the lifecycle event (Manufacture, Transfer, Repair, EndOfLife)
	Kind RecordKind `json:"type"`
	// Owner is the wallet holding the product after this record
	Owner WalletAddress `json:"owner"`
	// PreviousOwner is set only on Transfer records and must equal the
	// owner of the immediately preceding record
	PreviousOwner *WalletAddress `json:"previous_owner,omitempty"`
	// Metadata is free-form detail; required on Repair records
	Metadata string `json:"metadata,omitempty"`
	// Timestamp is the wall-clock capture at append time, non-decreasing
	// within a product's sequence
	Timestamp time.Time `json:"timestamp"`
	// Seq is the record's position in the product ledger (0 = Manufacture)
	Seq uint64 `json:"seq"`
}

// Valid checks structural consistency of the record for its kind
func (r *ProvenanceRecord) Valid() bool {
	if r.ProductID == "" || !r.Owner.Valid() {
		return false
	}

	switch r.Kind {
	case RecordKindManufacture:
		// Manufacture is always the first record and carries no previous owner
		if r.Seq != 0 || r.PreviousOwner != nil {
			return false
		}
	case RecordKindTransfer:
		if r.Seq == 0 {
			return false
		}
		if r.PreviousOwner == nil || !r.PreviousOwner.Valid() {
			return false
		}
		if *r.PreviousOwner == r.Owner {
			return false
		}
	case RecordKindRepair:
		if r.Seq == 0 || r.PreviousOwner != nil {
			return false
		}
		if r.Metadata == "" {
			return false
		}
	case RecordKindEndOfLife:
		if r.Seq == 0 || r.PreviousOwner != nil {
			return false
		}
	default:
		return false
	}

	return true
}
