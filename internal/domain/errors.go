package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateProduct is returned when creating a product whose ledger already exists
	ErrDuplicateProduct = errors.New("product ID already exists")

	// ErrUnknownProduct is returned when no ledger exists for a product ID
	ErrUnknownProduct = errors.New("product ID does not exist")

	// ErrSequenceConflict is returned when an append loses a compare-and-append
	// race; callers re-read the ledger head and re-validate
	ErrSequenceConflict = errors.New("record sequence conflict")

	// ErrOwnershipMismatch is returned when the acting identity is not the current owner
	ErrOwnershipMismatch = errors.New("ownership verification failed")

	// ErrInvalidTarget is returned when a transfer target is missing, undecodable,
	// or equal to the acting identity
	ErrInvalidTarget = errors.New("invalid transfer target")

	// ErrMissingRepairDetail is returned when a repair record carries no metadata
	ErrMissingRepairDetail = errors.New("repair metadata is required")

	// ErrProductRetired is returned when mutating a product after its EndOfLife record
	ErrProductRetired = errors.New("product is marked end-of-life")

	// ErrInvalidIdentity is returned when an acting identity is missing or does
	// not decode to a wallet public key
	ErrInvalidIdentity = errors.New("acting identity is not a valid wallet address")

	// ErrInvalidProductID is returned when a product ID is empty
	ErrInvalidProductID = errors.New("product ID is required")
)

// OwnershipMismatchError carries both the required and the supplied identity
// so callers can report why an ownership check failed
type OwnershipMismatchError struct {
	Required WalletAddress
	Supplied WalletAddress
}

func (e *OwnershipMismatchError) Error() string {
	return fmt.Sprintf("ownership verification failed: current owner is %s, not %s", e.Required, e.Supplied)
}

// Unwrap makes the error match ErrOwnershipMismatch under errors.Is
func (e *OwnershipMismatchError) Unwrap() error {
	return ErrOwnershipMismatch
}
