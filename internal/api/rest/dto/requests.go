package dto

import "errors"

// LoginRequest carries a wallet signature challenge for session issuance
type LoginRequest struct {
	WalletAddress string `json:"wallet_address"`
	Message       string `json:"message"`
	Signature     string `json:"signature"`
}

// Validate checks required fields
func (r *LoginRequest) Validate() error {
	if r.WalletAddress == "" {
		return errors.New("wallet_address is required")
	}
	if r.Message == "" {
		return errors.New("message is required")
	}
	if r.Signature == "" {
		return errors.New("signature is required")
	}
	return nil
}

// CreateProductRequest registers a new product ledger
type CreateProductRequest struct {
	ProductID    string `json:"product_id"`
	Metadata     string `json:"metadata"`
	Manufacturer string `json:"manufacturer"`
}

// Validate checks required fields
func (r *CreateProductRequest) Validate() error {
	if r.ProductID == "" {
		return errors.New("product_id is required")
	}
	if r.Manufacturer == "" {
		return errors.New("manufacturer is required")
	}
	return nil
}

// TransferOwnershipRequest hands a product over to a new owner
type TransferOwnershipRequest struct {
	CurrentOwner string `json:"current_owner"`
	NextOwner    string `json:"next_owner"`
}

// Validate checks required fields
func (r *TransferOwnershipRequest) Validate() error {
	if r.CurrentOwner == "" {
		return errors.New("current_owner is required")
	}
	if r.NextOwner == "" {
		return errors.New("next_owner is required")
	}
	return nil
}

// RecordRepairRequest appends a repair record to a product ledger
type RecordRepairRequest struct {
	Owner          string `json:"owner"`
	RepairMetadata string `json:"repair_metadata"`
}

// Validate checks required fields
func (r *RecordRepairRequest) Validate() error {
	if r.Owner == "" {
		return errors.New("owner is required")
	}
	if r.RepairMetadata == "" {
		return errors.New("repair_metadata is required")
	}
	return nil
}

// RetireProductRequest marks a product as end-of-life
type RetireProductRequest struct {
	Owner string `json:"owner"`
}

// Validate checks required fields
func (r *RetireProductRequest) Validate() error {
	if r.Owner == "" {
		return errors.New("owner is required")
	}
	return nil
}
