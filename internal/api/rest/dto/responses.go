package dto

import (
	"time"

	"github.com/chaintrace/provenance-api/internal/auth"
	"github.com/chaintrace/provenance-api/internal/domain"
	"github.com/chaintrace/provenance-api/internal/ledger"
)

// LoginResponse carries a freshly issued session credential
type LoginResponse struct {
	Token         string `json:"token"`
	WalletAddress string `json:"wallet_address"`
	ExpiresIn     int64  `json:"expires_in"` // in seconds
}

// VerifyResponse reports the validity of a presented credential
type VerifyResponse struct {
	Valid         bool      `json:"valid"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	IssuedAt      time.Time `json:"issued_at,omitzero"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
}

// ReceiptResponse acknowledges an accepted ledger append
type ReceiptResponse struct {
	ProductID   string `json:"product_id"`
	Transaction string `json:"transaction"`
	Account     string `json:"account,omitempty"`
}

// RecordResponse represents a single provenance record
type RecordResponse struct {
	Ref           string    `json:"ref"`
	ProductID     string    `json:"product_id"`
	Type          string    `json:"type"`
	Owner         string    `json:"owner"`
	PreviousOwner *string   `json:"previous_owner,omitempty"`
	Metadata      string    `json:"metadata,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Seq           uint64    `json:"seq"`
}

// HistoryResponse represents a product's full provenance chain
type HistoryResponse struct {
	ProductID string           `json:"product_id"`
	History   []RecordResponse `json:"history"`
}

// TransactionListResponse represents a page of the global record feed
type TransactionListResponse struct {
	Items []RecordResponse `json:"items"`
}

// MapCredentialToLogin maps an issued credential to a LoginResponse
func MapCredentialToLogin(credential *auth.Credential, ttl time.Duration) *LoginResponse {
	return &LoginResponse{
		Token:         credential.Token,
		WalletAddress: credential.Wallet.String(),
		ExpiresIn:     int64(ttl.Seconds()),
	}
}

// MapCredentialToVerify maps a validated credential to a VerifyResponse
func MapCredentialToVerify(credential *auth.Credential) *VerifyResponse {
	return &VerifyResponse{
		Valid:         true,
		WalletAddress: credential.Wallet.String(),
		IssuedAt:      credential.IssuedAt,
		ExpiresAt:     credential.ExpiresAt,
	}
}

// MapReceiptToDTO maps a ledger receipt to a ReceiptResponse
func MapReceiptToDTO(receipt *ledger.Receipt) *ReceiptResponse {
	return &ReceiptResponse{
		ProductID:   receipt.Record.ProductID,
		Transaction: receipt.TxRef,
		Account:     receipt.AccountID,
	}
}

// MapRecordToDTO maps a domain record to a RecordResponse
func MapRecordToDTO(record *domain.ProvenanceRecord) RecordResponse {
	dto := RecordResponse{
		Ref:       record.Ref,
		ProductID: record.ProductID,
		Type:      string(record.Kind),
		Owner:     record.Owner.String(),
		Metadata:  record.Metadata,
		Timestamp: record.Timestamp,
		Seq:       record.Seq,
	}

	if record.PreviousOwner != nil {
		previous := record.PreviousOwner.String()
		dto.PreviousOwner = &previous
	}

	return dto
}

// MapRecordsToDTO maps a slice of domain records
func MapRecordsToDTO(records []domain.ProvenanceRecord) []RecordResponse {
	dtos := make([]RecordResponse, 0, len(records))
	for i := range records {
		dtos = append(dtos, MapRecordToDTO(&records[i]))
	}
	return dtos
}
