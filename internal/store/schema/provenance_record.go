package schema

import (
	"time"

	"github.com/chaintrace/provenance-api/internal/domain"
)

// ProvenanceRecord represents the provenance_records table. The autoincrement
// ID is the global feed order; the unique (product_id, seq) index is what the
// compare-and-append relies on.
type ProvenanceRecord struct {
	// ID is the internal database primary key and global append order
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Ref is the ledger-anchor transaction reference
	Ref string `gorm:"column:ref;not null;type:text;uniqueIndex:idx_provenance_ref"`
	// ProductID is the product this record belongs to
	ProductID string `gorm:"column:product_id;not null;type:text;uniqueIndex:idx_provenance_product_seq,priority:1;index:idx_provenance_product"`
	// Seq is the record's position within the product ledger
	Seq uint64 `gorm:"column:seq;not null;type:bigint;uniqueIndex:idx_provenance_product_seq,priority:2"`
	// Kind identifies the lifecycle event
	Kind domain.RecordKind `gorm:"column:kind;not null;type:text"`
	// Owner is the wallet holding the product after this record
	Owner string `gorm:"column:owner;not null;type:text;index:idx_provenance_owner"`
	// PreviousOwner is set only on Transfer records
	PreviousOwner *string `gorm:"column:previous_owner;type:text;index:idx_provenance_previous_owner"`
	// Metadata is free-form record detail
	Metadata string `gorm:"column:metadata;type:text"`
	// Timestamp is the append-time wall clock capture
	Timestamp time.Time `gorm:"column:timestamp;not null;type:timestamptz"`
	// CreatedAt is when the row was written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ProvenanceRecord model
func (ProvenanceRecord) TableName() string {
	return "provenance_records"
}
