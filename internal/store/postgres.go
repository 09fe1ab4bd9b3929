package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chaintrace/provenance-api/internal/domain"
	"github.com/chaintrace/provenance-api/internal/store/schema"
)

// pgStore is the durable Store option backed by PostgreSQL. The unique
// (product_id, seq) index turns concurrent check-then-append races into
// unique violations, which surface as domain.ErrSequenceConflict.
type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance. The gorm connection
// must be opened with TranslateError enabled.
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the provenance schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&schema.ProvenanceRecord{})
}

// ConfigureConnectionPool sets connection pool limits on the underlying sql.DB,
// applying defaults for zero values
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// CreateProduct inserts the Manufacture record, treating a duplicate key as
// an already-existing product ledger
func (s *pgStore) CreateProduct(ctx context.Context, record *domain.ProvenanceRecord) error {
	row := toSchema(record)
	err := s.db.WithContext(ctx).Create(row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateProduct
		}
		return fmt.Errorf("failed to create product ledger: %w", err)
	}
	return nil
}

// AppendRecord inserts a record at its sequence position
func (s *pgStore) AppendRecord(ctx context.Context, record *domain.ProvenanceRecord) error {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.ProvenanceRecord{}).
		Where("product_id = ?", record.ProductID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check product ledger: %w", err)
	}
	if count == 0 {
		return domain.ErrUnknownProduct
	}

	err = s.db.WithContext(ctx).Create(toSchema(record)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrSequenceConflict
		}
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

// GetLatestRecord returns the record with the highest sequence for a product
func (s *pgStore) GetLatestRecord(ctx context.Context, productID string) (*domain.ProvenanceRecord, error) {
	var row schema.ProvenanceRecord
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("seq DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownProduct
		}
		return nil, fmt.Errorf("failed to get latest record: %w", err)
	}

	return fromSchema(&row), nil
}

// GetHistory returns a product's records in sequence order
func (s *pgStore) GetHistory(ctx context.Context, productID string) ([]domain.ProvenanceRecord, error) {
	var rows []schema.ProvenanceRecord
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrUnknownProduct
	}

	out := make([]domain.ProvenanceRecord, 0, len(rows))
	for i := range rows {
		out = append(out, *fromSchema(&rows[i]))
	}
	return out, nil
}

// ListRecords returns filtered records in reverse global append order
func (s *pgStore) ListRecords(ctx context.Context, filter Filter) ([]domain.ProvenanceRecord, error) {
	query := s.db.WithContext(ctx).Model(&schema.ProvenanceRecord{})

	if filter.Owner != nil {
		query = query.Where("owner = ?", filter.Owner.String())
	}
	if filter.PreviousOwner != nil {
		query = query.Where("previous_owner = ?", filter.PreviousOwner.String())
	}
	if filter.StartTime != nil {
		query = query.Where("timestamp >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("timestamp <= ?", *filter.EndTime)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []schema.ProvenanceRecord
	if err := query.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	out := make([]domain.ProvenanceRecord, 0, len(rows))
	for i := range rows {
		out = append(out, *fromSchema(&rows[i]))
	}
	return out, nil
}

func toSchema(record *domain.ProvenanceRecord) *schema.ProvenanceRecord {
	row := &schema.ProvenanceRecord{
		Ref:       record.Ref,
		ProductID: record.ProductID,
		Seq:       record.Seq,
		Kind:      record.Kind,
		Owner:     record.Owner.String(),
		Metadata:  record.Metadata,
		Timestamp: record.Timestamp,
	}
	if record.PreviousOwner != nil {
		previous := record.PreviousOwner.String()
		row.PreviousOwner = &previous
	}
	return row
}

func fromSchema(row *schema.ProvenanceRecord) *domain.ProvenanceRecord {
	record := &domain.ProvenanceRecord{
		Ref:       row.Ref,
		ProductID: row.ProductID,
		Seq:       row.Seq,
		Kind:      row.Kind,
		Owner:     domain.WalletAddress(row.Owner),
		Metadata:  row.Metadata,
		Timestamp: row.Timestamp,
	}
	if row.PreviousOwner != nil {
		previous := domain.WalletAddress(*row.PreviousOwner)
		record.PreviousOwner = &previous
	}
	return record
}
