package messaging

import (
	"context"
	"time"

	"github.com/chaintrace/provenance-api/internal/domain"
)

// RecordEvent is the normalized provenance event published to the message
// broker after every successful append
type RecordEvent struct {
	Ref           string            `json:"ref"`
	ProductID     string            `json:"product_id"`
	Kind          domain.RecordKind `json:"type"`
	Owner         string            `json:"owner"`
	PreviousOwner *string           `json:"previous_owner,omitempty"`
	Metadata      string            `json:"metadata,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Seq           uint64            `json:"seq"`
}

// NewRecordEvent builds the published view of a provenance record
func NewRecordEvent(record *domain.ProvenanceRecord) *RecordEvent {
	event := &RecordEvent{
		Ref:       record.Ref,
		ProductID: record.ProductID,
		Kind:      record.Kind,
		Owner:     record.Owner.String(),
		Metadata:  record.Metadata,
		Timestamp: record.Timestamp,
		Seq:       record.Seq,
	}
	if record.PreviousOwner != nil {
		previous := record.PreviousOwner.String()
		event.PreviousOwner = &previous
	}
	return event
}

// Publisher defines the interface for publishing record events to a message queue
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishRecord publishes a provenance record event to the message broker
	PublishRecord(ctx context.Context, event *RecordEvent) error
	// Close closes the connection
	Close()
}
