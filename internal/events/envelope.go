// internal/events/envelope.go
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types, also used as routing keys.
const (
	TypeMessageIngested   = "message.ingested.v1"
	TypeCustomerSegmented = "customer.segmented.v1"
)

// Meta describes an emitted event.
type Meta struct {
	ID            string    `json:"id"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	Producer      *string   `json:"producer,omitempty"`
	Time          time.Time `json:"time"`
	Type          string    `json:"type"`
}

// Envelope wraps every published payload.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// NewEnvelope stamps a payload with a fresh id and the current time.
// Empty producer or correlation values are omitted.
func NewEnvelope(eventType, producer, correlationID string, data any) Envelope {
	meta := Meta{
		ID:   uuid.NewString(),
		Time: time.Now().UTC(),
		Type: eventType,
	}
	if producer != "" {
		meta.Producer = &producer
	}
	if correlationID != "" {
		meta.CorrelationID = &correlationID
	}
	return Envelope{Meta: meta, Data: data}
}

// MessageIngested is emitted after an inbound message is committed.
type MessageIngested struct {
	CustomerID      int64     `json:"customer_id"`
	SessionID       int64     `json:"session_id"`
	MessageID       string    `json:"message_id"`
	PhoneNumber     string    `json:"phone_number"`
	Timestamp       time.Time `json:"timestamp"`
	CustomerCreated bool      `json:"customer_created"`
	SessionCreated  bool      `json:"session_created"`
}

// CustomerSegmented is emitted after a segmentation result is persisted.
type CustomerSegmented struct {
	CustomerID      int64     `json:"customer_id"`
	Segment         string    `json:"segment"`
	Confidence      float64   `json:"confidence"`
	Characteristics []string  `json:"characteristics"`
	Fallback        bool      `json:"fallback"`
	SegmentedAt     time.Time `json:"segmented_at"`
}
