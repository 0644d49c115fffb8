// internal/domain/customer/entity.go
package customer

import (
	"time"

	"github.com/lib/pq"
)

// Customer is a WhatsApp contact identified by a normalized phone number.
type Customer struct {
	ID            int64     `json:"id" db:"id"`
	PhoneNumber   string    `json:"phone_number" db:"phone_number"`
	Name          *string   `json:"name,omitempty" db:"name"`
	FirstMessage  time.Time `json:"first_message_at" db:"first_message_at"`
	LastMessage   time.Time `json:"last_message_at" db:"last_message_at"`
	TotalMessages int       `json:"total_messages" db:"total_messages"`

	// Latest segmentation, overwritten on every run
	Segment                *string        `json:"segment,omitempty" db:"segment"`
	SegmentedAt            *time.Time     `json:"segmented_at,omitempty" db:"segmented_at"`
	SegmentConfidence      *float64       `json:"segment_confidence,omitempty" db:"segment_confidence"`
	SegmentReasoning       *string        `json:"segment_reasoning,omitempty" db:"segment_reasoning"`
	SegmentCharacteristics pq.StringArray `json:"segment_characteristics,omitempty" db:"segment_characteristics"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the stored name or the phone number when no name is known.
func (c *Customer) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.PhoneNumber
}
