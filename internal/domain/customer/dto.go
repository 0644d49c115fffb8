// internal/domain/customer/dto.go
package customer

import "time"

// SessionStats aggregates the chat sessions of one customer.
type SessionStats struct {
	SessionCount          int64   `json:"session_count"`
	AvgMessagesPerSession float64 `json:"avg_messages_per_session"`
}

// Summary is the compact listing view of a customer.
type Summary struct {
	ID            int64      `json:"id"`
	PhoneNumber   string     `json:"phone_number"`
	Name          *string    `json:"name,omitempty"`
	TotalMessages int        `json:"total_messages"`
	LastMessage   time.Time  `json:"last_message_at"`
	Segment       *string    `json:"segment,omitempty"`
	SegmentedAt   *time.Time `json:"segmented_at,omitempty"`
}

// SegmentationCandidateFilter selects customers whose label is missing or stale.
type SegmentationCandidateFilter struct {
	StaleBefore time.Time
	MinMessages int
	Limit       int
}
