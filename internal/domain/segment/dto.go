// internal/domain/segment/dto.go
package segment

import "time"

// HourCount is the number of messages observed in one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// WordCount is a frequent content word and how often it appeared.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Digest condenses a customer's history into classifier input.
type Digest struct {
	CustomerID            int64       `json:"customer_id"`
	Name                  string      `json:"name"`
	PhoneNumber           string      `json:"phone_number"`
	TotalMessages         int         `json:"total_messages"`
	FirstMessageAt        time.Time   `json:"first_message_at"`
	LastMessageAt         time.Time   `json:"last_message_at"`
	DaysAsCustomer        int         `json:"days_as_customer"`
	DaysSinceLastMessage  int         `json:"days_since_last_message"`
	MessagesPerDay        float64     `json:"messages_per_day"`
	SessionCount          int64       `json:"session_count"`
	AvgMessagesPerSession float64     `json:"avg_messages_per_session"`
	PeakHours             []HourCount `json:"peak_hours"`
	AvgResponseSeconds    float64     `json:"avg_response_seconds"`
	TopWords              []WordCount `json:"top_words"`
	RecentMessages        []string    `json:"recent_messages"`
	SampledMessages       int         `json:"sampled_messages"`
	CurrentSegment        *string     `json:"current_segment,omitempty"`
}

// Stats maps every label carried by at least one customer to its count.
type Stats map[Label]int64

// BatchReport summarizes one batch segmentation run.
type BatchReport struct {
	Requested  int           `json:"requested"`
	Segmented  int           `json:"segmented"`
	Fallbacks  int           `json:"fallbacks"`
	Failed     int           `json:"failed"`
	FailedIDs  []int64       `json:"failed_ids,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}
