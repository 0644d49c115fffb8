// internal/domain/chat/entity.go
package chat

import "time"

// Session is a run of messages from one customer that started within the session window.
type Session struct {
	ID           int64      `json:"id" db:"id"`
	CustomerID   int64      `json:"customer_id" db:"customer_id"`
	StartTime    time.Time  `json:"start_time" db:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty" db:"end_time"`
	MessageCount int        `json:"message_count" db:"message_count"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Message is one stored WhatsApp message. Only Status changes after insert.
type Message struct {
	ID         int64     `json:"id" db:"id"`
	MessageID  string    `json:"message_id" db:"message_id"`
	CustomerID int64     `json:"customer_id" db:"customer_id"`
	SessionID  int64     `json:"session_id" db:"session_id"`
	ChatID     string    `json:"chat_id" db:"chat_id"`
	FromNumber string    `json:"from_number" db:"from_number"`
	ToNumber   *string   `json:"to_number,omitempty" db:"to_number"`
	Body       *string   `json:"body,omitempty" db:"body"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	FromMe     bool      `json:"from_me" db:"from_me"`
	HasMedia   bool      `json:"has_media" db:"has_media"`
	Status     *string   `json:"status,omitempty" db:"status"`
	ReplyTo    *string   `json:"reply_to,omitempty" db:"reply_to"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// IngestResult reports what one ingested message touched.
type IngestResult struct {
	CustomerID      int64 `json:"customer_id"`
	SessionID       int64 `json:"session_id"`
	MessageID       int64 `json:"message_id"`
	CustomerCreated bool  `json:"customer_created"`
	SessionCreated  bool  `json:"session_created"`
}
