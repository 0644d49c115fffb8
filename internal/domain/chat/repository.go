// internal/domain/chat/repository.go
package chat

import (
	"context"
	"time"

	"wa-insights-service/internal/domain/customer"
)

// Ledger is the transactional view used by the ingestion pipeline.
// Every call made through one Ledger commits or rolls back together.
type Ledger interface {
	// Customer
	LockCustomerByPhone(ctx context.Context, phone string) (*customer.Customer, error)
	InsertCustomer(ctx context.Context, c *customer.Customer) (bool, error)
	RecordCustomerMessage(ctx context.Context, customerID int64, at time.Time, name string, increment bool) error

	// Sessions
	FindActiveSession(ctx context.Context, customerID int64, startedAfter time.Time) (*Session, error)
	CloseActiveSessions(ctx context.Context, customerID int64, endedAt time.Time) error
	CreateSession(ctx context.Context, s *Session) error
	IncrementSessionMessages(ctx context.Context, sessionID int64) error

	// Messages
	MessageExists(ctx context.Context, messageID string) (bool, error)
	InsertMessage(ctx context.Context, m *Message) error
}

// Store opens ledger transactions and applies out-of-band status updates.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error
	UpdateMessageStatus(ctx context.Context, messageID, status string) (int64, error)
}

// History reads what the summarizer needs about one customer.
type History interface {
	FindCustomer(ctx context.Context, customerID int64) (*customer.Customer, error)
	RecentMessages(ctx context.Context, customerID int64, limit int) ([]Message, error)
	SessionStats(ctx context.Context, customerID int64) (*customer.SessionStats, error)
}
