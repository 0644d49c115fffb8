// internal/repository/postgres/ledger.go
package postgres

import (
	"context"
	"time"

	"wa-insights-service/internal/domain/chat"
	"wa-insights-service/internal/domain/customer"
	"wa-insights-service/internal/domain/segment"

	"github.com/jackc/pgx/v5"
)

// LedgerStore binds the repositories into the transactional store used by ingestion,
// and serves the read side used by the summarizer and segmentation.
type LedgerStore struct {
	db        *DB
	customers *CustomerRepository
	sessions  *ChatSessionRepository
	messages  *MessageRepository
}

func NewLedgerStore(db *DB, customers *CustomerRepository, sessions *ChatSessionRepository, messages *MessageRepository) *LedgerStore {
	return &LedgerStore{db: db, customers: customers, sessions: sessions, messages: messages}
}

var (
	_ chat.Store         = (*LedgerStore)(nil)
	_ chat.History       = (*LedgerStore)(nil)
	_ segment.Repository = (*LedgerStore)(nil)
)

// InTx runs fn with a Ledger bound to one transaction.
func (s *LedgerStore) InTx(ctx context.Context, fn func(ctx context.Context, l chat.Ledger) error) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &txLedger{tx: tx, store: s})
	})
}

func (s *LedgerStore) UpdateMessageStatus(ctx context.Context, messageID, status string) (int64, error) {
	return s.messages.UpdateStatus(ctx, messageID, status)
}

func (s *LedgerStore) FindCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	return s.customers.FindByID(ctx, customerID)
}

func (s *LedgerStore) RecentMessages(ctx context.Context, customerID int64, limit int) ([]chat.Message, error) {
	return s.messages.FindRecentWithBody(ctx, customerID, limit)
}

func (s *LedgerStore) SessionStats(ctx context.Context, customerID int64) (*customer.SessionStats, error) {
	return s.sessions.StatsByCustomer(ctx, customerID)
}

func (s *LedgerStore) SaveResult(ctx context.Context, r *segment.Result) error {
	return s.customers.SaveSegment(ctx, r)
}

func (s *LedgerStore) CountBySegment(ctx context.Context) (segment.Stats, error) {
	return s.customers.CountBySegment(ctx)
}

func (s *LedgerStore) FindCandidates(ctx context.Context, f customer.SegmentationCandidateFilter) ([]int64, error) {
	return s.customers.FindSegmentationCandidates(ctx, f)
}

func (s *LedgerStore) ListBySegment(ctx context.Context, label segment.Label, limit int) ([]customer.Summary, error) {
	return s.customers.ListBySegment(ctx, label, limit)
}

type txLedger struct {
	tx    pgx.Tx
	store *LedgerStore
}

func (l *txLedger) LockCustomerByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	return l.store.customers.LockByPhoneWithTx(ctx, l.tx, phone)
}

func (l *txLedger) InsertCustomer(ctx context.Context, c *customer.Customer) (bool, error) {
	return l.store.customers.InsertIfAbsentWithTx(ctx, l.tx, c)
}

func (l *txLedger) RecordCustomerMessage(ctx context.Context, customerID int64, at time.Time, name string, increment bool) error {
	return l.store.customers.RecordMessageWithTx(ctx, l.tx, customerID, at, name, increment)
}

func (l *txLedger) FindActiveSession(ctx context.Context, customerID int64, startedAfter time.Time) (*chat.Session, error) {
	return l.store.sessions.FindActiveSinceWithTx(ctx, l.tx, customerID, startedAfter)
}

func (l *txLedger) CloseActiveSessions(ctx context.Context, customerID int64, endedAt time.Time) error {
	return l.store.sessions.CloseActiveWithTx(ctx, l.tx, customerID, endedAt)
}

func (l *txLedger) CreateSession(ctx context.Context, s *chat.Session) error {
	return l.store.sessions.CreateWithTx(ctx, l.tx, s)
}

func (l *txLedger) IncrementSessionMessages(ctx context.Context, sessionID int64) error {
	return l.store.sessions.IncrementMessageCountWithTx(ctx, l.tx, sessionID)
}

func (l *txLedger) MessageExists(ctx context.Context, messageID string) (bool, error) {
	return l.store.messages.ExistsWithTx(ctx, l.tx, messageID)
}

func (l *txLedger) InsertMessage(ctx context.Context, m *chat.Message) error {
	return l.store.messages.CreateWithTx(ctx, l.tx, m)
}
