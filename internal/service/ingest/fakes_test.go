package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"wa-insights-service/internal/domain/chat"
	"wa-insights-service/internal/domain/customer"
	xerrors "wa-insights-service/internal/pkg/errors"
)

var errActiveSessionExists = errors.New("active session already exists")

// memStore is an in-memory chat.Store. Transactions are serialized and
// committed by swapping in the working copy, so a failed fn leaves no trace.
type memStore struct {
	mu                sync.Mutex
	nextID            int64
	state             memState
	failInsertMessage error
}

type memState struct {
	customers map[int64]customer.Customer
	sessions  map[int64]chat.Session
	messages  map[string]chat.Message
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		customers: map[int64]customer.Customer{},
		sessions:  map[int64]chat.Session{},
		messages:  map[string]chat.Message{},
	}}
}

func (st memState) clone() memState {
	out := memState{
		customers: make(map[int64]customer.Customer, len(st.customers)),
		sessions:  make(map[int64]chat.Session, len(st.sessions)),
		messages:  make(map[string]chat.Message, len(st.messages)),
	}
	for k, v := range st.customers {
		out.customers[k] = v
	}
	for k, v := range st.sessions {
		out.sessions[k] = v
	}
	for k, v := range st.messages {
		out.messages[k] = v
	}
	return out
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, l chat.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &memLedger{store: s, st: &work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *memStore) UpdateMessageStatus(_ context.Context, messageID, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.state.messages[messageID]
	if !ok {
		return 0, nil
	}
	m.Status = &status
	s.state.messages[messageID] = m
	return 1, nil
}

func (s *memStore) customers() []customer.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]customer.Customer, 0, len(s.state.customers))
	for _, c := range s.state.customers {
		out = append(out, c)
	}
	return out
}

func (s *memStore) sessionsOf(customerID int64) []chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Session
	for id := int64(1); id <= s.nextID; id++ {
		if sess, ok := s.state.sessions[id]; ok && sess.CustomerID == customerID {
			out = append(out, sess)
		}
	}
	return out
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.messages)
}

func (s *memStore) message(id string) (chat.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.messages[id]
	return m, ok
}

type memLedger struct {
	store *memStore
	st    *memState
}

func (l *memLedger) id() int64 {
	l.store.nextID++
	return l.store.nextID
}

func (l *memLedger) LockCustomerByPhone(_ context.Context, phone string) (*customer.Customer, error) {
	for _, c := range l.st.customers {
		if c.PhoneNumber == phone {
			cp := c
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (l *memLedger) InsertCustomer(_ context.Context, c *customer.Customer) (bool, error) {
	for _, existing := range l.st.customers {
		if existing.PhoneNumber == c.PhoneNumber {
			return false, nil
		}
	}
	c.ID = l.id()
	l.st.customers[c.ID] = *c
	return true, nil
}

func (l *memLedger) RecordCustomerMessage(_ context.Context, customerID int64, at time.Time, name string, increment bool) error {
	c, ok := l.st.customers[customerID]
	if !ok {
		return xerrors.ErrNotFound
	}
	c.LastMessage = at
	if increment {
		c.TotalMessages++
	}
	if c.Name == nil && name != "" {
		n := name
		c.Name = &n
	}
	l.st.customers[customerID] = c
	return nil
}

func (l *memLedger) FindActiveSession(_ context.Context, customerID int64, startedAfter time.Time) (*chat.Session, error) {
	for _, s := range l.st.sessions {
		if s.CustomerID == customerID && s.IsActive && !s.StartTime.Before(startedAfter) {
			cp := s
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (l *memLedger) CloseActiveSessions(_ context.Context, customerID int64, endedAt time.Time) error {
	for id, s := range l.st.sessions {
		if s.CustomerID == customerID && s.IsActive {
			end := endedAt
			s.IsActive = false
			s.EndTime = &end
			l.st.sessions[id] = s
		}
	}
	return nil
}

func (l *memLedger) CreateSession(_ context.Context, s *chat.Session) error {
	for _, existing := range l.st.sessions {
		if existing.CustomerID == s.CustomerID && existing.IsActive {
			return errActiveSessionExists
		}
	}
	s.ID = l.id()
	s.IsActive = true
	l.st.sessions[s.ID] = *s
	return nil
}

func (l *memLedger) IncrementSessionMessages(_ context.Context, sessionID int64) error {
	s, ok := l.st.sessions[sessionID]
	if !ok {
		return xerrors.ErrNotFound
	}
	s.MessageCount++
	l.st.sessions[sessionID] = s
	return nil
}

func (l *memLedger) MessageExists(_ context.Context, messageID string) (bool, error) {
	_, ok := l.st.messages[messageID]
	return ok, nil
}

func (l *memLedger) InsertMessage(_ context.Context, m *chat.Message) error {
	if l.store.failInsertMessage != nil {
		return l.store.failInsertMessage
	}
	if _, ok := l.st.messages[m.MessageID]; ok {
		return xerrors.ErrDuplicateMessage
	}
	m.ID = l.id()
	l.st.messages[m.MessageID] = *m
	return nil
}

type memReplay struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemReplay() *memReplay { return &memReplay{seen: map[string]bool{}} }

func (r *memReplay) SeenMessage(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[id], nil
}

func (r *memReplay) RememberMessage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[id] = true
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
