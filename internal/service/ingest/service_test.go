package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"wa-insights-service/internal/domain/webhook"
	xerrors "wa-insights-service/internal/pkg/errors"
	"wa-insights-service/internal/pkg/guard"

	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type harness struct {
	store     *memStore
	replay    ReplayCache
	publisher *recordingPublisher
	clock     *fakeClock
	svc       *Service
}

func newHarness(replay ReplayCache) *harness {
	h := &harness{
		store:     newMemStore(),
		replay:    replay,
		publisher: &recordingPublisher{},
		clock:     &fakeClock{now: t0},
	}
	h.svc = NewService(h.store, h.replay, h.publisher, DefaultSessionWindow, zap.NewNop(), WithClock(h.clock.Now))
	return h
}

func body(s string) *string { return &s }

func inbound(id, from string) *webhook.IncomingMessage {
	return &webhook.IncomingMessage{
		MessageID: id,
		ChatID:    from,
		From:      from,
		To:        "254700000001@c.us",
		Body:      body("hello there"),
		Timestamp: t0,
		NameHint:  "Amina",
	}
}

func TestIngest_UnseenPhoneCreatesCustomerSessionAndMessage(t *testing.T) {
	t.Parallel()
	h := newHarness(guard.Noop{})

	res, err := h.svc.Ingest(context.Background(), inbound("m1", "254712345678@c.us"))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if !res.CustomerCreated || !res.SessionCreated {
		t.Errorf("expected new customer and session, got %+v", res)
	}

	customers := h.store.customers()
	if len(customers) != 1 {
		t.Fatalf("customers = %d, want 1", len(customers))
	}
	c := customers[0]
	if c.PhoneNumber != "254712345678" {
		t.Errorf("phone = %q, want 254712345678", c.PhoneNumber)
	}
	if c.TotalMessages != 1 {
		t.Errorf("total messages = %d, want 1", c.TotalMessages)
	}
	if c.Name == nil || *c.Name != "Amina" {
		t.Errorf("name = %v, want Amina", c.Name)
	}

	sessions := h.store.sessionsOf(c.ID)
	if len(sessions) != 1 || !sessions[0].IsActive || sessions[0].MessageCount != 1 {
		t.Errorf("sessions = %+v, want one active session with one message", sessions)
	}
	if h.store.messageCount() != 1 {
		t.Errorf("messages = %d, want 1", h.store.messageCount())
	}
	if h.publisher.count() != 1 {
		t.Errorf("published events = %d, want 1", h.publisher.count())
	}
}

func TestIngest_SessionWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		gap          time.Duration
		wantSessions int
	}{
		{name: "within window reuses session", gap: 10 * time.Minute, wantSessions: 1},
		{name: "exactly at window edge reuses session", gap: 30 * time.Minute, wantSessions: 1},
		{name: "past window opens new session", gap: 31 * time.Minute, wantSessions: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(guard.Noop{})
			ctx := context.Background()

			if _, err := h.svc.Ingest(ctx, inbound("a", "254712345678@c.us")); err != nil {
				t.Fatalf("first Ingest() error = %v", err)
			}
			h.clock.Advance(tt.gap)
			second, err := h.svc.Ingest(ctx, inbound("b", "254712345678@c.us"))
			if err != nil {
				t.Fatalf("second Ingest() error = %v", err)
			}

			sessions := h.store.sessionsOf(second.CustomerID)
			if len(sessions) != tt.wantSessions {
				t.Fatalf("sessions = %d, want %d", len(sessions), tt.wantSessions)
			}

			if tt.wantSessions == 1 {
				if sessions[0].MessageCount != 2 {
					t.Errorf("message count = %d, want 2", sessions[0].MessageCount)
				}
				return
			}

			first, latest := sessions[0], sessions[1]
			if first.IsActive {
				t.Error("superseded session should be inactive")
			}
			if first.EndTime == nil || !first.EndTime.Equal(t0.Add(tt.gap)) {
				t.Errorf("superseded end time = %v, want %v", first.EndTime, t0.Add(tt.gap))
			}
			if !latest.IsActive || latest.MessageCount != 1 {
				t.Errorf("new session = %+v, want active with one message", latest)
			}
			if !second.SessionCreated {
				t.Error("expected SessionCreated on second ingest")
			}

			c := h.store.customers()[0]
			if c.TotalMessages != 2 {
				t.Errorf("total messages = %d, want 2", c.TotalMessages)
			}
		})
	}
}

func TestIngest_DuplicateDoesNotDoubleCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		replay ReplayCache
	}{
		{name: "database detects replay", replay: guard.Noop{}},
		{name: "cache detects replay", replay: newMemReplay()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(tt.replay)
			ctx := context.Background()

			if _, err := h.svc.Ingest(ctx, inbound("dup", "254712345678@c.us")); err != nil {
				t.Fatalf("first Ingest() error = %v", err)
			}
			_, err := h.svc.Ingest(ctx, inbound("dup", "254712345678@c.us"))
			if !errors.Is(err, xerrors.ErrDuplicateMessage) {
				t.Fatalf("second Ingest() error = %v, want ErrDuplicateMessage", err)
			}

			c := h.store.customers()[0]
			if c.TotalMessages != 1 {
				t.Errorf("total messages = %d, want 1", c.TotalMessages)
			}
			if got := h.store.sessionsOf(c.ID)[0].MessageCount; got != 1 {
				t.Errorf("session message count = %d, want 1", got)
			}
			if h.store.messageCount() != 1 {
				t.Errorf("messages = %d, want 1", h.store.messageCount())
			}
			if h.publisher.count() != 1 {
				t.Errorf("published events = %d, want 1", h.publisher.count())
			}
		})
	}
}

func TestIngest_InvalidSenderTouchesNothing(t *testing.T) {
	t.Parallel()
	h := newHarness(guard.Noop{})

	_, err := h.svc.Ingest(context.Background(), inbound("m1", "12345@c.us"))
	if !errors.Is(err, xerrors.ErrInvalidSender) {
		t.Fatalf("Ingest() error = %v, want ErrInvalidSender", err)
	}
	if len(h.store.customers()) != 0 || h.store.messageCount() != 0 {
		t.Error("invalid sender must not write anything")
	}
}

func TestIngest_FailureRollsBackEverything(t *testing.T) {
	t.Parallel()
	h := newHarness(guard.Noop{})
	h.store.failInsertMessage = errors.New("connection reset")

	_, err := h.svc.Ingest(context.Background(), inbound("m1", "254712345678@c.us"))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(h.store.customers()) != 0 {
		t.Error("customer insert should have been rolled back")
	}
	if h.publisher.count() != 0 {
		t.Error("no event should be published for a failed ingest")
	}
}

func TestIngest_NameFilledOnlyWhileEmpty(t *testing.T) {
	t.Parallel()
	h := newHarness(guard.Noop{})
	ctx := context.Background()

	steps := []struct {
		id   string
		hint string
	}{
		{id: "1", hint: ""},
		{id: "2", hint: "Brian"},
		{id: "3", hint: "Someone Else"},
	}
	for _, s := range steps {
		msg := inbound(s.id, "254712345678@c.us")
		msg.NameHint = s.hint
		if _, err := h.svc.Ingest(ctx, msg); err != nil {
			t.Fatalf("Ingest(%s) error = %v", s.id, err)
		}
	}

	c := h.store.customers()[0]
	if c.Name == nil || *c.Name != "Brian" {
		t.Errorf("name = %v, want Brian", c.Name)
	}
	if c.TotalMessages != 3 {
		t.Errorf("total messages = %d, want 3", c.TotalMessages)
	}
}

func TestIngest_ConcurrentDeliveriesShareOneCustomer(t *testing.T) {
	t.Parallel()
	h := newHarness(guard.Noop{})
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := h.svc.Ingest(ctx, inbound(fmt.Sprintf("c-%d", i), "+254712345678")); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Ingest() error = %v", err)
	}

	customers := h.store.customers()
	if len(customers) != 1 {
		t.Fatalf("customers = %d, want 1", len(customers))
	}
	if customers[0].TotalMessages != n {
		t.Errorf("total messages = %d, want %d", customers[0].TotalMessages, n)
	}
	if sessions := h.store.sessionsOf(customers[0].ID); len(sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(sessions))
	}
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()
	h := newHarness(guard.Noop{})
	ctx := context.Background()

	if err := h.svc.UpdateStatus(ctx, &webhook.StatusUpdate{MessageID: "missing", Status: "read"}); err != nil {
		t.Errorf("UpdateStatus(unknown) error = %v, want nil", err)
	}

	if _, err := h.svc.Ingest(ctx, inbound("m1", "254712345678@c.us")); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if err := h.svc.UpdateStatus(ctx, &webhook.StatusUpdate{MessageID: "m1", Status: "read"}); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	m, _ := h.store.message("m1")
	if m.Status == nil || *m.Status != "read" {
		t.Errorf("status = %v, want read", m.Status)
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "254712345678@c.us", want: "254712345678"},
		{raw: "254712345678@s.whatsapp.net", want: "254712345678"},
		{raw: "254712345678:12@s.whatsapp.net", want: "254712345678"},
		{raw: "120363025246125486@g.us", want: "120363025246125486"},
		{raw: "+254712345678", want: "254712345678"},
		{raw: "254712345678", want: "254712345678"},
		{raw: "12345@c.us", wantErr: true},
		{raw: "+12345", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizePhone(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, xerrors.ErrInvalidSender) {
					t.Errorf("NormalizePhone(%q) error = %v, want ErrInvalidSender", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
