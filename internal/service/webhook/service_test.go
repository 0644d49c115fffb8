package webhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"wa-insights-service/internal/domain/chat"
	"wa-insights-service/internal/domain/webhook"
	xerrors "wa-insights-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type stubIngester struct {
	ingestErr error
	messages  []*webhook.IncomingMessage
	statuses  []*webhook.StatusUpdate
}

func (s *stubIngester) Ingest(_ context.Context, msg *webhook.IncomingMessage) (*chat.IngestResult, error) {
	s.messages = append(s.messages, msg)
	if s.ingestErr != nil {
		return nil, s.ingestErr
	}
	return &chat.IngestResult{CustomerID: 1, SessionID: 1, MessageID: 1}, nil
}

func (s *stubIngester) UpdateStatus(_ context.Context, upd *webhook.StatusUpdate) error {
	s.statuses = append(s.statuses, upd)
	return nil
}

const messageBody = `{
	"id": "evt_1",
	"timestamp": 1767607200000,
	"event": "message",
	"session": "default",
	"payload": {
		"id": "false_254712345678@c.us_3EB0",
		"timestamp": 1767607200,
		"from": "254712345678@c.us",
		"fromMe": false,
		"to": "254700000001@c.us",
		"body": "Hi, do you have the blue one in stock?",
		"hasMedia": false,
		"ackName": "DEVICE",
		"replyTo": {"id": "true_254712345678@c.us_AAA"},
		"_data": {"notifyName": " Amina "},
		"unknownField": 42
	}
}`

func TestNormalize(t *testing.T) {
	t.Parallel()
	n := NewNormalizer()

	tests := []struct {
		name       string
		body       string
		wantKind   webhook.Kind
		wantErr    bool
		wantFields []string
	}{
		{name: "message", body: messageBody, wantKind: webhook.KindMessage},
		{
			name:     "outbound message ignored",
			body:     `{"event":"message","payload":{"id":"x","timestamp":1,"from":"254712345678@c.us","fromMe":true}}`,
			wantKind: webhook.KindIgnored,
		},
		{
			name:     "status update",
			body:     `{"event":"session.status","payload":{"id":"m1","status":"READ"}}`,
			wantKind: webhook.KindStatus,
		},
		{
			name:     "gateway session status ignored",
			body:     `{"event":"session.status","payload":{"status":"WORKING"}}`,
			wantKind: webhook.KindIgnored,
		},
		{
			name:     "unknown event ignored",
			body:     `{"event":"presence.update","payload":{}}`,
			wantKind: webhook.KindIgnored,
		},
		{
			name:     "unknown event without payload ignored",
			body:     `{"id":"e1","event":"engine.event","session":"default"}`,
			wantKind: webhook.KindIgnored,
		},
		{
			name:       "message without payload",
			body:       `{"event":"message"}`,
			wantErr:    true,
			wantFields: []string{"envelope.payload"},
		},
		{
			name:       "status with null payload",
			body:       `{"event":"session.status","payload":null}`,
			wantErr:    true,
			wantFields: []string{"envelope.payload"},
		},
		{name: "malformed json", body: `{"event":`, wantErr: true},
		{name: "missing event", body: `{"payload":{}}`, wantErr: true, wantFields: []string{"envelope.event"}},
		{
			name:       "message missing id and from",
			body:       `{"event":"message","payload":{"timestamp":1}}`,
			wantErr:    true,
			wantFields: []string{"payload.id", "payload.from"},
		},
		{
			name:    "message without any timestamp",
			body:    `{"event":"message","payload":{"id":"x","from":"254712345678@c.us"}}`,
			wantErr: true,
		},
		{
			name:       "status missing status",
			body:       `{"event":"session.status","payload":{"id":"m1"}}`,
			wantErr:    true,
			wantFields: []string{"payload.status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			evt, err := n.Normalize([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, xerrors.ErrInvalidInput) {
					t.Fatalf("Normalize() error = %v, want validation error", err)
				}
				var verr *xerrors.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("error %T is not *ValidationError", err)
				}
				for _, f := range tt.wantFields {
					if _, ok := verr.Fields[f]; !ok {
						t.Errorf("missing field detail %q in %v", f, verr.Fields)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if evt.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", evt.Kind, tt.wantKind)
			}
		})
	}
}

func TestNormalize_MessageFields(t *testing.T) {
	t.Parallel()

	evt, err := NewNormalizer().Normalize([]byte(messageBody))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	m := evt.Message
	if m.MessageID != "false_254712345678@c.us_3EB0" {
		t.Errorf("message id = %q", m.MessageID)
	}
	if !m.Timestamp.Equal(time.Unix(1767607200, 0)) {
		t.Errorf("timestamp = %v", m.Timestamp)
	}
	if m.ReplyTo != "true_254712345678@c.us_AAA" {
		t.Errorf("reply to = %q", m.ReplyTo)
	}
	if m.NameHint != "Amina" {
		t.Errorf("name hint = %q, want Amina", m.NameHint)
	}
	if m.Status != "device" {
		t.Errorf("status = %q, want device", m.Status)
	}
	if m.Body == nil || *m.Body == "" {
		t.Error("expected body")
	}
}

func TestNormalize_FallsBackToEnvelopeTimestamp(t *testing.T) {
	t.Parallel()

	body := `{"event":"message","timestamp":1767607200500,"payload":{"id":"x","from":"254712345678@c.us","replyTo":"abc"}}`
	evt, err := NewNormalizer().Normalize([]byte(body))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if want := time.UnixMilli(1767607200500); !evt.Message.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", evt.Message.Timestamp, want)
	}
	if evt.Message.ReplyTo != "abc" {
		t.Errorf("reply to = %q, want abc", evt.Message.ReplyTo)
	}
}

func TestHandle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		ingestErr   error
		wantOutcome webhook.Outcome
		wantErr     error
	}{
		{name: "ingested", body: messageBody, wantOutcome: webhook.OutcomeIngested},
		{name: "duplicate", body: messageBody, ingestErr: xerrors.ErrDuplicateMessage, wantOutcome: webhook.OutcomeDuplicate},
		{name: "invalid sender", body: messageBody, ingestErr: xerrors.ErrInvalidSender, wantOutcome: webhook.OutcomeIgnored},
		{name: "storage failure", body: messageBody, ingestErr: errors.New("db down"), wantErr: errors.New("db down")},
		{name: "status", body: `{"event":"session.status","payload":{"id":"m1","status":"read"}}`, wantOutcome: webhook.OutcomeStatusUpdated},
		{name: "ignored", body: `{"event":"call.received","payload":{}}`, wantOutcome: webhook.OutcomeIgnored},
		{name: "invalid", body: `[]`, wantErr: xerrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ing := &stubIngester{ingestErr: tt.ingestErr}
			svc := NewService(NewNormalizer(), ing, zap.NewNop())

			res, err := svc.Handle(context.Background(), []byte(tt.body))
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("Handle() error = nil, want %v", tt.wantErr)
				}
				if errors.Is(tt.wantErr, xerrors.ErrInvalidInput) && !errors.Is(err, xerrors.ErrInvalidInput) {
					t.Errorf("Handle() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if res.Outcome != tt.wantOutcome {
				t.Errorf("outcome = %q, want %q", res.Outcome, tt.wantOutcome)
			}
		})
	}
}
