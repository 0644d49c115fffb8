// internal/service/ingest/ledger.go
package ingest

import (
	"context"
	"time"

	"wa-insights-service/internal/domain/chat"
	"wa-insights-service/internal/domain/customer"
	"wa-insights-service/internal/domain/webhook"
)

// record writes the message row and bumps the customer and session counters.
// A customer created in the same transaction was seeded with this message already counted.
func (s *Service) record(ctx context.Context, l chat.Ledger, c *customer.Customer, created bool, sess *chat.Session, msg *webhook.IncomingMessage, now time.Time) (*chat.Message, error) {
	m := &chat.Message{
		MessageID:  msg.MessageID,
		CustomerID: c.ID,
		SessionID:  sess.ID,
		ChatID:     msg.ChatID,
		FromNumber: msg.From,
		ToNumber:   optional(msg.To),
		Body:       msg.Body,
		Timestamp:  msg.Timestamp,
		FromMe:     msg.FromMe,
		HasMedia:   msg.HasMedia,
		Status:     optional(msg.Status),
		ReplyTo:    optional(msg.ReplyTo),
	}

	// A unique violation surfaces as ErrDuplicateMessage and rolls the whole transaction back.
	if err := l.InsertMessage(ctx, m); err != nil {
		return nil, err
	}

	if err := l.RecordCustomerMessage(ctx, c.ID, now, msg.NameHint, !created); err != nil {
		return nil, err
	}
	if err := l.IncrementSessionMessages(ctx, sess.ID); err != nil {
		return nil, err
	}

	sess.MessageCount++
	if !created {
		c.TotalMessages++
	}
	c.LastMessage = now
	return m, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
