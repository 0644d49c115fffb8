// internal/service/ingest/stitcher.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"wa-insights-service/internal/domain/chat"
	"wa-insights-service/internal/domain/customer"
	"wa-insights-service/internal/domain/webhook"
	xerrors "wa-insights-service/internal/pkg/errors"

	"go.mau.fi/whatsmeow/types"
)

// MinPhoneLength is the shortest normalized sender id accepted as a phone number.
const MinPhoneLength = 10

// NormalizePhone strips WhatsApp transport suffixes, device parts and a leading "+".
func NormalizePhone(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if strings.Contains(id, "@") {
		jid, err := types.ParseJID(id)
		if err != nil {
			return "", fmt.Errorf("%w: %v", xerrors.ErrInvalidSender, err)
		}
		id = jid.User
	}
	// Agent/device parts can survive on ids without a server part.
	if i := strings.IndexAny(id, ":."); i >= 0 {
		id = id[:i]
	}
	id = strings.TrimPrefix(id, "+")

	if utf8.RuneCountInString(id) < MinPhoneLength {
		return "", fmt.Errorf("%w: %q normalizes to %q", xerrors.ErrInvalidSender, raw, id)
	}
	return id, nil
}

// stitchCustomer returns the locked customer for phone, creating it when unseen.
func (s *Service) stitchCustomer(ctx context.Context, l chat.Ledger, phone string, msg *webhook.IncomingMessage) (*customer.Customer, bool, error) {
	c, err := l.LockCustomerByPhone(ctx, phone)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		return nil, false, err
	}

	c = &customer.Customer{
		PhoneNumber:   phone,
		FirstMessage:  msg.Timestamp,
		LastMessage:   msg.Timestamp,
		TotalMessages: 1,
	}
	if name := strings.TrimSpace(msg.NameHint); name != "" {
		c.Name = &name
	}

	inserted, err := l.InsertCustomer(ctx, c)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return c, true, nil
	}

	// A concurrent delivery created the customer first; wait for its row lock.
	c, err = l.LockCustomerByPhone(ctx, phone)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reload customer after insert race: %w", err)
	}
	return c, false, nil
}

// stitchSession reuses the active session started within the window or opens a new one.
func (s *Service) stitchSession(ctx context.Context, l chat.Ledger, customerID int64, now time.Time) (*chat.Session, bool, error) {
	sess, err := l.FindActiveSession(ctx, customerID, now.Add(-s.window))
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		return nil, false, err
	}

	if err := l.CloseActiveSessions(ctx, customerID, now); err != nil {
		return nil, false, err
	}

	sess = &chat.Session{
		CustomerID: customerID,
		StartTime:  now,
		IsActive:   true,
	}
	if err := l.CreateSession(ctx, sess); err != nil {
		return nil, false, err
	}
	return sess, true, nil
}
