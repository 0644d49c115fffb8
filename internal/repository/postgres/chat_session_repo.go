// internal/repository/postgres/chat_session_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wa-insights-service/internal/domain/chat"
	"wa-insights-service/internal/domain/customer"
	xerrors "wa-insights-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatSessionRepository struct {
	db *pgxpool.Pool
}

func NewChatSessionRepository(db *pgxpool.Pool) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

// FindActiveSinceWithTx returns the active session of a customer that started after the given instant
func (r *ChatSessionRepository) FindActiveSinceWithTx(ctx context.Context, tx pgx.Tx, customerID int64, since time.Time) (*chat.Session, error) {
	query := `
		SELECT id, customer_id, start_time, end_time, message_count, is_active, created_at
		FROM chat_sessions
		WHERE customer_id = $1 AND is_active = TRUE AND start_time >= $2
		ORDER BY start_time DESC
		LIMIT 1
	`

	var s chat.Session
	err := tx.QueryRow(ctx, query, customerID, since).Scan(
		&s.ID, &s.CustomerID, &s.StartTime, &s.EndTime, &s.MessageCount, &s.IsActive, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active session: %w", err)
	}
	return &s, nil
}

// CloseActiveWithTx ends every active session of a customer
func (r *ChatSessionRepository) CloseActiveWithTx(ctx context.Context, tx pgx.Tx, customerID int64, endedAt time.Time) error {
	query := `
		UPDATE chat_sessions
		SET is_active = FALSE, end_time = $1
		WHERE customer_id = $2 AND is_active = TRUE
	`

	if _, err := tx.Exec(ctx, query, endedAt, customerID); err != nil {
		return fmt.Errorf("failed to close sessions: %w", err)
	}
	return nil
}

// CreateWithTx opens a new active session
func (r *ChatSessionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, s *chat.Session) error {
	query := `
		INSERT INTO chat_sessions (customer_id, start_time, message_count, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query, s.CustomerID, s.StartTime, s.MessageCount).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	s.IsActive = true
	return nil
}

// IncrementMessageCountWithTx bumps the session message counter
func (r *ChatSessionRepository) IncrementMessageCountWithTx(ctx context.Context, tx pgx.Tx, sessionID int64) error {
	query := `UPDATE chat_sessions SET message_count = message_count + 1 WHERE id = $1`

	result, err := tx.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to increment session count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// StatsByCustomer returns the session count and the mean messages per session
func (r *ChatSessionRepository) StatsByCustomer(ctx context.Context, customerID int64) (*customer.SessionStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(message_count), 0)::float8
		FROM chat_sessions
		WHERE customer_id = $1
	`

	var stats customer.SessionStats
	if err := r.db.QueryRow(ctx, query, customerID).Scan(&stats.SessionCount, &stats.AvgMessagesPerSession); err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}
	return &stats, nil
}
