// internal/repository/postgres/message_repo.go
package postgres

import (
	"context"
	"fmt"

	"wa-insights-service/internal/domain/chat"
	xerrors "wa-insights-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// ExistsWithTx checks whether an external message id is already stored
func (r *MessageRepository) ExistsWithTx(ctx context.Context, tx pgx.Tx, messageID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM messages WHERE message_id = $1)`, messageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}
	return exists, nil
}

// CreateWithTx inserts a message. A repeated external id yields ErrDuplicateMessage.
func (r *MessageRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, m *chat.Message) error {
	query := `
		INSERT INTO messages (
			message_id, customer_id, session_id, chat_id, from_number, to_number,
			body, timestamp, from_me, has_media, status, reply_to
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		m.MessageID, m.CustomerID, m.SessionID, m.ChatID, m.FromNumber, m.ToNumber,
		m.Body, m.Timestamp, m.FromMe, m.HasMedia, m.Status, m.ReplyTo,
	).Scan(&m.ID, &m.CreatedAt)

	if isUniqueViolation(err) {
		return xerrors.ErrDuplicateMessage
	}
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// UpdateStatus sets the delivery status of a message and returns the affected row count
func (r *MessageRepository) UpdateStatus(ctx context.Context, messageID, status string) (int64, error) {
	result, err := r.db.Exec(ctx, `UPDATE messages SET status = $1 WHERE message_id = $2`, status, messageID)
	if err != nil {
		return 0, fmt.Errorf("failed to update message status: %w", err)
	}
	return result.RowsAffected(), nil
}

// FindRecentWithBody returns up to limit messages with a body, newest first
func (r *MessageRepository) FindRecentWithBody(ctx context.Context, customerID int64, limit int) ([]chat.Message, error) {
	query := `
		SELECT id, message_id, customer_id, session_id, chat_id, from_number, to_number,
		       body, timestamp, from_me, has_media, status, reply_to, created_at
		FROM messages
		WHERE customer_id = $1 AND body IS NOT NULL
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, limit)
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(
			&m.ID, &m.MessageID, &m.CustomerID, &m.SessionID, &m.ChatID, &m.FromNumber, &m.ToNumber,
			&m.Body, &m.Timestamp, &m.FromMe, &m.HasMedia, &m.Status, &m.ReplyTo, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
