// internal/repository/postgres/customer_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wa-insights-service/internal/domain/customer"
	"wa-insights-service/internal/domain/segment"
	xerrors "wa-insights-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const customerColumns = `
	id, phone_number, name, first_message_at, last_message_at, total_messages,
	segment, segmented_at, segment_confidence, segment_reasoning, segment_characteristics,
	created_at, updated_at`

type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.ID, &c.PhoneNumber, &c.Name, &c.FirstMessage, &c.LastMessage, &c.TotalMessages,
		&c.Segment, &c.SegmentedAt, &c.SegmentConfidence, &c.SegmentReasoning, &c.SegmentCharacteristics,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID retrieves a customer by ID
func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	c, err := scanCustomer(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return c, nil
}

// LockByPhoneWithTx selects a customer by phone number and holds its row lock until the transaction ends
func (r *CustomerRepository) LockByPhoneWithTx(ctx context.Context, tx pgx.Tx, phone string) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone_number = $1 FOR UPDATE`

	c, err := scanCustomer(tx.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock customer: %w", err)
	}
	return c, nil
}

// InsertIfAbsentWithTx inserts the customer unless the phone number is already taken.
// It reports false when a concurrent transaction inserted the same phone number first.
func (r *CustomerRepository) InsertIfAbsentWithTx(ctx context.Context, tx pgx.Tx, c *customer.Customer) (bool, error) {
	query := `
		INSERT INTO customers (phone_number, name, first_message_at, last_message_at, total_messages)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone_number) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		c.PhoneNumber, c.Name, c.FirstMessage, c.LastMessage, c.TotalMessages,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create customer: %w", err)
	}
	return true, nil
}

// RecordMessageWithTx stamps last activity, optionally bumps the message counter and fills a missing name
func (r *CustomerRepository) RecordMessageWithTx(ctx context.Context, tx pgx.Tx, id int64, at time.Time, name string, increment bool) error {
	query := `
		UPDATE customers
		SET last_message_at = $1,
		    total_messages = total_messages + $2,
		    name = COALESCE(name, NULLIF($3, '')),
		    updated_at = NOW()
		WHERE id = $4
	`

	delta := 0
	if increment {
		delta = 1
	}

	result, err := tx.Exec(ctx, query, at, delta, name, id)
	if err != nil {
		return fmt.Errorf("failed to update customer activity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// SaveSegment overwrites the current segmentation of a customer
func (r *CustomerRepository) SaveSegment(ctx context.Context, res *segment.Result) error {
	query := `
		UPDATE customers
		SET segment = $1, segmented_at = $2, segment_confidence = $3,
		    segment_reasoning = $4, segment_characteristics = $5, updated_at = NOW()
		WHERE id = $6
	`

	result, err := r.db.Exec(ctx, query,
		string(res.Segment), res.SegmentedAt, res.Confidence,
		res.Reasoning, pq.StringArray(res.Characteristics), res.CustomerID,
	)
	if err != nil {
		return fmt.Errorf("failed to save segment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// CountBySegment returns customer counts grouped by current label
func (r *CustomerRepository) CountBySegment(ctx context.Context) (segment.Stats, error) {
	query := `
		SELECT segment, COUNT(*)
		FROM customers
		WHERE segment IS NOT NULL
		GROUP BY segment
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count segments: %w", err)
	}
	defer rows.Close()

	stats := segment.Stats{}
	for rows.Next() {
		var label string
		var count int64
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan segment count: %w", err)
		}
		stats[segment.Label(label)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate segment counts: %w", err)
	}
	return stats, nil
}

// FindSegmentationCandidates lists customers without a label or with a stale one, most recently active first
func (r *CustomerRepository) FindSegmentationCandidates(ctx context.Context, f customer.SegmentationCandidateFilter) ([]int64, error) {
	query := `
		SELECT id
		FROM customers
		WHERE (segment IS NULL OR segmented_at IS NULL OR segmented_at < $1)
		  AND total_messages >= $2
		ORDER BY last_message_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, f.StaleBefore, f.MinMessages, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find segmentation candidates: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, f.Limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return ids, nil
}

// ListBySegment lists customers currently carrying a label
func (r *CustomerRepository) ListBySegment(ctx context.Context, label segment.Label, limit int) ([]customer.Summary, error) {
	query := `
		SELECT id, phone_number, name, total_messages, last_message_at, segment, segmented_at
		FROM customers
		WHERE segment = $1
		ORDER BY last_message_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, string(label), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers by segment: %w", err)
	}
	defer rows.Close()

	out := make([]customer.Summary, 0)
	for rows.Next() {
		var s customer.Summary
		if err := rows.Scan(&s.ID, &s.PhoneNumber, &s.Name, &s.TotalMessages, &s.LastMessage, &s.Segment, &s.SegmentedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}
	return out, nil
}
