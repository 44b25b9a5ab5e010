// Package notifications persists the delivery log written by the worker and
// read by the admin UI.
package notifications

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/models"
)

// Repository handles notification log persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records one delivery attempt.
func (r *Repository) Insert(ctx context.Context, log *models.NotificationLog) error {
	const q = `INSERT INTO notification_logs (id, event_id, entry_id, kind, recipient_email, status, sent_at, error_message)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q,
		log.EventID, log.EntryID, log.Kind, log.RecipientEmail, log.Status, log.SentAt, log.ErrorMessage,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}

// List returns one page of the delivery log, newest first, plus the total
// row count.
func (r *Repository) List(ctx context.Context, page, limit int) ([]models.NotificationLog, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notification_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notification logs: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, entry_id, kind, recipient_email, status, sent_at, error_message, created_at
		 FROM notification_logs ORDER BY created_at DESC, id ASC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list notification logs: %w", err)
	}
	defer rows.Close()

	var list []models.NotificationLog
	for rows.Next() {
		var l models.NotificationLog
		if err := rows.Scan(&l.ID, &l.EventID, &l.EntryID, &l.Kind, &l.RecipientEmail,
			&l.Status, &l.SentAt, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan notification log: %w", err)
		}
		list = append(list, l)
	}
	return list, total, rows.Err()
}
