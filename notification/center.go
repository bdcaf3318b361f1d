package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidType signals an unknown notification type.
var ErrInvalidType = errors.New("notification: invalid type")

// Center records workflow notifications and their read state. Record runs
// inside the caller's transaction so a notification is committed if and only
// if the state change that produced it is.
type Center struct {
	pool *pgxpool.Pool
}

func NewCenter(pool *pgxpool.Pool) *Center {
	return &Center{pool: pool}
}

// Record inserts a notification and a matching outbox row inside tx.
func (c *Center) Record(ctx context.Context, tx pgx.Tx, params RecordParams) (Notification, error) {
	if !isValidType(params.Type) {
		return Notification{}, ErrInvalidType
	}
	if params.RecipientID == "" {
		return Notification{}, fmt.Errorf("notification: recipient required")
	}

	const insertSQL = `
		INSERT INTO notifications (recipient_id, type, body, context_id)
		VALUES ($1, $2::notification_type, $3, $4)
		RETURNING id, recipient_id, type, body, context_id, is_read, created_at
	`

	var n Notification
	if err := tx.QueryRow(ctx, insertSQL,
		params.RecipientID, params.Type, params.Body, params.ContextID,
	).Scan(&n.ID, &n.RecipientID, &n.Type, &n.Body, &n.ContextID, &n.Read, &n.CreatedAt); err != nil {
		return Notification{}, fmt.Errorf("notification: insert: %w", err)
	}

	payload := map[string]any{
		"notification_id": n.ID,
		"recipient_id":    n.RecipientID,
		"type":            n.Type,
	}
	if n.ContextID != nil {
		payload["context_id"] = *n.ContextID
	}
	if err := enqueueOutbox(ctx, tx, "notification."+string(n.Type), payload); err != nil {
		return Notification{}, err
	}

	return n, nil
}

// MarkRead flips a notification to read. It is idempotent: already-read and
// unknown ids are both no-ops.
func (c *Center) MarkRead(ctx context.Context, id string) error {
	if _, err := c.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND NOT is_read`, id); err != nil {
		return fmt.Errorf("notification: mark read: %w", err)
	}
	return nil
}

// ListForUser returns up to limit notifications, most recent first.
func (c *Center) ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	const query = `
		SELECT id, recipient_id, type, body, context_id, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := c.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("notification: list: %w", err)
	}
	defer rows.Close()

	list := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Body, &n.ContextID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notification: scan: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification: iterate: %w", err)
	}

	return list, nil
}

// UnreadCount returns the number of unread notifications for a user.
func (c *Center) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := c.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("notification: unread count: %w", err)
	}
	return count, nil
}

func enqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notification: marshal outbox payload: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO outbox (topic, payload) VALUES ($1, $2::jsonb)`, topic, body); err != nil {
		return fmt.Errorf("notification: enqueue outbox: %w", err)
	}
	return nil
}

func isValidType(t Type) bool {
	switch t {
	case TypeMessage, TypeVerification, TypeDeal, TypeFollow, TypeTour, TypeLike:
		return true
	default:
		return false
	}
}
