package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"homeflow/notification"
)

// reminderWindow is how far ahead the sweeper looks for confirmed tours.
const reminderWindow = 24 * time.Hour

// UpcomingTour is a confirmed tour due for a reminder.
type UpcomingTour struct {
	ID            string
	RenterID      string
	AgentID       string
	Address       string
	ConfirmedTime time.Time
}

// ReminderStore is the tx-scoped storage surface of the reminder sweeper.
type ReminderStore interface {
	DueTours(ctx context.Context, tx pgx.Tx, from, until time.Time) ([]UpcomingTour, error)
	MarkReminded(ctx context.Context, tx pgx.Tx, tourID string, at time.Time) error
}

// Notifier records a notification inside the sweeper's transaction.
type Notifier interface {
	Record(ctx context.Context, tx pgx.Tx, params notification.RecordParams) (notification.Notification, error)
}

// TourReminder notifies both parties of a confirmed tour starting within the
// next 24 hours. The reminded_at column keeps repeated sweeps idempotent.
type TourReminder struct {
	pool     TxBeginner
	store    ReminderStore
	notifier Notifier
	now      func() time.Time
}

func NewTourReminder(pool TxBeginner, store ReminderStore, notifier Notifier) *TourReminder {
	if store == nil {
		store = NewReminderStore()
	}
	return &TourReminder{pool: pool, store: store, notifier: notifier, now: time.Now}
}

func (r *TourReminder) WithClock(now func() time.Time) *TourReminder {
	r.now = now
	return r
}

// RunOnce sweeps one batch and reports how many tours were reminded.
func (r *TourReminder) RunOnce(ctx context.Context) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("workers: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := r.now()
	tours, err := r.store.DueTours(ctx, tx, now, now.Add(reminderWindow))
	if err != nil {
		return 0, err
	}

	reminded := 0
	for _, t := range tours {
		body := fmt.Sprintf("Reminder: tour of %s at %s.", t.Address, t.ConfirmedTime.Format(time.RFC1123))
		for _, recipient := range []string{t.RenterID, t.AgentID} {
			if _, err := r.notifier.Record(ctx, tx, notification.RecordParams{
				RecipientID: recipient,
				Type:        notification.TypeTour,
				Body:        body,
				ContextID:   &t.ID,
			}); err != nil {
				return reminded, err
			}
		}
		if err := r.store.MarkReminded(ctx, tx, t.ID, now); err != nil {
			return reminded, err
		}
		reminded++
	}

	if err := tx.Commit(ctx); err != nil {
		return reminded, fmt.Errorf("workers: commit: %w", err)
	}
	return reminded, nil
}

// PGReminderStore executes against the caller's transaction.
type PGReminderStore struct{}

func NewReminderStore() *PGReminderStore {
	return &PGReminderStore{}
}

func (s *PGReminderStore) DueTours(ctx context.Context, tx pgx.Tx, from, until time.Time) ([]UpcomingTour, error) {
	rows, err := tx.Query(ctx, `
		SELECT t.id, t.renter_id, t.agent_id, p.address, t.confirmed_time
		FROM tours t
		JOIN properties p ON p.id = t.property_id
		WHERE t.status = 'confirmed'
		  AND t.reminded_at IS NULL
		  AND t.confirmed_time BETWEEN $1 AND $2
		FOR UPDATE OF t SKIP LOCKED`,
		from, until,
	)
	if err != nil {
		return nil, fmt.Errorf("workers: due tours: %w", err)
	}
	defer rows.Close()

	var tours []UpcomingTour
	for rows.Next() {
		var t UpcomingTour
		if err := rows.Scan(&t.ID, &t.RenterID, &t.AgentID, &t.Address, &t.ConfirmedTime); err != nil {
			return nil, fmt.Errorf("workers: scan tour: %w", err)
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workers: iterate tours: %w", err)
	}
	return tours, nil
}

func (s *PGReminderStore) MarkReminded(ctx context.Context, tx pgx.Tx, tourID string, at time.Time) error {
	if _, err := tx.Exec(ctx,
		`UPDATE tours SET reminded_at = $2, updated_at = get_tx_timestamp() WHERE id = $1`, tourID, at); err != nil {
		return fmt.Errorf("workers: mark reminded: %w", err)
	}
	return nil
}
