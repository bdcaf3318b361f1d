package workers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"

	"homeflow/notification"
)

// maxAttempts is how many delivery failures an outbox row survives before it
// is parked as dead.
const maxAttempts = 5

// Publisher delivers a claimed outbox message to the outside world.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// LogPublisher writes messages to the process log. It stands in for a real
// broker in single-process deployments.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	log.Printf("outbox publish topic=%s payload=%s", topic, payload)
	return nil
}

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OutboxStore is the tx-scoped storage surface of the dispatcher.
type OutboxStore interface {
	ClaimPending(ctx context.Context, tx pgx.Tx, limit int) ([]notification.OutboxMessage, error)
	MarkProcessed(ctx context.Context, tx pgx.Tx, id string) error
	MarkFailed(ctx context.Context, tx pgx.Tx, id string, dead bool) error
}

// OutboxDispatcher drains pending outbox rows into a Publisher. Claimed rows
// are locked with SKIP LOCKED so concurrent dispatchers never double-deliver.
type OutboxDispatcher struct {
	pool      TxBeginner
	store     OutboxStore
	publisher Publisher
	batch     int
}

func NewOutboxDispatcher(pool TxBeginner, store OutboxStore, publisher Publisher, batch int) *OutboxDispatcher {
	if store == nil {
		store = NewOutboxStore()
	}
	if batch <= 0 {
		batch = 50
	}
	return &OutboxDispatcher{pool: pool, store: store, publisher: publisher, batch: batch}
}

// RunOnce claims one batch and reports how many rows were delivered.
func (d *OutboxDispatcher) RunOnce(ctx context.Context) (int, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("workers: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	msgs, err := d.store.ClaimPending(ctx, tx, d.batch)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, msg := range msgs {
		if err := d.publisher.Publish(ctx, msg.Topic, msg.Payload); err != nil {
			log.Printf("outbox deliver %s: %v", msg.ID, err)
			dead := msg.Attempts+1 >= maxAttempts
			if err := d.store.MarkFailed(ctx, tx, msg.ID, dead); err != nil {
				return delivered, err
			}
			continue
		}
		if err := d.store.MarkProcessed(ctx, tx, msg.ID); err != nil {
			return delivered, err
		}
		delivered++
	}

	if err := tx.Commit(ctx); err != nil {
		return delivered, fmt.Errorf("workers: commit: %w", err)
	}
	return delivered, nil
}

// PGOutboxStore executes against the caller's transaction.
type PGOutboxStore struct{}

func NewOutboxStore() *PGOutboxStore {
	return &PGOutboxStore{}
}

func (s *PGOutboxStore) ClaimPending(ctx context.Context, tx pgx.Tx, limit int) ([]notification.OutboxMessage, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, topic, payload, status, attempts, created_at
		FROM outbox
		WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("workers: claim outbox: %w", err)
	}
	defer rows.Close()

	var msgs []notification.OutboxMessage
	for rows.Next() {
		var m notification.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.Status, &m.Attempts, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("workers: scan outbox: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workers: iterate outbox: %w", err)
	}
	return msgs, nil
}

func (s *PGOutboxStore) MarkProcessed(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `UPDATE outbox SET status = 'processed' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("workers: mark processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("workers: outbox row vanished")
	}
	return nil
}

func (s *PGOutboxStore) MarkFailed(ctx context.Context, tx pgx.Tx, id string, dead bool) error {
	status := "pending"
	if dead {
		status = "dead"
	}
	if _, err := tx.Exec(ctx,
		`UPDATE outbox SET attempts = attempts + 1, status = $2 WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("workers: mark failed: %w", err)
	}
	return nil
}
