package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"homeflow/conversation"
	"homeflow/deal"
	"homeflow/notification"
	"homeflow/tour"
	"homeflow/workers"
)

// PairCreator hammers FindOrCreate for the same (property, pair); every call
// must land on the same conversation.
func PairCreator(ctx context.Context, pool *pgxpool.Pool, propertyID, renterID, listerID string, stop <-chan struct{}) error {
	svc := conversation.NewService(pool, conversation.NewRepository(pool))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		// Randomize argument order; dedup is pair-order independent.
		a, b := renterID, listerID
		if rand.Intn(2) == 0 {
			a, b = b, a
		}
		if _, _, err := svc.FindOrCreate(ctx, propertyID, a, b, nil); err != nil {
			return fmt.Errorf("pair creator: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Messenger appends messages to the shared conversation.
func Messenger(ctx context.Context, pool *pgxpool.Pool, conversationID, senderID string, stop <-chan struct{}) error {
	svc := conversation.NewService(pool, conversation.NewRepository(pool))
	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		n++
		_, err := svc.AppendMessage(ctx, conversationID, senderID, conversation.Content{Text: fmt.Sprintf("ping %d", n)})
		if err != nil && !errors.Is(err, conversation.ErrNotFound) {
			return fmt.Errorf("messenger: %w", err)
		}
		time.Sleep(time.Duration(15+rand.Intn(35)) * time.Millisecond)
	}
}

// DealRacer races payment and agreement on the same conversation. State
// rejections are expected under contention; the status must only ever move
// forward.
func DealRacer(ctx context.Context, pool *pgxpool.Pool, conversationID, payerID, listerID string, stop <-chan struct{}) error {
	svc := deal.NewService(pool, nil, notification.NewCenter(pool))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if rand.Intn(2) == 0 {
			if _, err := svc.RecordPayment(ctx, conversationID, payerID); err != nil &&
				!errors.Is(err, deal.ErrInvalidState) && !errors.Is(err, deal.ErrNotFound) {
				return fmt.Errorf("deal racer payment: %w", err)
			}
		} else {
			if _, err := svc.SignAgreement(ctx, conversationID, listerID); err != nil &&
				!errors.Is(err, deal.ErrInvalidState) && !errors.Is(err, deal.ErrNotFound) {
				return fmt.Errorf("deal racer agreement: %w", err)
			}
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// TourConfirmer battles over one pending tour with different confirmed times.
// Exactly one call may win; the rest must see state rejections.
func TourConfirmer(ctx context.Context, pool *pgxpool.Pool, tourID string, stop <-chan struct{}) error {
	convs := conversation.NewService(pool, conversation.NewRepository(pool))
	svc := tour.NewService(pool, nil, notification.NewCenter(pool), convs)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		when := time.Now().Add(time.Duration(1+rand.Intn(48)) * time.Hour).Truncate(time.Second)
		if _, err := svc.Confirm(ctx, tourID, when); err != nil &&
			!errors.Is(err, tour.ErrInvalidState) && !errors.Is(err, tour.ErrNotFound) {
			return fmt.Errorf("tour confirmer: %w", err)
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// OutboxWorker drains the outbox the way the production dispatcher does,
// with SKIP LOCKED claims.
func OutboxWorker(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	d := workers.NewOutboxDispatcher(pool, nil, workers.LogPublisher{}, 10)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if _, err := d.RunOnce(ctx); err != nil {
			return fmt.Errorf("outbox worker: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
