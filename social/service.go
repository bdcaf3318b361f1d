package social

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"homeflow/notification"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier records a notification inside the workflow's transaction.
type Notifier interface {
	Record(ctx context.Context, tx pgx.Tx, params notification.RecordParams) (notification.Notification, error)
}

// Service maintains the follow graph and property likes. Both edges are
// idempotent; a notification fires only when an edge is newly created.
type Service struct {
	pool     TxBeginner
	repo     Repository
	notifier Notifier
}

func NewService(pool TxBeginner, repo Repository, notifier Notifier) *Service {
	if repo == nil {
		repo = NewRepository()
	}
	return &Service{pool: pool, repo: repo, notifier: notifier}
}

// Follow creates the follower→followee edge and notifies the followee once.
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == "" || followeeID == "" {
		return fmt.Errorf("social: follower and followee required")
	}
	if followerID == followeeID {
		return ErrSelfFollow
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("social: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := s.repo.InsertFollow(ctx, tx, followerID, followeeID)
	if err != nil {
		return err
	}
	if created {
		name, err := s.repo.GetUserName(ctx, tx, followerID)
		if err != nil {
			return err
		}
		if _, err := s.notifier.Record(ctx, tx, notification.RecordParams{
			RecipientID: followeeID,
			Type:        notification.TypeFollow,
			Body:        fmt.Sprintf("%s started following you.", name),
			ContextID:   &followerID,
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("social: commit: %w", err)
	}
	return nil
}

// Unfollow removes the edge; removing an absent edge is a no-op.
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("social: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.repo.DeleteFollow(ctx, tx, followerID, followeeID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("social: commit: %w", err)
	}
	return nil
}

// Like records a like, bumps the counter, and notifies the lister once. Liking
// your own listing skips the notification.
func (s *Service) Like(ctx context.Context, userID, propertyID string) error {
	if userID == "" || propertyID == "" {
		return fmt.Errorf("social: user and property required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("social: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ownerID, err := s.repo.GetPropertyOwner(ctx, tx, propertyID)
	if err != nil {
		return err
	}

	created, err := s.repo.InsertLike(ctx, tx, userID, propertyID)
	if err != nil {
		return err
	}
	if created {
		if err := s.repo.AdjustLikesCount(ctx, tx, propertyID, 1); err != nil {
			return err
		}
		if ownerID != userID {
			name, err := s.repo.GetUserName(ctx, tx, userID)
			if err != nil {
				return err
			}
			if _, err := s.notifier.Record(ctx, tx, notification.RecordParams{
				RecipientID: ownerID,
				Type:        notification.TypeLike,
				Body:        fmt.Sprintf("%s liked your listing.", name),
				ContextID:   &propertyID,
			}); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("social: commit: %w", err)
	}
	return nil
}

// Unlike removes a like and decrements the counter when the like existed.
func (s *Service) Unlike(ctx context.Context, userID, propertyID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("social: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	removed, err := s.repo.DeleteLike(ctx, tx, userID, propertyID)
	if err != nil {
		return err
	}
	if removed {
		if err := s.repo.AdjustLikesCount(ctx, tx, propertyID, -1); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("social: commit: %w", err)
	}
	return nil
}
