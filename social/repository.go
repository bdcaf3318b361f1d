package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound signals a missing user or property.
	ErrNotFound = errors.New("social: not found")
	// ErrSelfFollow signals a user following themselves.
	ErrSelfFollow = errors.New("social: cannot follow yourself")
)

// Repository is the tx-scoped storage surface of the social graph.
type Repository interface {
	InsertFollow(ctx context.Context, tx pgx.Tx, followerID, followeeID string) (bool, error)
	DeleteFollow(ctx context.Context, tx pgx.Tx, followerID, followeeID string) (bool, error)
	InsertLike(ctx context.Context, tx pgx.Tx, userID, propertyID string) (bool, error)
	DeleteLike(ctx context.Context, tx pgx.Tx, userID, propertyID string) (bool, error)
	AdjustLikesCount(ctx context.Context, tx pgx.Tx, propertyID string, delta int) error
	GetPropertyOwner(ctx context.Context, tx pgx.Tx, propertyID string) (string, error)
	GetUserName(ctx context.Context, tx pgx.Tx, userID string) (string, error)
}

// PGRepository executes against the caller's transaction.
type PGRepository struct{}

func NewRepository() *PGRepository {
	return &PGRepository{}
}

// InsertFollow reports whether the edge was newly created.
func (r *PGRepository) InsertFollow(ctx context.Context, tx pgx.Tx, followerID, followeeID string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		followerID, followeeID,
	)
	if err != nil {
		return false, fmt.Errorf("social: insert follow: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepository) DeleteFollow(ctx context.Context, tx pgx.Tx, followerID, followeeID string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID,
	)
	if err != nil {
		return false, fmt.Errorf("social: delete follow: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertLike reports whether the like was newly created.
func (r *PGRepository) InsertLike(ctx context.Context, tx pgx.Tx, userID, propertyID string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO property_likes (user_id, property_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		userID, propertyID,
	)
	if err != nil {
		return false, fmt.Errorf("social: insert like: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepository) DeleteLike(ctx context.Context, tx pgx.Tx, userID, propertyID string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		DELETE FROM property_likes WHERE user_id = $1 AND property_id = $2`,
		userID, propertyID,
	)
	if err != nil {
		return false, fmt.Errorf("social: delete like: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepository) AdjustLikesCount(ctx context.Context, tx pgx.Tx, propertyID string, delta int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE properties
		SET likes_count = greatest(likes_count + $2, 0), updated_at = get_tx_timestamp()
		WHERE id = $1`,
		propertyID, delta,
	)
	if err != nil {
		return fmt.Errorf("social: adjust likes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) GetPropertyOwner(ctx context.Context, tx pgx.Tx, propertyID string) (string, error) {
	var ownerID string
	err := tx.QueryRow(ctx, `SELECT lister_id FROM properties WHERE id = $1`, propertyID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("social: get property owner: %w", err)
	}
	return ownerID, nil
}

func (r *PGRepository) GetUserName(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	var name string
	err := tx.QueryRow(ctx, `SELECT full_name FROM users WHERE id = $1`, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("social: get user: %w", err)
	}
	return name, nil
}
