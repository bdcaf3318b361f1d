package deal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"homeflow/conversation"
)

var (
	// ErrNotFound signals the conversation does not exist.
	ErrNotFound = errors.New("deal: conversation not found")
	// ErrInvalidState signals a transition attempted from a state that forbids it.
	ErrInvalidState = errors.New("deal: invalid state")
	// ErrNoProperty signals a deal operation on a thread with no property anchor.
	ErrNoProperty = errors.New("deal: conversation references no property")
)

// Repository defines the data access the deal lifecycle requires.
type Repository interface {
	GetSummaryForUpdate(ctx context.Context, tx pgx.Tx, conversationID string) (Summary, error)
	SetStatus(ctx context.Context, tx pgx.Tx, conversationID string, status conversation.DealStatus) error
	GetPropertySummary(ctx context.Context, tx pgx.Tx, propertyID string) (PropertySummary, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct{}

func NewRepository() *PGRepository {
	return &PGRepository{}
}

func (r *PGRepository) GetSummaryForUpdate(ctx context.Context, tx pgx.Tx, conversationID string) (Summary, error) {
	const query = `
		SELECT id, property_id, deal_status
		FROM conversations
		WHERE id = $1
		FOR UPDATE
	`

	var s Summary
	if err := tx.QueryRow(ctx, query, conversationID).Scan(&s.ConversationID, &s.PropertyID, &s.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Summary{}, ErrNotFound
		}
		return Summary{}, fmt.Errorf("deal: get summary: %w", err)
	}
	return s, nil
}

func (r *PGRepository) SetStatus(ctx context.Context, tx pgx.Tx, conversationID string, status conversation.DealStatus) error {
	if _, err := tx.Exec(ctx, `
		UPDATE conversations
		SET deal_status = $1::deal_status,
		    updated_at = get_tx_timestamp()
		WHERE id = $2
	`, status, conversationID); err != nil {
		return fmt.Errorf("deal: set status: %w", err)
	}
	return nil
}

func (r *PGRepository) GetPropertySummary(ctx context.Context, tx pgx.Tx, propertyID string) (PropertySummary, error) {
	const query = `SELECT id, lister_id, address FROM properties WHERE id = $1`

	var p PropertySummary
	if err := tx.QueryRow(ctx, query, propertyID).Scan(&p.ID, &p.ListerID, &p.Address); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PropertySummary{}, fmt.Errorf("deal: property %s missing: %w", propertyID, ErrNotFound)
		}
		return PropertySummary{}, fmt.Errorf("deal: get property: %w", err)
	}
	return p, nil
}
