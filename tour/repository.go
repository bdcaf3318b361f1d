package tour

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound signals the referenced tour or property does not exist.
	ErrNotFound = errors.New("tour: not found")
	// ErrInvalidState signals a transition attempted from a state that forbids it.
	ErrInvalidState = errors.New("tour: invalid state")
)

// Repository defines the data access the tour workflow requires.
type Repository interface {
	GetProperty(ctx context.Context, tx pgx.Tx, propertyID string) (PropertyInfo, error)
	GetUserName(ctx context.Context, tx pgx.Tx, userID string) (string, error)
	Insert(ctx context.Context, tx pgx.Tx, t Tour) (Tour, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Tour, error)
	Confirm(ctx context.Context, tx pgx.Tx, id string, confirmedTime time.Time) (Tour, error)
	SetStatus(ctx context.Context, tx pgx.Tx, id string, from []Status, to Status) (Tour, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct{}

func NewRepository() *PGRepository {
	return &PGRepository{}
}

const tourColumns = `id, property_id, renter_id, agent_id, status, proposed_times, confirmed_time, note, reminded_at, created_at, updated_at`

func (r *PGRepository) GetProperty(ctx context.Context, tx pgx.Tx, propertyID string) (PropertyInfo, error) {
	const query = `SELECT id, lister_id, verifier_id, address FROM properties WHERE id = $1`

	var p PropertyInfo
	if err := tx.QueryRow(ctx, query, propertyID).Scan(&p.ID, &p.ListerID, &p.VerifierID, &p.Address); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PropertyInfo{}, fmt.Errorf("tour: property %s: %w", propertyID, ErrNotFound)
		}
		return PropertyInfo{}, fmt.Errorf("tour: get property: %w", err)
	}
	return p, nil
}

func (r *PGRepository) GetUserName(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	var name string
	if err := tx.QueryRow(ctx, `SELECT full_name FROM users WHERE id = $1`, userID).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("tour: user %s: %w", userID, ErrNotFound)
		}
		return "", fmt.Errorf("tour: get user name: %w", err)
	}
	return name, nil
}

func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, t Tour) (Tour, error) {
	query := `
		INSERT INTO tours (id, property_id, renter_id, agent_id, status, proposed_times, note)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, 'pending', $5, $6)
		RETURNING ` + tourColumns

	inserted, err := scanTour(tx.QueryRow(ctx, query, t.ID, t.PropertyID, t.RenterID, t.AgentID, t.ProposedTimes, t.Note))
	if err != nil {
		return Tour{}, fmt.Errorf("tour: insert: %w", err)
	}
	return inserted, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours WHERE id = $1 FOR UPDATE`

	t, err := scanTour(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tour{}, ErrNotFound
		}
		return Tour{}, fmt.Errorf("tour: get for update: %w", err)
	}
	return t, nil
}

// Confirm flips a pending tour to confirmed. The status guard is in the WHERE
// clause so a lost race surfaces as ErrInvalidState, not a double confirm.
func (r *PGRepository) Confirm(ctx context.Context, tx pgx.Tx, id string, confirmedTime time.Time) (Tour, error) {
	query := `
		UPDATE tours
		SET status = 'confirmed',
		    confirmed_time = $2,
		    updated_at = get_tx_timestamp()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + tourColumns

	t, err := scanTour(tx.QueryRow(ctx, query, id, confirmedTime))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tour{}, ErrInvalidState
		}
		return Tour{}, fmt.Errorf("tour: confirm: %w", err)
	}
	return t, nil
}

func (r *PGRepository) SetStatus(ctx context.Context, tx pgx.Tx, id string, from []Status, to Status) (Tour, error) {
	query := `
		UPDATE tours
		SET status = $2::tour_status,
		    updated_at = get_tx_timestamp()
		WHERE id = $1 AND status = ANY($3::tour_status[])
		RETURNING ` + tourColumns

	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	t, err := scanTour(tx.QueryRow(ctx, query, id, to, fromStrs))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tour{}, ErrInvalidState
		}
		return Tour{}, fmt.Errorf("tour: set status: %w", err)
	}
	return t, nil
}

func scanTour(row pgx.Row) (Tour, error) {
	var t Tour
	err := row.Scan(
		&t.ID,
		&t.PropertyID,
		&t.RenterID,
		&t.AgentID,
		&t.Status,
		&t.ProposedTimes,
		&t.ConfirmedTime,
		&t.Note,
		&t.RemindedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}
