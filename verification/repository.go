package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"homeflow/geo"
	"homeflow/property"
)

var (
	// ErrNotFound signals a missing property or evidence row.
	ErrNotFound = errors.New("verification: not found")
	// ErrInvalidState signals a status transition the workflow does not allow.
	ErrInvalidState = errors.New("verification: invalid state")
)

// Repository is the tx-scoped storage surface of the verification workflow.
type Repository interface {
	GetPropertyForUpdate(ctx context.Context, tx pgx.Tx, propertyID string) (PropertySnapshot, error)
	SetStatus(ctx context.Context, tx pgx.Tx, propertyID string, from, to property.VerificationStatus) error
	SetVerified(ctx context.Context, tx pgx.Tx, propertyID, verifierID string) error
	InsertEvidence(ctx context.Context, tx pgx.Tx, ev Evidence) (Evidence, error)
	LatestEvidence(ctx context.Context, tx pgx.Tx, propertyID string) (Evidence, error)
}

// PGRepository executes against the caller's transaction.
type PGRepository struct{}

func NewRepository() *PGRepository {
	return &PGRepository{}
}

func (r *PGRepository) GetPropertyForUpdate(ctx context.Context, tx pgx.Tx, propertyID string) (PropertySnapshot, error) {
	var snap PropertySnapshot
	err := tx.QueryRow(ctx, `
		SELECT id, lister_id, address, latitude, longitude, verification_status
		FROM properties
		WHERE id = $1
		FOR UPDATE`,
		propertyID,
	).Scan(&snap.ID, &snap.ListerID, &snap.Address, &snap.Location.Latitude, &snap.Location.Longitude, &snap.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return PropertySnapshot{}, ErrNotFound
	}
	if err != nil {
		return PropertySnapshot{}, fmt.Errorf("verification: get property: %w", err)
	}
	return snap, nil
}

func (r *PGRepository) SetStatus(ctx context.Context, tx pgx.Tx, propertyID string, from, to property.VerificationStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE properties
		SET verification_status = $2::verification_status, updated_at = get_tx_timestamp()
		WHERE id = $1 AND verification_status = $3::verification_status`,
		propertyID, string(to), string(from),
	)
	if err != nil {
		return fmt.Errorf("verification: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (r *PGRepository) SetVerified(ctx context.Context, tx pgx.Tx, propertyID, verifierID string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE properties
		SET verification_status = 'verified', verifier_id = $2, updated_at = get_tx_timestamp()
		WHERE id = $1 AND verification_status = 'pending'`,
		propertyID, verifierID,
	)
	if err != nil {
		return fmt.Errorf("verification: set verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (r *PGRepository) InsertEvidence(ctx context.Context, tx pgx.Tx, ev Evidence) (Evidence, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO verification_evidence (id, property_id, verifier_id, photo_urls, latitude, longitude, accuracy, captured_at, notes)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		ev.ID, ev.PropertyID, ev.VerifierID, ev.PhotoURLs,
		ev.Location.Latitude, ev.Location.Longitude, ev.Accuracy, ev.CapturedAt, ev.Notes,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return Evidence{}, fmt.Errorf("verification: insert evidence: %w", err)
	}
	return ev, nil
}

func (r *PGRepository) LatestEvidence(ctx context.Context, tx pgx.Tx, propertyID string) (Evidence, error) {
	var (
		ev  Evidence
		loc geo.Point
	)
	err := tx.QueryRow(ctx, `
		SELECT id, property_id, verifier_id, photo_urls, latitude, longitude, accuracy, captured_at, notes, created_at
		FROM verification_evidence
		WHERE property_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		propertyID,
	).Scan(&ev.ID, &ev.PropertyID, &ev.VerifierID, &ev.PhotoURLs, &loc.Latitude, &loc.Longitude, &ev.Accuracy, &ev.CapturedAt, &ev.Notes, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Evidence{}, ErrNotFound
	}
	if err != nil {
		return Evidence{}, fmt.Errorf("verification: latest evidence: %w", err)
	}
	ev.Location = loc
	return ev, nil
}
