package property

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested property does not exist.
var ErrNotFound = errors.New("property: not found")

const columns = `id, lister_id, title, address, latitude, longitude, verification_status, verifier_id,
	likes_count, comments_count, reposts_count, views_count, created_at, updated_at`

// Repository provides access to property listings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new listing owned by the lister.
func (r *Repository) Create(ctx context.Context, params CreateParams) (Property, error) {
	if params.ListerID == "" {
		return Property{}, fmt.Errorf("property: lister id required")
	}
	if params.Title == "" || params.Address == "" {
		return Property{}, fmt.Errorf("property: title and address required")
	}

	insertSQL := `
		INSERT INTO properties (lister_id, title, address, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + columns

	row := r.pool.QueryRow(ctx, insertSQL,
		params.ListerID, params.Title, params.Address, params.Latitude, params.Longitude)
	p, err := scan(row)
	if err != nil {
		return Property{}, fmt.Errorf("property: insert: %w", err)
	}
	return p, nil
}

// GetByID fetches a property by its primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Property, error) {
	selectSQL := `SELECT ` + columns + ` FROM properties WHERE id = $1`

	p, err := scan(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, fmt.Errorf("property: query by id: %w", err)
	}
	return p, nil
}

// ListByLister fetches up to limit properties owned by a lister, newest first.
func (r *Repository) ListByLister(ctx context.Context, listerID string, limit int) ([]Property, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	selectSQL := `SELECT ` + columns + ` FROM properties WHERE lister_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, selectSQL, listerID, limit)
	if err != nil {
		return nil, fmt.Errorf("property: list: %w", err)
	}
	defer rows.Close()

	list := make([]Property, 0, limit)
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("property: scan: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("property: iterate: %w", err)
	}

	return list, nil
}

// IncrementViews bumps the view counter. Counters are plain data: no
// notification is attached to a view.
func (r *Repository) IncrementViews(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE properties SET views_count = views_count + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("property: increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scan(row pgx.Row) (Property, error) {
	var p Property
	err := row.Scan(
		&p.ID,
		&p.ListerID,
		&p.Title,
		&p.Address,
		&p.Latitude,
		&p.Longitude,
		&p.VerificationStatus,
		&p.VerifierID,
		&p.LikesCount,
		&p.CommentsCount,
		&p.RepostsCount,
		&p.ViewsCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Property{}, err
	}
	return p, nil
}
