package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"homeflow/geo"
	"homeflow/notification"
	"homeflow/property"
)

// geofenceRadiusMeters is the maximum distance between the capture location
// and the listing's coordinates for a submission to count as on-site.
const geofenceRadiusMeters = 0.5

var (
	// ErrAlreadyPending signals a submission against a property that already
	// has one under review.
	ErrAlreadyPending = errors.New("verification: verification already pending")
	// ErrOutOfRange signals a capture location outside the geofence.
	ErrOutOfRange = errors.New("verification: capture location not at property")
	// ErrMissingEvidence signals a submission without photos.
	ErrMissingEvidence = errors.New("verification: at least one photo required")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier records a notification inside the workflow's transaction.
type Notifier interface {
	Record(ctx context.Context, tx pgx.Tx, params notification.RecordParams) (notification.Notification, error)
}

// Service moves a property through unverified → pending → verified on the
// strength of geofenced on-site evidence.
type Service struct {
	pool     TxBeginner
	repo     Repository
	notifier Notifier
	idGen    func() string
	now      func() time.Time
}

func NewService(pool TxBeginner, repo Repository, notifier Notifier) *Service {
	if repo == nil {
		repo = NewRepository()
	}
	return &Service{
		pool:     pool,
		repo:     repo,
		notifier: notifier,
		idGen:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit records geofenced evidence for an unverified property and moves it to
// pending. Checks run in a fixed order: existence, current status, distance,
// then evidence; the reported GPS accuracy is stored but never widens the
// geofence.
func (s *Service) Submit(ctx context.Context, propertyID, verifierID string, sub Submission) (Evidence, error) {
	if propertyID == "" || verifierID == "" {
		return Evidence{}, fmt.Errorf("verification: property and verifier required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Evidence{}, fmt.Errorf("verification: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	prop, err := s.repo.GetPropertyForUpdate(ctx, tx, propertyID)
	if err != nil {
		return Evidence{}, err
	}
	switch prop.Status {
	case property.StatusUnverified:
	case property.StatusPending:
		return Evidence{}, ErrAlreadyPending
	default:
		return Evidence{}, fmt.Errorf("verification: submit on %s property: %w", prop.Status, ErrInvalidState)
	}

	if d := geo.Distance(sub.Location, prop.Location); d > geofenceRadiusMeters {
		return Evidence{}, fmt.Errorf("%w: %.2fm from listing", ErrOutOfRange, d)
	}
	if len(sub.PhotoURLs) == 0 {
		return Evidence{}, ErrMissingEvidence
	}

	capturedAt := sub.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.now()
	}
	ev, err := s.repo.InsertEvidence(ctx, tx, Evidence{
		ID:         s.idGen(),
		PropertyID: prop.ID,
		VerifierID: verifierID,
		PhotoURLs:  sub.PhotoURLs,
		Location:   sub.Location,
		Accuracy:   sub.Accuracy,
		CapturedAt: capturedAt,
		Notes:      sub.Notes,
	})
	if err != nil {
		return Evidence{}, err
	}

	if err := s.repo.SetStatus(ctx, tx, prop.ID, property.StatusUnverified, property.StatusPending); err != nil {
		return Evidence{}, err
	}

	if _, err := s.notifier.Record(ctx, tx, notification.RecordParams{
		RecipientID: prop.ListerID,
		Type:        notification.TypeVerification,
		Body:        fmt.Sprintf("Verification evidence submitted for %s.", prop.Address),
		ContextID:   &prop.ID,
	}); err != nil {
		return Evidence{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Evidence{}, fmt.Errorf("verification: commit: %w", err)
	}
	return ev, nil
}

// Finalize promotes a pending property to verified and pins the verifier from
// the submission under review.
func (s *Service) Finalize(ctx context.Context, propertyID string) error {
	if propertyID == "" {
		return fmt.Errorf("verification: property id required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("verification: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	prop, err := s.repo.GetPropertyForUpdate(ctx, tx, propertyID)
	if err != nil {
		return err
	}
	if prop.Status != property.StatusPending {
		return fmt.Errorf("verification: finalize from %s: %w", prop.Status, ErrInvalidState)
	}

	ev, err := s.repo.LatestEvidence(ctx, tx, propertyID)
	if err != nil {
		return err
	}

	if err := s.repo.SetVerified(ctx, tx, propertyID, ev.VerifierID); err != nil {
		return err
	}

	if _, err := s.notifier.Record(ctx, tx, notification.RecordParams{
		RecipientID: prop.ListerID,
		Type:        notification.TypeVerification,
		Body:        fmt.Sprintf("%s is now verified.", prop.Address),
		ContextID:   &prop.ID,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("verification: commit: %w", err)
	}
	return nil
}
