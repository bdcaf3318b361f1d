package tour

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"homeflow/notification"
)

var (
	// ErrNoTimes signals a request with no proposed time slots.
	ErrNoTimes = errors.New("tour: at least one proposed time required")
	// ErrPastTime signals a proposed or confirmed instant in the past.
	ErrPastTime = errors.New("tour: time is in the past")
	// ErrBadSlot signals an unparseable date/time pair on the booking path.
	ErrBadSlot = errors.New("tour: invalid requested date or time")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier records a notification inside the workflow's transaction.
type Notifier interface {
	Record(ctx context.Context, tx pgx.Tx, params notification.RecordParams) (notification.Notification, error)
}

// ThreadJoiner folds an agent into the conversation anchored to a property
// and one of its members, inside the caller's transaction.
type ThreadJoiner interface {
	JoinPropertyThread(ctx context.Context, tx pgx.Tx, propertyID, memberID, joinerID, joinerName string) (bool, error)
}

// Service creates tour requests and advances them through their lifecycle.
type Service struct {
	pool     TxBeginner
	repo     Repository
	notifier Notifier
	threads  ThreadJoiner
	idGen    func() string
	now      func() time.Time
}

func NewService(pool TxBeginner, repo Repository, notifier Notifier, threads ThreadJoiner) *Service {
	if repo == nil {
		repo = NewRepository()
	}
	return &Service{
		pool:     pool,
		repo:     repo,
		notifier: notifier,
		threads:  threads,
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

// Request creates a pending tour with caller-proposed candidate times and
// notifies the assigned agent.
func (s *Service) Request(ctx context.Context, params RequestParams) (Tour, error) {
	if params.PropertyID == "" || params.RenterID == "" {
		return Tour{}, fmt.Errorf("tour: property and renter required")
	}
	if len(params.ProposedTimes) == 0 {
		return Tour{}, ErrNoTimes
	}
	now := s.now()
	for _, t := range params.ProposedTimes {
		if t.Before(now) {
			return Tour{}, ErrPastTime
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Tour{}, fmt.Errorf("tour: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	prop, err := s.repo.GetProperty(ctx, tx, params.PropertyID)
	if err != nil {
		return Tour{}, err
	}

	created, err := s.repo.Insert(ctx, tx, Tour{
		ID:            s.idGen(),
		PropertyID:    prop.ID,
		RenterID:      params.RenterID,
		AgentID:       prop.Agent(),
		ProposedTimes: params.ProposedTimes,
	})
	if err != nil {
		return Tour{}, err
	}

	body := fmt.Sprintf("New tour request for %s with %d proposed time(s).", prop.Address, len(params.ProposedTimes))
	if _, err := s.notifier.Record(ctx, tx, notification.RecordParams{
		RecipientID: created.AgentID,
		Type:        notification.TypeTour,
		Body:        body,
		ContextID:   &created.ID,
	}); err != nil {
		return Tour{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Tour{}, fmt.Errorf("tour: commit: %w", err)
	}
	return created, nil
}

// Book is the direct-booking single-slot variant. Participants always include
// the lister and, when distinct, the verifying agent; every participant except
// the requester is notified.
func (s *Service) Book(ctx context.Context, params BookParams) (Tour, error) {
	if params.PropertyID == "" || params.RenterID == "" {
		return Tour{}, fmt.Errorf("tour: property and renter required")
	}

	slot, err := time.Parse("2006-01-02 15:04", params.RequestedDate+" "+params.RequestedTime)
	if err != nil {
		return Tour{}, fmt.Errorf("%w: %q %q", ErrBadSlot, params.RequestedDate, params.RequestedTime)
	}
	if slot.Before(s.now()) {
		return Tour{}, ErrPastTime
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Tour{}, fmt.Errorf("tour: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	prop, err := s.repo.GetProperty(ctx, tx, params.PropertyID)
	if err != nil {
		return Tour{}, err
	}

	created, err := s.repo.Insert(ctx, tx, Tour{
		ID:            s.idGen(),
		PropertyID:    prop.ID,
		RenterID:      params.RenterID,
		AgentID:       prop.Agent(),
		ProposedTimes: []time.Time{slot},
		Note:          params.Message,
	})
	if err != nil {
		return Tour{}, err
	}

	body := fmt.Sprintf("Tour requested for %s on %s at %s.", prop.Address, params.RequestedDate, params.RequestedTime)
	for _, recipient := range bookingRecipients(params, prop) {
		if _, err := s.notifier.Record(ctx, tx, notification.RecordParams{
			RecipientID: recipient,
			Type:        notification.TypeTour,
			Body:        body,
			ContextID:   &created.ID,
		}); err != nil {
			return Tour{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Tour{}, fmt.Errorf("tour: commit: %w", err)
	}
	return created, nil
}

// Confirm locks in one time for a pending tour, notifies the renter, and folds
// the agent into the property thread with a system message when absent.
func (s *Service) Confirm(ctx context.Context, tourID string, confirmedTime time.Time) (Tour, error) {
	if tourID == "" {
		return Tour{}, fmt.Errorf("tour: tour id required")
	}
	if confirmedTime.IsZero() {
		return Tour{}, fmt.Errorf("tour: confirmed time required")
	}
	if confirmedTime.Before(s.now()) {
		return Tour{}, ErrPastTime
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Tour{}, fmt.Errorf("tour: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, tourID)
	if err != nil {
		return Tour{}, err
	}
	if current.Status != StatusPending {
		return Tour{}, fmt.Errorf("tour: confirm from %s: %w", current.Status, ErrInvalidState)
	}

	confirmed, err := s.repo.Confirm(ctx, tx, tourID, confirmedTime)
	if err != nil {
		return Tour{}, err
	}

	prop, err := s.repo.GetProperty(ctx, tx, confirmed.PropertyID)
	if err != nil {
		return Tour{}, err
	}

	body := fmt.Sprintf("Your tour of %s is confirmed for %s.", prop.Address, confirmedTime.Format(time.RFC1123))
	if _, err := s.notifier.Record(ctx, tx, notification.RecordParams{
		RecipientID: confirmed.RenterID,
		Type:        notification.TypeTour,
		Body:        body,
		ContextID:   &confirmed.ID,
	}); err != nil {
		return Tour{}, err
	}

	agentName, err := s.repo.GetUserName(ctx, tx, confirmed.AgentID)
	if err != nil {
		return Tour{}, err
	}
	if _, err := s.threads.JoinPropertyThread(ctx, tx, confirmed.PropertyID, confirmed.RenterID, confirmed.AgentID, agentName); err != nil {
		return Tour{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Tour{}, fmt.Errorf("tour: commit: %w", err)
	}
	return confirmed, nil
}

// Cancel withdraws a pending or confirmed tour and notifies the counterpart.
func (s *Service) Cancel(ctx context.Context, tourID, actorID string) (Tour, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Tour{}, fmt.Errorf("tour: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, tourID)
	if err != nil {
		return Tour{}, err
	}

	cancelled, err := s.repo.SetStatus(ctx, tx, tourID, []Status{StatusPending, StatusConfirmed}, StatusCancelled)
	if err != nil {
		return Tour{}, err
	}

	counterpart := cancelled.RenterID
	if actorID == cancelled.RenterID {
		counterpart = cancelled.AgentID
	}
	prop, err := s.repo.GetProperty(ctx, tx, current.PropertyID)
	if err != nil {
		return Tour{}, err
	}
	if _, err := s.notifier.Record(ctx, tx, notification.RecordParams{
		RecipientID: counterpart,
		Type:        notification.TypeTour,
		Body:        fmt.Sprintf("The tour of %s has been cancelled.", prop.Address),
		ContextID:   &cancelled.ID,
	}); err != nil {
		return Tour{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Tour{}, fmt.Errorf("tour: commit: %w", err)
	}
	return cancelled, nil
}

// Complete closes out a confirmed tour after the visit.
func (s *Service) Complete(ctx context.Context, tourID string) (Tour, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Tour{}, fmt.Errorf("tour: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.repo.GetForUpdate(ctx, tx, tourID); err != nil {
		return Tour{}, err
	}

	completed, err := s.repo.SetStatus(ctx, tx, tourID, []Status{StatusConfirmed}, StatusCompleted)
	if err != nil {
		return Tour{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Tour{}, fmt.Errorf("tour: commit: %w", err)
	}
	return completed, nil
}

func bookingRecipients(params BookParams, prop PropertyInfo) []string {
	seen := map[string]bool{params.RenterID: true}
	var recipients []string

	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		recipients = append(recipients, id)
	}

	for _, id := range params.ParticipantIDs {
		add(id)
	}
	add(prop.ListerID)
	if prop.VerifierID != nil {
		add(*prop.VerifierID)
	}
	return recipients
}
