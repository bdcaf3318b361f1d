package deal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"homeflow/conversation"
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

// Service advances a conversation's deal status strictly forward:
// (none) -> agreement_pending -> complete. The payment_pending value stays in
// the type but is never stored; payment confirmation and agreement review are
// one accepted transition.
type Service struct {
	pool     TxBeginner
	repo     Repository
	notifier Notifier
}

func NewService(pool TxBeginner, repo Repository, notifier Notifier) *Service {
	if repo == nil {
		repo = NewRepository()
	}
	return &Service{
		pool:     pool,
		repo:     repo,
		notifier: notifier,
	}
}

// RecordPayment accepts a renter's payment on a property inquiry thread and
// moves the deal to agreement review. Emits one deal notification to the payer.
func (s *Service) RecordPayment(ctx context.Context, conversationID, payerID string) (Summary, error) {
	if conversationID == "" {
		return Summary{}, fmt.Errorf("deal: conversation id required")
	}
	if payerID == "" {
		return Summary{}, fmt.Errorf("deal: payer id required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("deal: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row, err := s.repo.GetSummaryForUpdate(ctx, tx, conversationID)
	if err != nil {
		return Summary{}, err
	}
	if row.PropertyID == nil {
		return Summary{}, ErrNoProperty
	}
	if row.Status != nil {
		return Summary{}, fmt.Errorf("deal: record payment from %s: %w", *row.Status, ErrInvalidState)
	}

	prop, err := s.repo.GetPropertySummary(ctx, tx, *row.PropertyID)
	if err != nil {
		return Summary{}, err
	}

	if err := s.repo.SetStatus(ctx, tx, conversationID, conversation.DealAgreementPending); err != nil {
		return Summary{}, err
	}

	body := fmt.Sprintf("Payment received for %s. The rental agreement is now awaiting signature.", prop.Address)
	if _, err := s.notifier.Record(ctx, tx, notification.RecordParams{
		RecipientID: payerID,
		Type:        notification.TypeDeal,
		Body:        body,
		ContextID:   &conversationID,
	}); err != nil {
		return Summary{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Summary{}, fmt.Errorf("deal: commit: %w", err)
	}

	status := conversation.DealAgreementPending
	row.Status = &status
	return row, nil
}

// SignAgreement completes the deal. Requires agreement_pending; emits one deal
// notification telling the lister funds are released.
func (s *Service) SignAgreement(ctx context.Context, conversationID, actorID string) (Summary, error) {
	if conversationID == "" {
		return Summary{}, fmt.Errorf("deal: conversation id required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("deal: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row, err := s.repo.GetSummaryForUpdate(ctx, tx, conversationID)
	if err != nil {
		return Summary{}, err
	}
	if row.PropertyID == nil {
		return Summary{}, ErrNoProperty
	}
	if row.Status == nil || *row.Status != conversation.DealAgreementPending {
		return Summary{}, fmt.Errorf("deal: sign agreement: %w", ErrInvalidState)
	}

	prop, err := s.repo.GetPropertySummary(ctx, tx, *row.PropertyID)
	if err != nil {
		return Summary{}, err
	}

	if err := s.repo.SetStatus(ctx, tx, conversationID, conversation.DealComplete); err != nil {
		return Summary{}, err
	}

	body := fmt.Sprintf("Agreement signed for %s. Funds have been released to you.", prop.Address)
	if _, err := s.notifier.Record(ctx, tx, notification.RecordParams{
		RecipientID: prop.ListerID,
		Type:        notification.TypeDeal,
		Body:        body,
		ContextID:   &conversationID,
	}); err != nil {
		return Summary{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Summary{}, fmt.Errorf("deal: commit: %w", err)
	}

	status := conversation.DealComplete
	row.Status = &status
	return row, nil
}
