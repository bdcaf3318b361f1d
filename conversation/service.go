package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrEmptyMessage signals a text message with no content.
	ErrEmptyMessage = errors.New("conversation: empty message")
	// ErrInvalidContent signals a payload that is not exactly one of text or audio.
	ErrInvalidContent = errors.New("conversation: content must be text or audio")
	// ErrNotParticipant signals the sender is not a member of the thread.
	ErrNotParticipant = errors.New("conversation: sender is not a participant")
	// ErrSameParticipant signals a conversation between a user and themselves.
	ErrSameParticipant = errors.New("conversation: participants must differ")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service finds-or-creates conversations per (property, participant pair),
// appends messages, and tracks read state.
type Service struct {
	pool  TxBeginner
	repo  Repository
	idGen func() string
	now   func() time.Time
}

func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{
		pool:  pool,
		repo:  repo,
		idGen: func() string { return uuid.NewString() },
		now:   time.Now,
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

// FindOrCreate returns the existing non-team conversation for the property and
// unordered participant pair, or creates one. The boolean reports creation.
func (s *Service) FindOrCreate(ctx context.Context, propertyID, userA, userB string, seed *SeedMessage) (Conversation, bool, error) {
	if propertyID == "" {
		return Conversation{}, false, fmt.Errorf("conversation: property id required")
	}
	if userA == "" || userB == "" {
		return Conversation{}, false, fmt.Errorf("conversation: both participants required")
	}
	if userA == userB {
		return Conversation{}, false, ErrSameParticipant
	}
	if seed != nil {
		if err := validateContent(seed.Content); err != nil {
			return Conversation{}, false, err
		}
	}

	conv, created, err := s.findOrCreateOnce(ctx, propertyID, userA, userB, seed)
	if errors.Is(err, ErrDuplicatePair) {
		// A concurrent caller created the thread between our lookup and
		// insert; re-run the lookup path.
		conv, created, err = s.findOrCreateOnce(ctx, propertyID, userA, userB, nil)
	}
	return conv, created, err
}

func (s *Service) findOrCreateOnce(ctx context.Context, propertyID, userA, userB string, seed *SeedMessage) (Conversation, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Conversation{}, false, fmt.Errorf("conversation: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	key := PairKey(userA, userB)

	existing, err := s.repo.GetByPropertyPair(ctx, tx, propertyID, key)
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return Conversation{}, false, fmt.Errorf("conversation: commit: %w", err)
		}
		return existing, false, nil
	case errors.Is(err, ErrNotFound):
		// fall through to create
	default:
		return Conversation{}, false, err
	}

	conv := Conversation{
		ID:             s.idGen(),
		PropertyID:     &propertyID,
		ParticipantKey: &key,
	}
	created, err := s.repo.Insert(ctx, tx, conv, []string{userA, userB})
	if err != nil {
		return Conversation{}, false, err
	}

	if seed != nil {
		kind := seed.Kind
		if kind == "" {
			kind = KindUser
		}
		params := messageParams(s.idGen(), created.ID, seed.SenderID, kind, seed.Content, true)
		if _, err := s.repo.InsertMessage(ctx, tx, params); err != nil {
			return Conversation{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Conversation{}, false, fmt.Errorf("conversation: commit: %w", err)
	}
	return created, true, nil
}

// AppendMessage adds a user message. The sender's view of prior history
// becomes read, and the new message is born read for the same reason.
func (s *Service) AppendMessage(ctx context.Context, conversationID, senderID string, content Content) (Message, error) {
	if err := validateContent(content); err != nil {
		return Message{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("conversation: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	conv, err := s.repo.GetForUpdate(ctx, tx, conversationID)
	if err != nil {
		return Message{}, err
	}
	if !conv.HasParticipant(senderID) {
		return Message{}, ErrNotParticipant
	}

	if err := s.repo.MarkMessagesRead(ctx, tx, conversationID); err != nil {
		return Message{}, err
	}

	msg, err := s.repo.InsertMessage(ctx, tx, messageParams(s.idGen(), conversationID, senderID, KindUser, content, true))
	if err != nil {
		return Message{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("conversation: commit: %w", err)
	}
	return msg, nil
}

// AddSystemParticipant joins a user to a thread with a synthesized system
// message. Joining an existing participant is a no-op.
func (s *Service) AddSystemParticipant(ctx context.Context, conversationID, userID, displayName string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("conversation: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.joinTx(ctx, tx, conversationID, userID, displayName); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("conversation: commit: %w", err)
	}
	return nil
}

// JoinPropertyThread folds an agent into the thread anchored to (propertyID,
// memberID) inside the caller's transaction. It reports whether a join
// happened; a missing thread is not an error.
func (s *Service) JoinPropertyThread(ctx context.Context, tx pgx.Tx, propertyID, memberID, joinerID, joinerName string) (bool, error) {
	thread, err := s.repo.FindThreadForUser(ctx, tx, propertyID, memberID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if thread.HasParticipant(joinerID) {
		return false, nil
	}
	return s.join(ctx, tx, thread.ID, joinerID, joinerName)
}

func (s *Service) joinTx(ctx context.Context, tx pgx.Tx, conversationID, userID, displayName string) (bool, error) {
	conv, err := s.repo.GetForUpdate(ctx, tx, conversationID)
	if err != nil {
		return false, err
	}
	if conv.HasParticipant(userID) {
		return false, nil
	}
	return s.join(ctx, tx, conversationID, userID, displayName)
}

func (s *Service) join(ctx context.Context, tx pgx.Tx, conversationID, userID, displayName string) (bool, error) {
	added, err := s.repo.AddParticipant(ctx, tx, conversationID, userID)
	if err != nil {
		return false, err
	}
	if !added {
		return false, nil
	}

	name := displayName
	if name == "" {
		name = "An agent"
	}
	body := fmt.Sprintf("%s joined the conversation", name)
	params := InsertMessageParams{
		ID:             s.idGen(),
		ConversationID: conversationID,
		SenderID:       userID,
		Kind:           KindSystem,
		Text:           &body,
	}
	if _, err := s.repo.InsertMessage(ctx, tx, params); err != nil {
		return false, err
	}
	return true, nil
}

// ListForUser returns the user's threads, most recently active first.
func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	return s.repo.ListForUser(ctx, userID, limit)
}

// ListMessages returns a thread's messages in chronological order.
func (s *Service) ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	return s.repo.ListMessages(ctx, conversationID, limit)
}

func messageParams(id, conversationID, senderID string, kind MessageKind, content Content, read bool) InsertMessageParams {
	params := InsertMessageParams{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Kind:           kind,
		Read:           read,
	}
	if content.Audio != nil {
		params.Audio = content.Audio
	} else {
		text := strings.TrimSpace(content.Text)
		params.Text = &text
	}
	return params
}

func validateContent(content Content) error {
	hasText := strings.TrimSpace(content.Text) != ""
	hasAudio := content.Audio != nil

	switch {
	case hasText && hasAudio:
		return ErrInvalidContent
	case hasAudio:
		if content.Audio.URL == "" || content.Audio.DurationSeconds <= 0 {
			return ErrInvalidContent
		}
		return nil
	case hasText:
		return nil
	default:
		return ErrEmptyMessage
	}
}
