package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the conversation does not exist.
	ErrNotFound = errors.New("conversation: not found")
	// ErrDuplicatePair signals a concurrent insert won the (property, pair) slot.
	ErrDuplicatePair = errors.New("conversation: duplicate property pair")
)

// PairKey canonicalizes an unordered two-participant set.
func PairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

// InsertMessageParams enumerates the fields of a new message row.
type InsertMessageParams struct {
	ID             string
	ConversationID string
	SenderID       string
	Kind           MessageKind
	Text           *string
	Audio          *Audio
	Read           bool
}

// Repository defines the data access the conversation service requires.
type Repository interface {
	GetByPropertyPair(ctx context.Context, tx pgx.Tx, propertyID, key string) (Conversation, error)
	Insert(ctx context.Context, tx pgx.Tx, conv Conversation, participantIDs []string) (Conversation, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Conversation, error)
	FindThreadForUser(ctx context.Context, tx pgx.Tx, propertyID, userID string) (Conversation, error)
	AddParticipant(ctx context.Context, tx pgx.Tx, conversationID, userID string) (bool, error)
	InsertMessage(ctx context.Context, tx pgx.Tx, params InsertMessageParams) (Message, error)
	MarkMessagesRead(ctx context.Context, tx pgx.Tx, conversationID string) error
	ListForUser(ctx context.Context, userID string, limit int) ([]Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const convColumns = `id, property_id, team_id, deal_status, participant_key, created_at, updated_at`

func (r *PGRepository) GetByPropertyPair(ctx context.Context, tx pgx.Tx, propertyID, key string) (Conversation, error) {
	query := `
		SELECT ` + convColumns + `
		FROM conversations
		WHERE property_id = $1 AND participant_key = $2 AND team_id IS NULL
		FOR UPDATE
	`

	conv, err := scanConversation(tx.QueryRow(ctx, query, propertyID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("conversation: get by property pair: %w", err)
	}

	if err := r.loadParticipants(ctx, tx, &conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, conv Conversation, participantIDs []string) (Conversation, error) {
	query := `
		INSERT INTO conversations (id, property_id, team_id, participant_key)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4)
		RETURNING ` + convColumns

	inserted, err := scanConversation(tx.QueryRow(ctx, query, conv.ID, conv.PropertyID, conv.TeamID, conv.ParticipantKey))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Conversation{}, ErrDuplicatePair
		}
		return Conversation{}, fmt.Errorf("conversation: insert: %w", err)
	}

	for _, userID := range participantIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			inserted.ID, userID); err != nil {
			return Conversation{}, fmt.Errorf("conversation: insert participant: %w", err)
		}
	}

	if err := r.loadParticipants(ctx, tx, &inserted); err != nil {
		return Conversation{}, err
	}
	return inserted, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Conversation, error) {
	query := `SELECT ` + convColumns + ` FROM conversations WHERE id = $1 FOR UPDATE`

	conv, err := scanConversation(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("conversation: get for update: %w", err)
	}

	if err := r.loadParticipants(ctx, tx, &conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (r *PGRepository) FindThreadForUser(ctx context.Context, tx pgx.Tx, propertyID, userID string) (Conversation, error) {
	query := `
		SELECT ` + prefixedConvColumns("c") + `
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE c.property_id = $1 AND c.team_id IS NULL AND p.user_id = $2
		ORDER BY c.created_at
		LIMIT 1
		FOR UPDATE OF c
	`

	conv, err := scanConversation(tx.QueryRow(ctx, query, propertyID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("conversation: find thread: %w", err)
	}

	if err := r.loadParticipants(ctx, tx, &conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (r *PGRepository) AddParticipant(ctx context.Context, tx pgx.Tx, conversationID, userID string) (bool, error) {
	tag, err := tx.Exec(ctx,
		`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		conversationID, userID)
	if err != nil {
		return false, fmt.Errorf("conversation: add participant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepository) InsertMessage(ctx context.Context, tx pgx.Tx, params InsertMessageParams) (Message, error) {
	var audioURL *string
	var audioDuration *int
	if params.Audio != nil {
		audioURL = &params.Audio.URL
		audioDuration = &params.Audio.DurationSeconds
	}

	const query = `
		INSERT INTO messages (id, conversation_id, sender_id, kind, body, audio_url, audio_duration_secs, is_read)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4::message_kind, $5, $6, $7, $8)
		RETURNING id, conversation_id, sender_id, kind, body, audio_url, audio_duration_secs, is_read, created_at
	`

	msg, err := scanMessage(tx.QueryRow(ctx, query,
		params.ID, params.ConversationID, params.SenderID, params.Kind,
		params.Text, audioURL, audioDuration, params.Read))
	if err != nil {
		return Message{}, fmt.Errorf("conversation: insert message: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = get_tx_timestamp() WHERE id = $1`, params.ConversationID); err != nil {
		return Message{}, fmt.Errorf("conversation: touch: %w", err)
	}

	return msg, nil
}

func (r *PGRepository) MarkMessagesRead(ctx context.Context, tx pgx.Tx, conversationID string) error {
	if _, err := tx.Exec(ctx,
		`UPDATE messages SET is_read = true WHERE conversation_id = $1 AND NOT is_read`, conversationID); err != nil {
		return fmt.Errorf("conversation: mark messages read: %w", err)
	}
	return nil
}

func (r *PGRepository) ListForUser(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT ` + prefixedConvColumns("c") + `
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.user_id = $1
		ORDER BY c.updated_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: list for user: %w", err)
	}
	defer rows.Close()

	list := make([]Conversation, 0, limit)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("conversation: scan: %w", err)
		}
		list = append(list, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate: %w", err)
	}

	return list, nil
}

func (r *PGRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	const query = `
		SELECT id, conversation_id, sender_id, kind, body, audio_url, audio_duration_secs, is_read, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: list messages: %w", err)
	}
	defer rows.Close()

	list := make([]Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("conversation: scan message: %w", err)
		}
		list = append(list, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate messages: %w", err)
	}

	return list, nil
}

func (r *PGRepository) loadParticipants(ctx context.Context, tx pgx.Tx, conv *Conversation) error {
	rows, err := tx.Query(ctx,
		`SELECT user_id, joined_at FROM conversation_participants WHERE conversation_id = $1 ORDER BY joined_at`,
		conv.ID)
	if err != nil {
		return fmt.Errorf("conversation: load participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.UserID, &p.JoinedAt); err != nil {
			return fmt.Errorf("conversation: scan participant: %w", err)
		}
		conv.Participants = append(conv.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("conversation: iterate participants: %w", err)
	}
	return nil
}

func scanConversation(row pgx.Row) (Conversation, error) {
	var conv Conversation
	err := row.Scan(
		&conv.ID,
		&conv.PropertyID,
		&conv.TeamID,
		&conv.DealStatus,
		&conv.ParticipantKey,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	return conv, err
}

func scanMessage(row pgx.Row) (Message, error) {
	var (
		msg           Message
		audioURL      *string
		audioDuration *int
	)
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.Kind,
		&msg.Text,
		&audioURL,
		&audioDuration,
		&msg.Read,
		&msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}
	if audioURL != nil {
		audio := Audio{URL: *audioURL}
		if audioDuration != nil {
			audio.DurationSeconds = *audioDuration
		}
		msg.Audio = &audio
	}
	return msg, nil
}

func prefixedConvColumns(alias string) string {
	return alias + ".id, " + alias + ".property_id, " + alias + ".team_id, " +
		alias + ".deal_status, " + alias + ".participant_key, " +
		alias + ".created_at, " + alias + ".updated_at"
}
