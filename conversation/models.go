package conversation

import "time"

// DealStatus tracks the payment-and-agreement sub-process attached to a
// property-inquiry conversation. Absence means no deal is in progress.
type DealStatus string

const (
	DealPaymentPending   DealStatus = "payment_pending"
	DealAgreementPending DealStatus = "agreement_pending"
	DealComplete         DealStatus = "complete"
)

// MessageKind distinguishes user-authored messages from synthesized ones.
type MessageKind string

const (
	KindUser   MessageKind = "user"
	KindSystem MessageKind = "system"
)

// Conversation mirrors the conversations table plus its participant rows.
type Conversation struct {
	ID             string
	PropertyID     *string
	TeamID         *string
	DealStatus     *DealStatus
	ParticipantKey *string
	Participants   []Participant
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Participant is a member of a conversation.
type Participant struct {
	UserID   string
	JoinedAt time.Time
}

// HasParticipant reports whether userID is a member.
func (c Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Audio is a voice-note attachment.
type Audio struct {
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Content is the one-of payload of a user message: text or audio.
type Content struct {
	Text  string `json:"text,omitempty"`
	Audio *Audio `json:"audio,omitempty"`
}

// Message mirrors the messages table. Immutable once created except for the
// read flip.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Kind           MessageKind
	Text           *string
	Audio          *Audio
	Read           bool
	CreatedAt      time.Time
}

// SeedMessage optionally opens a newly created conversation. A zero Kind
// means a regular user message.
type SeedMessage struct {
	SenderID string
	Kind     MessageKind
	Content  Content
}
