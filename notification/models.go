package notification

import "time"

// Type classifies what a notification is about.
type Type string

const (
	TypeMessage      Type = "message"
	TypeVerification Type = "verification"
	TypeDeal         Type = "deal"
	TypeFollow       Type = "follow"
	TypeTour         Type = "tour"
	TypeLike         Type = "like"
)

// Notification mirrors the notifications table.
type Notification struct {
	ID          string
	RecipientID string
	Type        Type
	Body        string
	ContextID   *string
	Read        bool
	CreatedAt   time.Time
}

// RecordParams enumerates the fields of a new notification.
type RecordParams struct {
	RecipientID string
	Type        Type
	Body        string
	ContextID   *string
}

// OutboxMessage represents a transactional outbox entry awaiting delivery.
type OutboxMessage struct {
	ID        string
	Topic     string
	Payload   []byte
	Status    string
	Attempts  int
	CreatedAt time.Time
}
