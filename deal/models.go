package deal

import "homeflow/conversation"

// Summary is the deal-relevant slice of a conversation row.
type Summary struct {
	ConversationID string
	PropertyID     *string
	Status         *conversation.DealStatus
}

// PropertySummary carries the property fields deal notifications reference.
type PropertySummary struct {
	ID       string
	ListerID string
	Address  string
}
