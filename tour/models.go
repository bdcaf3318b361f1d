package tour

import "time"

// Status is the lifecycle of a scheduled tour.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Tour mirrors the tours table. The agent is the property's verifier when one
// is assigned, otherwise its lister.
type Tour struct {
	ID            string
	PropertyID    string
	RenterID      string
	AgentID       string
	Status        Status
	ProposedTimes []time.Time
	ConfirmedTime *time.Time
	Note          string
	RemindedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PropertyInfo carries the property fields tour scheduling needs.
type PropertyInfo struct {
	ID         string
	ListerID   string
	VerifierID *string
	Address    string
}

// Agent resolves the user expected to conduct the tour.
func (p PropertyInfo) Agent() string {
	if p.VerifierID != nil && *p.VerifierID != "" {
		return *p.VerifierID
	}
	return p.ListerID
}

// RequestParams carries a multi-slot tour request.
type RequestParams struct {
	PropertyID    string
	RenterID      string
	ProposedTimes []time.Time
}

// BookParams carries the direct-booking single-slot variant.
type BookParams struct {
	PropertyID     string
	RenterID       string
	RequestedDate  string // 2006-01-02
	RequestedTime  string // 15:04
	Message        string
	ParticipantIDs []string
}
