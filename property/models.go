package property

import "time"

// VerificationStatus tracks a listing's progress through on-site verification.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusPending    VerificationStatus = "pending"
	StatusVerified   VerificationStatus = "verified"
)

// Property mirrors the properties table.
type Property struct {
	ID                 string
	ListerID           string
	Title              string
	Address            string
	Latitude           float64
	Longitude          float64
	VerificationStatus VerificationStatus
	VerifierID         *string
	LikesCount         int
	CommentsCount      int
	RepostsCount       int
	ViewsCount         int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateParams enumerates the fields required to list a property.
type CreateParams struct {
	ListerID  string
	Title     string
	Address   string
	Latitude  float64
	Longitude float64
}
