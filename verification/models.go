package verification

import (
	"time"

	"homeflow/geo"
	"homeflow/property"
)

// Submission is the on-site evidence an agent captures at the property.
type Submission struct {
	PhotoURLs  []string
	Location   geo.Point
	Accuracy   float64
	CapturedAt time.Time
	Notes      string
}

// Evidence is a persisted submission tied to a property and verifier.
type Evidence struct {
	ID         string
	PropertyID string
	VerifierID string
	PhotoURLs  []string
	Location   geo.Point
	Accuracy   float64
	CapturedAt time.Time
	Notes      string
	CreatedAt  time.Time
}

// PropertySnapshot is the slice of a property the workflow locks and inspects.
type PropertySnapshot struct {
	ID       string
	ListerID string
	Address  string
	Location geo.Point
	Status   property.VerificationStatus
}
