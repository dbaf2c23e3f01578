package logbook

import "time"

// Status is the review state of a single logbook entry.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Entry records one day of internship work. Only supervisor-approved
// entries count toward the hour total the eligibility gate consumes.
type Entry struct {
	ID          string
	OwnerID     string
	Day         time.Time
	Hours       float64
	Description string
	Status      Status
	ReviewedBy  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
