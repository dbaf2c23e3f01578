// Package logbook manages daily work-hour entries. Access to the facility
// is gated upstream by the eligibility package; this service only enforces
// entry-level rules and the supervisor review flow.
package logbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"internflow/policy"
)

// ErrReviewForbidden signals the reviewer lacks the supervisor role.
var ErrReviewForbidden = errors.New("logbook: only supervisors review entries")

type Service struct {
	repo   Repository
	policy policy.Policy
	idGen  func() string
}

func NewService(repo Repository, pol policy.Policy) *Service {
	return &Service{repo: repo, policy: pol, idGen: uuid.NewString}
}

// WithIDGenerator overrides entry id generation, for tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

type CreateParams struct {
	OwnerID     string
	Day         time.Time
	Hours       float64
	Description string
}

// Create records a pending entry for one day of work.
func (s *Service) Create(ctx context.Context, params CreateParams) (Entry, error) {
	if params.OwnerID == "" {
		return Entry{}, fmt.Errorf("logbook: missing owner id")
	}
	if params.Day.IsZero() {
		return Entry{}, fmt.Errorf("logbook: missing day")
	}
	if params.Hours <= 0 {
		return Entry{}, fmt.Errorf("logbook: hours must be positive")
	}
	if params.Hours > s.policy.MaxDailyHours {
		return Entry{}, fmt.Errorf("logbook: hours exceed daily cap of %.1f", s.policy.MaxDailyHours)
	}

	return s.repo.Create(ctx, Entry{
		ID:          s.idGen(),
		OwnerID:     params.OwnerID,
		Day:         params.Day,
		Hours:       params.Hours,
		Description: params.Description,
		Status:      StatusPending,
	})
}

// List returns a student's entries in day order.
func (s *Service) List(ctx context.Context, ownerID string) ([]Entry, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

type ReviewParams struct {
	EntryID      string
	ReviewerID   string
	IsSupervisor bool
	Approve      bool
}

// Review settles an entry as approved or rejected.
func (s *Service) Review(ctx context.Context, params ReviewParams) (Entry, error) {
	if params.EntryID == "" {
		return Entry{}, fmt.Errorf("logbook: missing entry id")
	}
	if !params.IsSupervisor {
		return Entry{}, ErrReviewForbidden
	}

	next := StatusRejected
	if params.Approve {
		next = StatusApproved
	}
	return s.repo.Review(ctx, params.EntryID, next, params.ReviewerID)
}

// ApprovedHours reports the supervisor-approved total consumed by the
// eligibility gate.
func (s *Service) ApprovedHours(ctx context.Context, ownerID string) (float64, error) {
	return s.repo.ApprovedHours(ctx, ownerID)
}
