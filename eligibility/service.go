package eligibility

import (
	"context"
	"fmt"

	"internflow/document"
	"internflow/policy"
)

// HourSource reports the supervisor-approved hour total for a student.
type HourSource interface {
	ApprovedHours(ctx context.Context, ownerID string) (float64, error)
}

// Service resolves a fresh LifecycleSnapshot from the document store and
// hour source per request, then delegates to the pure gate.
type Service struct {
	store  document.Store
	hours  HourSource
	policy policy.Policy
}

func NewService(store document.Store, hours HourSource, pol policy.Policy) *Service {
	return &Service{store: store, hours: hours, policy: pol}
}

// ComputeAccess answers "what may this student do now" from current state.
func (s *Service) ComputeAccess(ctx context.Context, studentID string) (Flags, error) {
	if studentID == "" {
		return Flags{}, fmt.Errorf("eligibility: missing student id")
	}

	snap, err := s.snapshot(ctx, studentID)
	if err != nil {
		return Flags{}, err
	}
	return Compute(snap, s.policy), nil
}

// Snapshot assembles the current statuses and hour total for a student. A
// document type the student has not created yet contributes its zero
// status, which no flag treats as approved.
func (s *Service) snapshot(ctx context.Context, studentID string) (Snapshot, error) {
	records, err := s.store.ListByOwner(ctx, studentID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("eligibility: list documents: %w", err)
	}

	snap := Snapshot{NotificationsEnabled: s.policy.NotificationsEnabled}
	for _, rec := range records {
		switch rec.Type {
		case document.TypeCS05:
			snap.CS05Status = rec.Status
		case document.TypeAcceptanceLetter:
			snap.AcceptanceStatus = rec.Status
		case document.TypeReferralLetter:
			snap.ReferralStatus = rec.Status
		case document.TypeEvaluationRequest:
			snap.EvaluationStatus = rec.Status
		}
	}

	if s.hours != nil {
		total, err := s.hours.ApprovedHours(ctx, studentID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("eligibility: approved hours: %w", err)
		}
		snap.ApprovedHours = total
	}

	return snap, nil
}
