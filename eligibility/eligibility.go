// Package eligibility derives composite access flags from the current
// statuses of a student's lifecycle documents and their approved hour
// total. The gate itself is a pure function of the snapshot passed in; it
// holds no state and performs no I/O.
package eligibility

import (
	"internflow/document"
	"internflow/policy"
)

// Requirement names the earliest unmet prerequisite blocking a student, in
// document order, to simplify UI messaging.
type Requirement string

const (
	RequirementNone               Requirement = ""
	RequirementCS05Approval       Requirement = "cs05_approval"
	RequirementAcceptanceApproval Requirement = "acceptance_approval"
	RequirementApprovedHours      Requirement = "approved_hours"
)

// Snapshot is the derived tuple of current statuses plus the running
// supervisor-approved hour total. It is computed on demand and never cached
// beyond a single request, since any underlying document can change
// concurrently.
type Snapshot struct {
	CS05Status           document.Status
	AcceptanceStatus     document.Status
	ReferralStatus       document.Status
	EvaluationStatus     document.Status
	ApprovedHours        float64
	NotificationsEnabled bool
}

// Flags is the set of composite permissions the gate answers with.
type Flags struct {
	CanAccessLogbook    bool
	CanRequestReferral  bool
	CanSendEvaluation   bool
	CanResendEvaluation bool
	BlockedBy           Requirement
}

// Compute derives all access flags from the snapshot. Every flag is a
// deterministic boolean of the inputs, so the gate can be tested with
// literal snapshots.
func Compute(snap Snapshot, pol policy.Policy) Flags {
	var flags Flags

	cs05Approved := snap.CS05Status == document.StatusApproved
	acceptanceApproved := snap.AcceptanceStatus == document.StatusApproved
	hoursMet := snap.ApprovedHours >= pol.MinApprovedHours

	flags.CanAccessLogbook = cs05Approved && acceptanceApproved
	flags.CanRequestReferral = flags.CanAccessLogbook && acceptanceApproved
	// A document gate lost upstream blocks everything downstream, so the
	// evaluation flags also require the approved prerequisites.
	flags.CanSendEvaluation = flags.CanAccessLogbook && snap.NotificationsEnabled && hoursMet
	flags.CanResendEvaluation = flags.CanSendEvaluation &&
		(snap.EvaluationStatus == document.StatusSent || snap.EvaluationStatus == document.StatusCompleted)

	switch {
	case !cs05Approved:
		flags.BlockedBy = RequirementCS05Approval
	case !acceptanceApproved:
		flags.BlockedBy = RequirementAcceptanceApproval
	case !hoursMet:
		flags.BlockedBy = RequirementApprovedHours
	}

	return flags
}
