package document

import (
	"fmt"
	"time"

	"internflow/policy"
)

// guard is a type-specific precondition evaluated after the role and edge
// checks pass. It must not mutate the record.
type guard func(rec Record, pol policy.Policy) *PreconditionError

type transitionKey struct {
	Type   Type
	From   Status
	Action Action
}

type transitionRule struct {
	To    Status
	Roles []Role
	Guard guard
}

// transitions is the single declarative source of every legal edge. Adding
// a row here is the only way to make a new transition reachable.
var transitions = map[transitionKey]transitionRule{
	// CS05: draft -> submitted -> under_review -> approved|rejected, with a
	// resubmission loop back from rejected.
	{TypeCS05, StatusDraft, ActionSubmit}:       {To: StatusSubmitted, Roles: []Role{RoleStudent}},
	{TypeCS05, StatusRejected, ActionSubmit}:    {To: StatusSubmitted, Roles: []Role{RoleStudent}},
	{TypeCS05, StatusSubmitted, ActionReview}:   {To: StatusUnderReview, Roles: []Role{RoleStaff}},
	{TypeCS05, StatusUnderReview, ActionApprove}: {
		To:    StatusApproved,
		Roles: []Role{RoleHead},
		Guard: guardCS05Approval,
	},
	{TypeCS05, StatusUnderReview, ActionReject}: {To: StatusRejected, Roles: []Role{RoleStaff, RoleHead}},

	// Acceptance letter: uploaded by the student, reviewed by staff, with a
	// re-upload loop back from rejected.
	{TypeAcceptanceLetter, StatusNotUploaded, ActionUpload}: {To: StatusPending, Roles: []Role{RoleStudent}},
	{TypeAcceptanceLetter, StatusRejected, ActionUpload}:    {To: StatusPending, Roles: []Role{RoleStudent}},
	{TypeAcceptanceLetter, StatusPending, ActionApprove}:    {To: StatusApproved, Roles: []Role{RoleStaff, RoleHead}},
	{TypeAcceptanceLetter, StatusPending, ActionReject}:     {To: StatusRejected, Roles: []Role{RoleStaff, RoleHead}},

	// Referral letter: system-generated once prerequisites are met, then
	// collected by the student. No rejection path.
	{TypeReferralLetter, StatusAwaitingPrerequisite, ActionIssue}: {To: StatusReady, Roles: []Role{RoleStaff}},
	{TypeReferralLetter, StatusReady, ActionDownload}:             {To: StatusDownloaded, Roles: []Role{RoleStudent}},

	// Evaluation request: sent by the student, completed once the
	// supervisor records a rubric with a decision. Resend loops on sent.
	{TypeEvaluationRequest, StatusNotSent, ActionSubmit}: {To: StatusSent, Roles: []Role{RoleStudent}},
	{TypeEvaluationRequest, StatusSent, ActionResend}:    {To: StatusSent, Roles: []Role{RoleStudent}},
	{TypeEvaluationRequest, StatusSent, ActionRecordResult}: {
		To:    StatusCompleted,
		Roles: []Role{RoleSupervisor},
		Guard: guardEvaluationResult,
	},
}

// initialStatuses maps each type to the status a fresh record is created in.
var initialStatuses = map[Type]Status{
	TypeCS05:              StatusDraft,
	TypeAcceptanceLetter:  StatusNotUploaded,
	TypeReferralLetter:    StatusAwaitingPrerequisite,
	TypeEvaluationRequest: StatusNotSent,
}

// InitialStatus returns the creation status for the given type.
func InitialStatus(t Type) (Status, error) {
	s, ok := initialStatuses[t]
	if !ok {
		return "", fmt.Errorf("document: unknown type %q", t)
	}
	return s, nil
}

func lookup(t Type, from Status, action Action) (transitionRule, bool) {
	rule, ok := transitions[transitionKey{t, from, action}]
	return rule, ok
}

// rolesForAction returns the union of roles permitted to perform action on
// type t from any status. An empty result means the action is not part of
// the type's action set at all.
func rolesForAction(t Type, action Action) []Role {
	seen := map[Role]bool{}
	var roles []Role
	for key, rule := range transitions {
		if key.Type != t || key.Action != action {
			continue
		}
		for _, r := range rule.Roles {
			if !seen[r] {
				seen[r] = true
				roles = append(roles, r)
			}
		}
	}
	return roles
}

// satisfiedBy reports whether a replay of action against a record already
// sitting in the action's resulting status can be treated as an idempotent
// no-op. Looping edges (resend, re-upload) never qualify: replaying them is
// a real transition that appends history.
func satisfiedBy(t Type, current Status, action Action) bool {
	for key, rule := range transitions {
		if key.Type != t || key.Action != action {
			continue
		}
		if rule.To == current && key.From != rule.To {
			return true
		}
	}
	return false
}

func roleAllowed(roles []Role, r Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

func guardCS05Approval(rec Record, pol policy.Policy) *PreconditionError {
	fail := func(field, reason string) *PreconditionError {
		return &PreconditionError{
			Type:   rec.Type,
			Status: rec.Status,
			Action: ActionApprove,
			Field:  field,
			Reason: reason,
		}
	}

	if rec.Payload.CompanyName == "" {
		return fail("company_name", "company name is required")
	}
	if rec.Payload.StartDate == nil || rec.Payload.EndDate == nil {
		return fail("dates", "start and end dates are required")
	}
	span := rec.Payload.EndDate.Sub(*rec.Payload.StartDate)
	minSpan := time.Duration(pol.MinInternshipDays) * 24 * time.Hour
	if span < minSpan {
		return fail("dates", fmt.Sprintf("internship span is shorter than %d days", pol.MinInternshipDays))
	}
	return nil
}

func guardEvaluationResult(rec Record, pol policy.Policy) *PreconditionError {
	fail := func(field, reason string) *PreconditionError {
		return &PreconditionError{
			Type:   rec.Type,
			Status: rec.Status,
			Action: ActionRecordResult,
			Field:  field,
			Reason: reason,
		}
	}

	if rec.Payload.Rubric == nil {
		return fail("rubric", "rubric is required")
	}
	if rec.Payload.Rubric.SupervisorDecision == nil {
		return fail("supervisor_decision", "supervisor decision is required")
	}
	return nil
}
