package document

import (
	"context"
	"time"

	"internflow/evaluation"
)

// Type identifies which lifecycle artifact a record represents. All four
// types belonging to one internship share one owner.
type Type string

const (
	TypeCS05              Type = "CS05"
	TypeAcceptanceLetter  Type = "ACCEPTANCE_LETTER"
	TypeReferralLetter    Type = "REFERRAL_LETTER"
	TypeEvaluationRequest Type = "EVALUATION_REQUEST"
)

// Types lists every document type in prerequisite order.
func Types() []Type {
	return []Type{TypeCS05, TypeAcceptanceLetter, TypeReferralLetter, TypeEvaluationRequest}
}

// Status is a per-type lifecycle state. The full set is shared across types
// but each type only ever holds the states its transition table reaches.
type Status string

const (
	// CS05
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	// Acceptance letter
	StatusNotUploaded Status = "not_uploaded"
	StatusPending     Status = "pending"
	// Referral letter
	StatusAwaitingPrerequisite Status = "awaiting_prerequisite"
	StatusReady                Status = "ready"
	StatusDownloaded           Status = "downloaded"
	// Evaluation request
	StatusNotSent   Status = "not_sent"
	StatusSent      Status = "sent"
	StatusCompleted Status = "completed"
)

// Action is a verb a caller may attempt against a document.
type Action string

const (
	ActionSubmit       Action = "submit"
	ActionReview       Action = "review"
	ActionApprove      Action = "approve"
	ActionReject       Action = "reject"
	ActionUpload       Action = "upload"
	ActionIssue        Action = "issue"
	ActionDownload     Action = "download"
	ActionResend       Action = "resend"
	ActionRecordResult Action = "record_result"
)

// Role is the position of the actor attempting an action.
type Role string

const (
	RoleStudent    Role = "student"
	RoleStaff      Role = "staff"
	RoleHead       Role = "head"
	RoleSupervisor Role = "supervisor"
)

func validRole(r Role) bool {
	switch r {
	case RoleStudent, RoleStaff, RoleHead, RoleSupervisor:
		return true
	default:
		return false
	}
}

// HistoryEntry is one element of a document's append-only status timeline.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	ActorRole Role      `json:"actor_role"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Comment   string    `json:"comment,omitempty"`
}

// Payload carries the type-specific data attached to a document. The
// workflow engine only inspects the fields its guard predicates need; the
// rest is owned by the calling layer.
type Payload struct {
	CompanyName string             `json:"company_name,omitempty"`
	StartDate   *time.Time         `json:"start_date,omitempty"`
	EndDate     *time.Time         `json:"end_date,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Rubric      *evaluation.Rubric `json:"rubric,omitempty"`
	Result      *evaluation.Result `json:"result,omitempty"`
	Extra       map[string]any     `json:"extra,omitempty"`
}

// Record is one persisted document instance. Status always equals the
// status of the most recent history entry, and history is never empty after
// creation.
type Record struct {
	ID        string
	Type      Type
	OwnerID   string
	Status    Status
	Payload   Payload
	History   []HistoryEntry
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LastEntry returns the most recent history entry.
func (r Record) LastEntry() HistoryEntry {
	if len(r.History) == 0 {
		return HistoryEntry{}
	}
	return r.History[len(r.History)-1]
}

// Event is the domain event emitted once per successful transition for
// notification collaborators. Delivery is fire-and-forget.
type Event struct {
	DocumentID   string    `json:"document_id"`
	DocumentType Type      `json:"document_type"`
	FromStatus   Status    `json:"from_status"`
	ToStatus     Status    `json:"to_status"`
	ActorRole    Role      `json:"actor_role"`
	Timestamp    time.Time `json:"timestamp"`
}

// Dispatcher publishes domain events. The engine never awaits or retries
// delivery on the collaborator's behalf.
type Dispatcher interface {
	Publish(ctx context.Context, ev Event) error
}
