package document

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record exists for the given identifier.
var ErrNotFound = errors.New("document: not found")

// InvalidTransitionError reports that no edge exists for the requested
// action from the document's current status. Callers should refresh their
// view of the record and retry.
type InvalidTransitionError struct {
	Type   Type
	Status Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("document: no %s transition for %s in status %s", e.Action, e.Type, e.Status)
}

// ForbiddenError reports that the actor's role is not permitted to perform
// the action on this document type. Not retryable.
type ForbiddenError struct {
	Type   Type
	Status Status
	Action Action
	Role   Role
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("document: role %s may not %s a %s document", e.Role, e.Action, e.Type)
}

// PreconditionError reports that the payload fails a type-specific business
// rule guarding the transition. Recoverable by correcting the input.
type PreconditionError struct {
	Type   Type
	Status Status
	Action Action
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("document: %s %s precondition failed: %s: %s", e.Type, e.Action, e.Field, e.Reason)
}

// ConcurrentModificationError reports that a compare-and-set lost a race:
// the record's stored status no longer matches the status the transition
// was validated against. Recoverable by re-reading and retrying once.
type ConcurrentModificationError struct {
	ID       string
	Expected Status
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("document: %s no longer in status %s", e.ID, e.Expected)
}
