// Package document implements the internship lifecycle workflow engine: a
// declarative status transition table consulted by a single engine, an
// append-only status history per document, and a domain event per
// successful transition.
package document

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"internflow/evaluation"
	"internflow/policy"
)

// Service validates and applies one transition at a time against the
// document store. It performs no locking of its own; atomicity comes from
// the store's compare-and-set contract.
type Service struct {
	store      Store
	dispatcher Dispatcher
	scorer     *evaluation.Engine
	policy     policy.Policy
	idGen      func() string
	now        func() time.Time
}

// NewService builds the workflow engine. dispatcher may be nil when no
// notification collaborator is wired (the store-level outbox still records
// every transition).
func NewService(store Store, dispatcher Dispatcher, pol policy.Policy) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		scorer:     evaluation.NewEngine(pol),
		policy:     pol,
		idGen:      uuid.NewString,
		now:        time.Now,
	}
}

// WithIDGenerator overrides document id generation, for tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

// WithClock overrides the timestamp source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateParams describes a new document instance.
type CreateParams struct {
	Type      Type
	OwnerID   string
	ActorRole Role
	ActorID   string
	Payload   Payload
	Comment   string
}

// Create persists a fresh record in its type's initial status with a single
// history entry. Records are never deleted afterwards, only terminally
// statused.
func (s *Service) Create(ctx context.Context, params CreateParams) (Record, error) {
	if params.OwnerID == "" {
		return Record{}, fmt.Errorf("document: missing owner id")
	}
	if !validRole(params.ActorRole) {
		return Record{}, fmt.Errorf("document: invalid actor role %q", params.ActorRole)
	}
	initial, err := InitialStatus(params.Type)
	if err != nil {
		return Record{}, err
	}

	ts := s.now()
	rec := Record{
		ID:      s.idGen(),
		Type:    params.Type,
		OwnerID: params.OwnerID,
		Status:  initial,
		Payload: params.Payload,
		History: []HistoryEntry{{
			Status:    initial,
			ActorRole: params.ActorRole,
			ActorID:   params.ActorID,
			Timestamp: ts,
			Comment:   params.Comment,
		}},
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	return s.store.Create(ctx, rec)
}

// ApplyParams carries one transition attempt.
type ApplyParams struct {
	DocumentID string
	Action     Action
	ActorRole  Role
	ActorID    string
	Comment    string
	// Payload, when non-nil, replaces the payload fields the action carries
	// (upload metadata, rubric for record_result, rejection reason).
	Payload *Payload
}

// Apply validates a single transition and commits it via compare-and-set.
// Guards run in a fixed order: actor role, outgoing edge, type-specific
// precondition. Validation is fully evaluated before any mutation, so a
// failed attempt never changes the stored record. Replaying an action whose
// non-looping edge already produced the current status is an idempotent
// no-op returning the record unchanged.
func (s *Service) Apply(ctx context.Context, params ApplyParams) (Record, error) {
	if params.DocumentID == "" {
		return Record{}, fmt.Errorf("document: missing document id")
	}
	if !validRole(params.ActorRole) {
		return Record{}, &ForbiddenError{Action: params.Action, Role: params.ActorRole}
	}

	rec, err := s.store.Get(ctx, params.DocumentID)
	if err != nil {
		return Record{}, err
	}

	permitted := rolesForAction(rec.Type, params.Action)
	if len(permitted) == 0 {
		return Record{}, &InvalidTransitionError{Type: rec.Type, Status: rec.Status, Action: params.Action}
	}
	if !roleAllowed(permitted, params.ActorRole) {
		return Record{}, &ForbiddenError{Type: rec.Type, Status: rec.Status, Action: params.Action, Role: params.ActorRole}
	}

	rule, ok := lookup(rec.Type, rec.Status, params.Action)
	if !ok {
		if satisfiedBy(rec.Type, rec.Status, params.Action) {
			// Retried call after a successful transition; safe no-op.
			return rec, nil
		}
		return Record{}, &InvalidTransitionError{Type: rec.Type, Status: rec.Status, Action: params.Action}
	}
	if !roleAllowed(rule.Roles, params.ActorRole) {
		return Record{}, &ForbiddenError{Type: rec.Type, Status: rec.Status, Action: params.Action, Role: params.ActorRole}
	}

	next := rec
	next.Payload = mergePayload(rec.Payload, params.Payload)
	if rule.Guard != nil {
		if perr := rule.Guard(next, s.policy); perr != nil {
			return Record{}, perr
		}
	}

	if params.Action == ActionRecordResult {
		result, serr := s.scorer.Score(*next.Payload.Rubric)
		if serr != nil {
			return Record{}, &PreconditionError{
				Type:   rec.Type,
				Status: rec.Status,
				Action: params.Action,
				Field:  "rubric",
				Reason: serr.Error(),
			}
		}
		next.Payload.Result = &result
	}

	ts := s.now()
	next.Status = rule.To
	next.UpdatedAt = ts
	next.History = append(append([]HistoryEntry{}, rec.History...), HistoryEntry{
		Status:    rule.To,
		ActorRole: params.ActorRole,
		ActorID:   params.ActorID,
		Timestamp: ts,
		Comment:   params.Comment,
	})

	stored, err := s.store.CompareAndSet(ctx, rec.ID, rec.Status, next)
	if err != nil {
		return Record{}, err
	}

	if s.dispatcher != nil {
		// Fire-and-forget: the engine does not depend on delivery.
		_ = s.dispatcher.Publish(ctx, Event{
			DocumentID:   stored.ID,
			DocumentType: stored.Type,
			FromStatus:   rec.Status,
			ToStatus:     stored.Status,
			ActorRole:    params.ActorRole,
			Timestamp:    ts,
		})
	}

	return stored, nil
}

// mergePayload overlays the fields supplied with the action onto the stored
// payload. Zero-value fields in the overlay leave the stored value intact.
func mergePayload(base Payload, overlay *Payload) Payload {
	if overlay == nil {
		return base
	}
	out := base
	if overlay.CompanyName != "" {
		out.CompanyName = overlay.CompanyName
	}
	if overlay.StartDate != nil {
		out.StartDate = overlay.StartDate
	}
	if overlay.EndDate != nil {
		out.EndDate = overlay.EndDate
	}
	if overlay.Reason != "" {
		out.Reason = overlay.Reason
	}
	if overlay.Rubric != nil {
		out.Rubric = overlay.Rubric
	}
	if len(overlay.Extra) > 0 {
		merged := make(map[string]any, len(base.Extra)+len(overlay.Extra))
		for k, v := range base.Extra {
			merged[k] = v
		}
		for k, v := range overlay.Extra {
			merged[k] = v
		}
		out.Extra = merged
	}
	return out
}
