// Package actors holds the concurrent workloads driven by the stress test.
// Each actor loops until stopped, exercising one slice of the workflow
// engine against a shared document set. Typed domain errors are expected
// under contention and never fail the run; anything else aborts it.
package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"internflow/document"
	"internflow/logbook"
)

// expected reports whether err is a contention outcome the engine is
// designed to produce when actors race.
func expected(err error) bool {
	var (
		invalid      *document.InvalidTransitionError
		forbidden    *document.ForbiddenError
		precondition *document.PreconditionError
		conflict     *document.ConcurrentModificationError
	)
	return errors.As(err, &invalid) ||
		errors.As(err, &forbidden) ||
		errors.As(err, &precondition) ||
		errors.As(err, &conflict) ||
		errors.Is(err, document.ErrNotFound)
}

// Submitter keeps pushing a CS05 forward from draft or rejected. Racing
// submitters on the same document exercise the compare-and-set; only one
// per cycle can win.
func Submitter(ctx context.Context, svc *document.Service, docID, studentID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := svc.Apply(ctx, document.ApplyParams{
			DocumentID: docID,
			Action:     document.ActionSubmit,
			ActorRole:  document.RoleStudent,
			ActorID:    studentID,
		})
		if err != nil && !expected(err) {
			return fmt.Errorf("submitter: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Reviewer claims submitted documents for review. Several reviewers race
// on the same document; the compare-and-set lets exactly one claim win.
func Reviewer(ctx context.Context, svc *document.Service, docID, staffID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := svc.Apply(ctx, document.ApplyParams{
			DocumentID: docID,
			Action:     document.ActionReview,
			ActorRole:  document.RoleStaff,
			ActorID:    staffID,
		})
		if err != nil && !expected(err) {
			return fmt.Errorf("reviewer: %w", err)
		}
		time.Sleep(time.Duration(15+rand.Intn(30)) * time.Millisecond)
	}
}

// Decider settles documents under review, mostly rejecting so the
// submit/review/reject cycle keeps turning for the whole run.
func Decider(ctx context.Context, svc *document.Service, docID, headID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		action := document.ActionReject
		comment := "needs revision"
		if rand.Intn(10) == 0 {
			action = document.ActionApprove
			comment = ""
		}
		_, err := svc.Apply(ctx, document.ApplyParams{
			DocumentID: docID,
			Action:     action,
			ActorRole:  document.RoleHead,
			ActorID:    headID,
			Comment:    comment,
		})
		if err != nil && !expected(err) {
			return fmt.Errorf("decider: %w", err)
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Interloper replays actions with the wrong role and against impossible
// statuses. Every call must come back as a typed rejection; a success here
// is a guard hole.
func Interloper(ctx context.Context, svc *document.Service, docID string, stop <-chan struct{}) error {
	attempts := []document.ApplyParams{
		{DocumentID: docID, Action: document.ActionApprove, ActorRole: document.RoleStudent},
		{DocumentID: docID, Action: document.ActionReview, ActorRole: document.RoleSupervisor},
		{DocumentID: docID, Action: document.ActionDownload, ActorRole: document.RoleStudent},
		{DocumentID: docID, Action: document.ActionRecordResult, ActorRole: document.RoleStaff},
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		params := attempts[rand.Intn(len(attempts))]
		if _, err := svc.Apply(ctx, params); err == nil {
			return fmt.Errorf("interloper: %s as %s slipped through", params.Action, params.ActorRole)
		} else if !expected(err) {
			return fmt.Errorf("interloper: %w", err)
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// LogbookWriter records daily hours for the student. The unique day
// constraint makes concurrent duplicates fail cleanly.
func LogbookWriter(ctx context.Context, svc *logbook.Service, studentID string, stop <-chan struct{}) error {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := svc.Create(ctx, logbook.CreateParams{
			OwnerID:     studentID,
			Day:         day.AddDate(0, 0, rand.Intn(365)),
			Hours:       float64(1 + rand.Intn(8)),
			Description: "stress entry",
		})
		if err != nil {
			var pgErr *pgconn.PgError
			if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
				return fmt.Errorf("logbook writer: %w", err)
			}
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// OutboxWorker consumes pending outbox messages with SKIP LOCKED, randomly
// failing some to exercise the attempts counter.
func OutboxWorker(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT id FROM outbox WHERE status='pending' ORDER BY created_at FOR UPDATE SKIP LOCKED LIMIT 10`)
		if err != nil {
			_ = tx.Rollback(ctx)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		ids := make([]string, 0, 10)
		for rows.Next() {
			var id string
			_ = rows.Scan(&id)
			ids = append(ids, id)
		}
		rows.Close()
		for _, id := range ids {
			if rand.Intn(10) == 0 {
				_, _ = tx.Exec(ctx, `UPDATE outbox SET attempts=attempts+1 WHERE id=$1`, id)
				continue
			}
			_, _ = tx.Exec(ctx, `UPDATE outbox SET status='processed' WHERE id=$1`, id)
		}
		_ = tx.Commit(ctx)
		time.Sleep(100 * time.Millisecond)
	}
}
