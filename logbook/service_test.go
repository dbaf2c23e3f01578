package logbook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"internflow/policy"
)

type fakeRepository struct {
	entries map[string]Entry
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{entries: make(map[string]Entry)}
}

func (r *fakeRepository) Create(ctx context.Context, e Entry) (Entry, error) {
	for _, existing := range r.entries {
		if existing.OwnerID == e.OwnerID && existing.Day.Equal(e.Day) {
			return Entry{}, fmt.Errorf("logbook: duplicate day")
		}
	}
	r.entries[e.ID] = e
	return e, nil
}

func (r *fakeRepository) ListByOwner(ctx context.Context, ownerID string) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (r *fakeRepository) Review(ctx context.Context, id string, status Status, reviewerID string) (Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Status = status
	e.ReviewedBy = &reviewerID
	r.entries[id] = e
	return e, nil
}

func (r *fakeRepository) ApprovedHours(ctx context.Context, ownerID string) (float64, error) {
	total := 0.0
	for _, e := range r.entries {
		if e.OwnerID == ownerID && e.Status == StatusApproved {
			total += e.Hours
		}
	}
	return total, nil
}

func day(offset int) time.Time {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestCreate(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, policy.Default())
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateParams{OwnerID: "student-1", Day: day(0), Hours: 8, Description: "onboarding"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.Status != StatusPending {
		t.Fatalf("expected pending, got %s", entry.Status)
	}
	if entry.ID == "" {
		t.Fatal("expected generated id")
	}

	cases := []struct {
		name   string
		params CreateParams
	}{
		{"missing owner", CreateParams{Day: day(1), Hours: 8}},
		{"missing day", CreateParams{OwnerID: "student-1", Hours: 8}},
		{"zero hours", CreateParams{OwnerID: "student-1", Day: day(1), Hours: 0}},
		{"negative hours", CreateParams{OwnerID: "student-1", Day: day(1), Hours: -2}},
		{"above daily cap", CreateParams{OwnerID: "student-1", Day: day(1), Hours: 12.5}},
		{"duplicate day", CreateParams{OwnerID: "student-1", Day: day(0), Hours: 8}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.params); err == nil {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}

func TestReview(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, policy.Default())
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateParams{OwnerID: "student-1", Day: day(0), Hours: 8})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Review(ctx, ReviewParams{EntryID: entry.ID, ReviewerID: "staff-1", IsSupervisor: false, Approve: true}); !errors.Is(err, ErrReviewForbidden) {
		t.Fatalf("expected ErrReviewForbidden, got %v", err)
	}

	reviewed, err := svc.Review(ctx, ReviewParams{EntryID: entry.ID, ReviewerID: "supervisor-1", IsSupervisor: true, Approve: true})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != StatusApproved || reviewed.ReviewedBy == nil || *reviewed.ReviewedBy != "supervisor-1" {
		t.Fatalf("unexpected reviewed entry: %+v", reviewed)
	}

	if _, err := svc.Review(ctx, ReviewParams{EntryID: "missing", ReviewerID: "supervisor-1", IsSupervisor: true}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApprovedHours(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, policy.Default())
	ctx := context.Background()

	for i, hours := range []float64{8, 6, 7.5} {
		entry, err := svc.Create(ctx, CreateParams{OwnerID: "student-1", Day: day(i), Hours: hours})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		// Leave the last entry pending; only approved hours count.
		if i < 2 {
			if _, err := svc.Review(ctx, ReviewParams{EntryID: entry.ID, ReviewerID: "supervisor-1", IsSupervisor: true, Approve: true}); err != nil {
				t.Fatalf("review %d: %v", i, err)
			}
		}
	}

	total, err := svc.ApprovedHours(ctx, "student-1")
	if err != nil {
		t.Fatalf("approved hours: %v", err)
	}
	if total != 14 {
		t.Fatalf("expected 14 approved hours, got %v", total)
	}
}
