package document

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store with the same compare-and-set
// semantics as the Postgres implementation. It backs unit tests and local
// development without a database.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Create(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(rec.History) == 0 {
		return Record{}, fmt.Errorf("document: create requires an initial history entry")
	}
	if _, exists := s.records[rec.ID]; exists {
		return Record{}, fmt.Errorf("document: duplicate id %s", rec.ID)
	}
	s.records[rec.ID] = cloneRecord(rec)
	return rec, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) CompareAndSet(ctx context.Context, id string, expected Status, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if current.Status != expected {
		return Record{}, &ConcurrentModificationError{ID: id, Expected: expected}
	}
	s.records[id] = cloneRecord(rec)
	return rec, nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Record{}
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneRecord(rec Record) Record {
	out := rec
	out.History = append([]HistoryEntry{}, rec.History...)
	if rec.Payload.Extra != nil {
		extra := make(map[string]any, len(rec.Payload.Extra))
		for k, v := range rec.Payload.Extra {
			extra[k] = v
		}
		out.Payload.Extra = extra
	}
	return out
}
