package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// OutboxTopicStatusChanged is enqueued once per committed transition.
	OutboxTopicStatusChanged = "document.status_changed"
	// OutboxTopicCreated is enqueued when a document instance is created.
	OutboxTopicCreated = "document.created"
)

// PGStore implements Store on PostgreSQL. Every write captures the status
// row, the history append, and the outbox entry in one transaction, so a
// transition is never partially applied. The compare-and-set is the
// conditional UPDATE on (id, status): the loser of a race matches zero rows.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Create(ctx context.Context, rec Record) (Record, error) {
	if len(rec.History) == 0 {
		return Record{}, fmt.Errorf("document: create requires an initial history entry")
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return Record{}, fmt.Errorf("document: marshal payload: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("document: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
        INSERT INTO documents (id, doc_type, owner_id, status, payload)
        VALUES ($1, $2, $3, $4, $5::jsonb)
        RETURNING created_at, updated_at
    `
	if err := tx.QueryRow(ctx, insertSQL, rec.ID, rec.Type, rec.OwnerID, rec.Status, payload).
		Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, fmt.Errorf("document: insert: %w", err)
	}

	if err := appendEvent(ctx, tx, rec.ID, 1, rec.History[0]); err != nil {
		return Record{}, err
	}

	if err := enqueueOutbox(ctx, tx, OutboxTopicCreated, map[string]any{
		"document_id":   rec.ID,
		"document_type": rec.Type,
		"owner_id":      rec.OwnerID,
		"status":        rec.Status,
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("document: commit create: %w", err)
	}

	return rec, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Record, error) {
	const query = `
        SELECT id, doc_type, owner_id, status, payload, created_at, updated_at
        FROM documents
        WHERE id = $1
    `
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("document: get: %w", err)
	}

	histories, err := s.loadHistories(ctx, []string{rec.ID})
	if err != nil {
		return Record{}, err
	}
	rec.History = histories[rec.ID]
	return rec, nil
}

func (s *PGStore) CompareAndSet(ctx context.Context, id string, expected Status, rec Record) (Record, error) {
	if len(rec.History) == 0 {
		return Record{}, fmt.Errorf("document: compare-and-set requires history")
	}
	entry := rec.History[len(rec.History)-1]

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return Record{}, fmt.Errorf("document: marshal payload: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("document: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const casSQL = `
        UPDATE documents
        SET status = $3,
            payload = $4::jsonb,
            updated_at = now()
        WHERE id = $1 AND status = $2
        RETURNING created_at, updated_at
    `
	if err := tx.QueryRow(ctx, casSQL, id, expected, rec.Status, payload).
		Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, s.classifyStaleWrite(ctx, id, expected)
		}
		return Record{}, fmt.Errorf("document: compare-and-set: %w", err)
	}

	if err := appendEvent(ctx, tx, id, len(rec.History), entry); err != nil {
		return Record{}, err
	}

	if err := enqueueOutbox(ctx, tx, OutboxTopicStatusChanged, map[string]any{
		"document_id":   id,
		"document_type": rec.Type,
		"previous":      expected,
		"next":          rec.Status,
		"actor_role":    entry.ActorRole,
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("document: commit transition: %w", err)
	}

	return rec, nil
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	const query = `
        SELECT id, doc_type, owner_id, status, payload, created_at, updated_at
        FROM documents
        WHERE owner_id = $1
        ORDER BY created_at
    `
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("document: list by owner: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	ids := []string{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("document: scan record: %w", err)
		}
		records = append(records, rec)
		ids = append(ids, rec.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document: list rows: %w", err)
	}

	histories, err := s.loadHistories(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].History = histories[records[i].ID]
	}
	return records, nil
}

// classifyStaleWrite distinguishes a missing record from a lost race after
// the conditional update matched nothing.
func (s *PGStore) classifyStaleWrite(ctx context.Context, id string, expected Status) error {
	var current Status
	err := s.pool.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("document: inspect stale write: %w", err)
	}
	return &ConcurrentModificationError{ID: id, Expected: expected}
}

func (s *PGStore) loadHistories(ctx context.Context, ids []string) (map[string][]HistoryEntry, error) {
	out := make(map[string][]HistoryEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	const query = `
        SELECT document_id, status, actor_role, actor_id, ts, comment
        FROM document_events
        WHERE document_id = ANY($1)
        ORDER BY document_id, seq
    `
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("document: load histories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			docID string
			entry HistoryEntry
		)
		if err := rows.Scan(&docID, &entry.Status, &entry.ActorRole, &entry.ActorID, &entry.Timestamp, &entry.Comment); err != nil {
			return nil, fmt.Errorf("document: scan history: %w", err)
		}
		out[docID] = append(out[docID], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document: history rows: %w", err)
	}
	return out, nil
}

func appendEvent(ctx context.Context, tx pgx.Tx, docID string, seq int, entry HistoryEntry) error {
	const insertSQL = `
        INSERT INTO document_events (document_id, seq, status, actor_role, actor_id, ts, comment)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	if _, err := tx.Exec(ctx, insertSQL, docID, seq, entry.Status, entry.ActorRole, entry.ActorID, entry.Timestamp, entry.Comment); err != nil {
		return fmt.Errorf("document: insert event: %w", err)
	}
	return nil
}

func enqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("document: marshal outbox payload: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO outbox (topic, payload) VALUES ($1, $2::jsonb)`, topic, body); err != nil {
		return fmt.Errorf("document: enqueue outbox: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec     Record
		payload []byte
	)
	if err := row.Scan(&rec.ID, &rec.Type, &rec.OwnerID, &rec.Status, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return Record{}, fmt.Errorf("document: unmarshal payload: %w", err)
		}
	}
	return rec, nil
}
