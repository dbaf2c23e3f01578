package logbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no entry exists for the identifier.
	ErrNotFound = errors.New("logbook: entry not found")
)

type Repository interface {
	Create(ctx context.Context, entry Entry) (Entry, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Entry, error)
	Review(ctx context.Context, id string, status Status, reviewerID string) (Entry, error)
	ApprovedHours(ctx context.Context, ownerID string) (float64, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, entry Entry) (Entry, error) {
	const query = `
        INSERT INTO logbook_entries (id, owner_id, day, hours, description, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, owner_id, day, hours, description, status, reviewed_by, created_at, updated_at
    `
	row := r.pool.QueryRow(ctx, query, entry.ID, entry.OwnerID, entry.Day, entry.Hours, entry.Description, entry.Status)
	created, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("logbook: insert entry: %w", err)
	}
	return created, nil
}

func (r *PGRepository) ListByOwner(ctx context.Context, ownerID string) ([]Entry, error) {
	const query = `
        SELECT id, owner_id, day, hours, description, status, reviewed_by, created_at, updated_at
        FROM logbook_entries
        WHERE owner_id = $1
        ORDER BY day
    `
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("logbook: list entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("logbook: scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *PGRepository) Review(ctx context.Context, id string, status Status, reviewerID string) (Entry, error) {
	const query = `
        UPDATE logbook_entries
        SET status = $2,
            reviewed_by = $3,
            updated_at = now()
        WHERE id = $1
        RETURNING id, owner_id, day, hours, description, status, reviewed_by, created_at, updated_at
    `
	entry, err := scanEntry(r.pool.QueryRow(ctx, query, id, status, reviewerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("logbook: review entry: %w", err)
	}
	return entry, nil
}

func (r *PGRepository) ApprovedHours(ctx context.Context, ownerID string) (float64, error) {
	var total float64
	const query = `SELECT COALESCE(SUM(hours), 0) FROM logbook_entries WHERE owner_id = $1 AND status = 'approved'`
	if err := r.pool.QueryRow(ctx, query, ownerID).Scan(&total); err != nil {
		return 0, fmt.Errorf("logbook: sum approved hours: %w", err)
	}
	return total, nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var entry Entry
	return entry, row.Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.Day,
		&entry.Hours,
		&entry.Description,
		&entry.Status,
		&entry.ReviewedBy,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
}
