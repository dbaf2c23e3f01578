// Package oracles defines SQL invariant checks evaluated repeatedly while
// actors hammer the schema. Each oracle is a query that must return zero
// rows on a consistent database.
package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_status_matches_last_event",
			SQL: `SELECT d.id, d.status, e.status AS last_event_status
                  FROM documents d
                  JOIN LATERAL (
                      SELECT status FROM document_events
                      WHERE document_id = d.id ORDER BY seq DESC LIMIT 1
                  ) e ON true
                  WHERE d.status <> e.status`,
		},
		{
			Name: "O2_event_seq_gapless",
			SQL: `WITH seqs AS (
                      SELECT document_id, seq,
                             LAG(seq) OVER (PARTITION BY document_id ORDER BY seq) AS prev
                      FROM document_events)
                  SELECT * FROM seqs
                  WHERE (prev IS NULL AND seq <> 1)
                     OR (prev IS NOT NULL AND seq <> prev + 1)`,
		},
		{
			Name: "O3_no_document_without_history",
			SQL: `SELECT d.id FROM documents d
                  WHERE NOT EXISTS (SELECT 1 FROM document_events WHERE document_id = d.id)`,
		},
		{
			Name: "O4_one_active_document_per_type",
			SQL: `SELECT owner_id, doc_type, COUNT(*) FROM documents
                  GROUP BY owner_id, doc_type HAVING COUNT(*) > 1`,
		},
		{
			Name: "O5_transition_leaves_outbox_trail",
			SQL: `SELECT d.id FROM documents d
                  JOIN (SELECT document_id, MAX(seq) AS top FROM document_events GROUP BY document_id) e
                    ON e.document_id = d.id
                  WHERE e.top > 1
                    AND e.top - 1 > (
                        SELECT COUNT(*) FROM outbox
                        WHERE topic = 'document.status_changed'
                          AND payload->>'document_id' = d.id::text)`,
		},
		{
			Name: "O6_outbox_not_stuck",
			SQL: `SELECT id FROM outbox
                  WHERE status = 'pending' AND now() - created_at > interval '5 minutes'`,
		},
		{
			Name: "O7_approved_hours_reviewed",
			SQL: `SELECT id FROM logbook_entries
                  WHERE status IN ('approved','rejected') AND reviewed_by IS NULL`,
		},
		{
			Name: "O8_events_append_only_guard",
			SQL: `SELECT 'missing_no_mutate_trigger' AS detail
                  WHERE NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'no_mutate_document_events')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample
// row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
