package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"internflow/document"
	"internflow/logbook"
	"internflow/policy"
	"internflow/test/actors"
	"internflow/test/chaos"
	"internflow/test/infra"
	"internflow/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors per role")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
	flChaos       = flag.Bool("chaos", false, "randomly terminate backend connections during the run")
)

// TestWorkflowConcurrency races submitters, reviewers, and deciders over a
// shared CS05 while oracles repeatedly assert the storage invariants: the
// status always matches the last timeline event, event sequences are
// gapless, and every committed transition left an outbox trail.
func TestWorkflowConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	rand.Seed(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	pol := policy.Default()
	docs := document.NewService(document.NewPGStore(pool), nil, pol)
	books := logbook.NewService(logbook.NewRepository(pool), pol)

	// One CS05 everyone fights over. No payload is seeded, so approval
	// attempts fail their precondition and the submit/review/reject cycle
	// never terminates during the run.
	studentID := "stress-student"
	cs05, err := docs.Create(ctx, document.CreateParams{
		Type:      document.TypeCS05,
		OwnerID:   studentID,
		ActorRole: document.RoleStudent,
		ActorID:   studentID,
	})
	if err != nil {
		t.Fatalf("seed cs05: %v", err)
	}

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error { return actors.Submitter(ctx2, docs, cs05.ID, studentID, stop) })
		g.Go(func() error { return actors.Reviewer(ctx2, docs, cs05.ID, "stress-staff", stop) })
	}
	g.Go(func() error { return actors.Decider(ctx2, docs, cs05.ID, "stress-head", stop) })
	g.Go(func() error { return actors.Interloper(ctx2, docs, cs05.ID, stop) })
	g.Go(func() error { return actors.LogbookWriter(ctx2, books, studentID, stop) })
	g.Go(func() error { return actors.OutboxWorker(ctx2, pool, stop) })

	if *flChaos {
		go chaos.TerminateRandomBackend(ctx2, pool, stop)
	}

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"documents", `SELECT id, doc_type, owner_id, status, updated_at FROM documents ORDER BY updated_at DESC LIMIT 20`},
		{"document_events", `SELECT id, document_id, seq, status, actor_role, ts FROM document_events ORDER BY id DESC LIMIT 50`},
		{"outbox", `SELECT id, topic, status, attempts, created_at FROM outbox ORDER BY created_at DESC LIMIT 50`},
		{"logbook_entries", `SELECT id, owner_id, day, hours, status FROM logbook_entries ORDER BY created_at DESC LIMIT 20`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, string(cols[i].Name)+"="+formatVal(vals[i]))
			}
			t.Logf("%v", buf)
		}
		rows.Close()
	}
}

func formatVal(v any) string {
	if ts, ok := v.(time.Time); ok {
		return ts.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}
