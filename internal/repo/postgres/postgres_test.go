package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/netwatch/internal/domain"
)

// Minimal schema so the test can run on a fresh DB/volume.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS alerts (
  target       TEXT PRIMARY KEY,
  state        TEXT NOT NULL,
  last_sent_at TIMESTAMPTZ NULL
);

CREATE TABLE IF NOT EXISTS transitions (
  id         TEXT PRIMARY KEY,
  target     TEXT NOT NULL,
  prev_state TEXT NOT NULL,
  new_state  TEXT NOT NULL,
  reason     TEXT NOT NULL,
  at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions (at DESC);
`

func ensureSchema(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}

func TestPostgresStore_AlertsAndTransitions(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ensureSchema(t, dsn)

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	defer store.Close()

	// Unique target per run to avoid collisions with previous runs.
	target := fmt.Sprintf("it-%d", time.Now().UTC().UnixNano())

	// none yet
	rec, err := store.Get(ctx, target)
	if err != nil || rec != nil {
		t.Fatalf("expected nil, got %+v err=%v", rec, err)
	}

	// set (no sent time)
	if err := store.Set(ctx, target, domain.StateDown, time.Time{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec, err = store.Get(ctx, target)
	if err != nil || rec == nil || rec.LastSentAt != nil || rec.State != domain.StateDown {
		t.Fatalf("unexpected: %+v err=%v", rec, err)
	}

	// upsert with sent time
	now := time.Now().UTC()
	if err := store.Set(ctx, target, domain.StateHealthy, now); err != nil {
		t.Fatalf("set2: %v", err)
	}
	rec, err = store.Get(ctx, target)
	if err != nil || rec == nil || rec.LastSentAt == nil || rec.State != domain.StateHealthy {
		t.Fatalf("unexpected2: %+v err=%v", rec, err)
	}

	// transitions: append twice, second insert with the same id is a no-op
	tr := domain.Transition{
		ID:     target + "-tr1",
		Target: target,
		From:   domain.StateHealthy,
		To:     domain.StateDown,
		Reason: "dial_error: connection refused",
		At:     now,
	}
	if err := store.Append(ctx, tr); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, tr); err != nil {
		t.Fatalf("append duplicate: %v", err)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	seen := 0
	for _, r := range recent {
		if r.ID == tr.ID {
			seen++
			if r.From != domain.StateHealthy || r.To != domain.StateDown {
				t.Fatalf("unexpected transition row: %+v", r)
			}
		}
	}
	if seen != 1 {
		t.Fatalf("want transition stored exactly once, saw %d", seen)
	}
}
