package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/netwatch/internal/domain"
	"github.com/hamed0406/netwatch/internal/repo"
)

var _ repo.AlertStore = (*Store)(nil)
var _ repo.TransitionLog = (*Store)(nil)

// Store persists alert state and transition history so restarts do not
// replay alerts that already went out.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- TransitionLog ----

func (s *Store) Append(ctx context.Context, tr domain.Transition) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transitions (id, target, prev_state, new_state, reason, at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO NOTHING`,
		tr.ID, tr.Target, string(tr.From), string(tr.To), tr.Reason, tr.At,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Transition, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, target, prev_state, new_state, reason, at
		   FROM transitions
		  ORDER BY at DESC, id DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transitions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transition
	for rows.Next() {
		var (
			tr   domain.Transition
			from string
			to   string
		)
		if err := rows.Scan(&tr.ID, &tr.Target, &from, &to, &tr.Reason, &tr.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.From = domain.HealthState(from)
		tr.To = domain.HealthState(to)
		out = append(out, tr)
	}
	return out, rows.Err()
}
