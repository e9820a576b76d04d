package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/netwatch/internal/domain"
	"github.com/hamed0406/netwatch/internal/repo"
)

func (s *Store) Get(ctx context.Context, target string) (*repo.AlertRecord, error) {
	const q = `SELECT state, last_sent_at FROM alerts WHERE target=$1`
	var (
		r        repo.AlertRecord
		state    string
		lastSent *time.Time
	)
	r.Target = target
	err := s.pool.QueryRow(ctx, q, target).Scan(&state, &lastSent)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	r.State = domain.HealthState(state)
	r.LastSentAt = lastSent
	return &r, nil
}

func (s *Store) Set(ctx context.Context, target string, state domain.HealthState, sentAt time.Time) error {
	const q = `
		INSERT INTO alerts (target, state, last_sent_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (target)
		DO UPDATE SET state=EXCLUDED.state, last_sent_at=EXCLUDED.last_sent_at
	`
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	_, err := s.pool.Exec(ctx, q, target, string(state), ts)
	return err
}
