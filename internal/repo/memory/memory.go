package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/netwatch/internal/domain"
	"github.com/hamed0406/netwatch/internal/repo"
)

const defaultRetention = 256

// Store keeps alert records and a bounded ring of recent transitions
// in process memory. It is the default backend when no database is
// configured.
type Store struct {
	mu          sync.RWMutex
	alerts      map[string]*repo.AlertRecord
	transitions []domain.Transition
	retention   int
}

func New() *Store {
	return &Store{
		alerts:    make(map[string]*repo.AlertRecord),
		retention: defaultRetention,
	}
}

// NewWithRetention bounds the transition history to keep.
func NewWithRetention(n int) *Store {
	s := New()
	if n > 0 {
		s.retention = n
	}
	return s
}

func (m *Store) Get(ctx context.Context, target string) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.alerts[target]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *Store) Set(ctx context.Context, target string, state domain.HealthState, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := &repo.AlertRecord{Target: target, State: state}
	if !sentAt.IsZero() {
		t := sentAt
		rec.LastSentAt = &t
	}
	m.alerts[target] = rec
	return nil
}

func (m *Store) Append(ctx context.Context, tr domain.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, tr)
	if len(m.transitions) > m.retention {
		m.transitions = m.transitions[len(m.transitions)-m.retention:]
	}
	return nil
}

func (m *Store) Recent(ctx context.Context, limit int) ([]domain.Transition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.transitions)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Transition, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.transitions[i])
	}
	return out, nil
}
