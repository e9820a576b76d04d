package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hamed0406/netwatch/internal/dispatch"
	"github.com/hamed0406/netwatch/internal/domain"
	"github.com/hamed0406/netwatch/internal/health"
	"github.com/hamed0406/netwatch/internal/metrics"
	"github.com/hamed0406/netwatch/internal/notify"
	"github.com/hamed0406/netwatch/internal/probe"
	"github.com/hamed0406/netwatch/internal/repo"
	"github.com/hamed0406/netwatch/internal/scheduler"
)

const eventBuffer = 64

// ErrDuplicateTarget is returned by AddTarget for an already known name.
var ErrDuplicateTarget = errors.New("target already exists")

// Options carries everything the monitor needs. Logger, Targets,
// Checker, Alerts, TransitionLog and Notifier are required.
type Options struct {
	Logger        *zap.Logger
	Targets       []domain.Target
	Checker       probe.Checker
	Alerts        repo.AlertStore
	TransitionLog repo.TransitionLog
	Notifier      notify.Notifier
	Metrics       *metrics.Metrics

	Interval      time.Duration
	Timeout       time.Duration
	MaxConcurrent int
	ProbeLimiter  *rate.Limiter

	Health   health.Config
	Dispatch dispatch.Config
}

// Monitor owns the probe loop, the evaluator, and the dispatcher, and
// fans confirmed transitions out to the alert pipeline, the transition
// log, and live subscribers.
type Monitor struct {
	log      *zap.Logger
	targets  []domain.Target
	interval time.Duration
	timeout  time.Duration

	ev      *health.Evaluator
	sweeper *scheduler.Sweeper
	disp    *dispatch.Dispatcher
	tlog    repo.TransitionLog

	events     chan domain.Transition
	dispatchCh chan domain.Transition

	mu      sync.Mutex
	subs    map[int]chan domain.Transition
	nextSub int
}

func New(o Options) *Monitor {
	ev := health.NewEvaluator(o.Health)
	events := make(chan domain.Transition, eventBuffer)

	sw := scheduler.NewSweeper(
		o.Logger,
		o.Targets,
		o.Checker,
		ev,
		events,
		o.Interval,
		o.Timeout,
		o.MaxConcurrent,
	)
	sw.Limiter = o.ProbeLimiter
	sw.Metrics = o.Metrics

	return &Monitor{
		log:        o.Logger,
		targets:    o.Targets,
		interval:   sw.Interval,
		timeout:    sw.Timeout,
		ev:         ev,
		sweeper:    sw,
		disp:       dispatch.New(o.Alerts, o.Notifier, o.Logger, o.Metrics, o.Dispatch),
		tlog:       o.TransitionLog,
		events:     events,
		dispatchCh: make(chan domain.Transition, eventBuffer),
		subs:       make(map[int]chan domain.Transition),
	}
}

// Run blocks until ctx is cancelled or a component fails.
func (m *Monitor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m.sweeper.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return m.disp.Run(ctx, m.dispatchCh)
	})
	g.Go(func() error {
		return m.fanout(ctx)
	})
	return g.Wait()
}

// fanout moves each confirmed transition into the log, the dispatcher
// queue, and every live subscriber.
func (m *Monitor) fanout(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tr := <-m.events:
			if err := m.tlog.Append(ctx, tr); err != nil {
				m.log.Warn("transition_log_error",
					zap.String("target", tr.Target),
					zap.Error(err),
				)
			}
			select {
			case m.dispatchCh <- tr:
			case <-ctx.Done():
				return ctx.Err()
			}
			m.broadcast(tr)
		}
	}
}

func (m *Monitor) broadcast(tr domain.Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		// Live stream is best effort; a stalled subscriber misses
		// events instead of stalling the loop.
		select {
		case ch <- tr:
		default:
		}
	}
}

// Subscribe registers a live transition feed. The returned cancel func
// must be called to release the subscription.
func (m *Monitor) Subscribe() (<-chan domain.Transition, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	ch := make(chan domain.Transition, 16)
	m.subs[id] = ch
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// TargetStatus is the API view of one target.
type TargetStatus struct {
	Name      string             `json:"name"`
	Host      string             `json:"host"`
	State     domain.HealthState `json:"state"`
	LatencyMS float64            `json:"latency_ms"`
	Reason    string             `json:"reason,omitempty"`
	LossPct   float64            `json:"loss_pct"`
	CheckedAt time.Time          `json:"checked_at"`
}

// AddTarget registers a target at runtime. The next sweep probes it.
func (m *Monitor) AddTarget(t domain.Target) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Host = strings.TrimSpace(t.Host)
	if t.Name == "" || t.Host == "" {
		return errors.New("target name and host are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, known := range m.targets {
		if known.Name == t.Name {
			return fmt.Errorf("%q: %w", t.Name, ErrDuplicateTarget)
		}
	}
	m.targets = append(m.targets, t)
	m.sweeper.Add(t)
	m.log.Info("target_added",
		zap.String("target", t.Name),
		zap.String("host", t.Host),
	)
	return nil
}

// Status reports every configured target in configuration order.
// Targets not yet probed show state "unknown".
func (m *Monitor) Status() []TargetStatus {
	snap := m.ev.Snapshot()
	m.mu.Lock()
	targets := make([]domain.Target, len(m.targets))
	copy(targets, m.targets)
	m.mu.Unlock()

	out := make([]TargetStatus, 0, len(targets))
	for _, t := range targets {
		st := TargetStatus{Name: t.Name, Host: t.Host, State: domain.StateUnknown}
		if h, ok := snap[t.Name]; ok {
			st.State = h.State
			st.LatencyMS = h.LatencyMS
			st.Reason = h.Reason
			st.LossPct = h.LossPct
			st.CheckedAt = h.CheckedAt
		}
		out = append(out, st)
	}
	return out
}

// Targets returns the configured target set.
func (m *Monitor) Targets() []domain.Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Target, len(m.targets))
	copy(out, m.targets)
	return out
}

// Recent returns the newest confirmed transitions, newest first.
func (m *Monitor) Recent(ctx context.Context, limit int) ([]domain.Transition, error) {
	return m.tlog.Recent(ctx, limit)
}

// Ready reports whether the probe loop is live: at least one sweep has
// completed and the latest one is not stale.
func (m *Monitor) Ready() (bool, string) {
	last := m.sweeper.LastSweep()
	if last.IsZero() {
		return false, "no sweep completed yet"
	}
	staleAfter := 2*m.interval + m.timeout
	if age := time.Since(last); age > staleAfter {
		return false, fmt.Sprintf("last sweep %s ago", age.Round(time.Millisecond))
	}
	return true, "ok"
}
