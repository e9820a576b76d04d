package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hamed0406/netwatch/internal/domain"
	"github.com/hamed0406/netwatch/internal/health"
	"github.com/hamed0406/netwatch/internal/metrics"
	"github.com/hamed0406/netwatch/internal/probe"
)

type Sweeper struct {
	Logger      *zap.Logger
	Checker     probe.Checker
	Evaluator   *health.Evaluator
	Interval    time.Duration
	Timeout     time.Duration
	Concurrency int

	// Limiter, when set, gates probe starts across the whole sweep.
	Limiter *rate.Limiter
	// Metrics, when set, receives probe/sweep/transition counts.
	Metrics *metrics.Metrics

	mu      sync.Mutex
	targets []domain.Target

	out       chan<- domain.Transition
	lastSweep atomic.Int64
}

func NewSweeper(
	logger *zap.Logger,
	targets []domain.Target,
	checker probe.Checker,
	evaluator *health.Evaluator,
	out chan<- domain.Transition,
	interval time.Duration,
	timeout time.Duration,
	concurrency int,
) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	if interval < 0 {
		interval = 0
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Sweeper{
		Logger:      logger,
		Checker:     checker,
		Evaluator:   evaluator,
		Interval:    interval,
		Timeout:     timeout,
		Concurrency: concurrency,
		out:         out,
	}
	s.targets = append(s.targets, targets...)
	return s
}

// Add registers one more target. The next sweep picks it up.
func (s *Sweeper) Add(t domain.Target) {
	s.mu.Lock()
	s.targets = append(s.targets, t)
	s.mu.Unlock()
}

func (s *Sweeper) snapshot() []domain.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Target, len(s.targets))
	copy(out, s.targets)
	return out
}

// Run starts the loop. It does an immediate sweep, then one per tick.
// Stops when ctx is cancelled; an in-flight sweep is cut short, its
// probes bounded by their own timeout.
func (s *Sweeper) Run(ctx context.Context) {
	if s.Interval == 0 {
		// disabled
		s.Logger.Info("sweeper_disabled")
		return
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// immediate sweep
	s.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("sweeper_stopped")
			return
		case <-t.C:
			s.sweepOnce(ctx)
		}
	}
}

// LastSweep reports when the last full sweep finished, zero before the
// first one completes. Readiness checks use it to spot a stalled loop.
func (s *Sweeper) LastSweep() time.Time {
	n := s.lastSweep.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	targets := s.snapshot()
	if len(targets) == 0 {
		return
	}

	start := time.Now()
	sem := make(chan struct{}, s.Concurrency)
	var wg sync.WaitGroup

	for _, tgt := range targets {
		t := tgt
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			// stop handing out work, wait for what already started
			wg.Wait()
			return
		}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()
			defer func() {
				// One misbehaving target must not take the sweep down
				// for the others.
				if rec := recover(); rec != nil {
					s.Logger.Error("sweep_panic",
						zap.String("target", t.Name),
						zap.Any("panic", rec),
					)
				}
			}()
			s.probeOne(ctx, t)
		}()
	}

	wg.Wait()
	s.lastSweep.Store(time.Now().UnixNano())
	s.Metrics.ObserveSweep(time.Since(start))
	s.Logger.Debug("sweep_complete",
		zap.Int("targets", len(targets)),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Sweeper) probeOne(ctx context.Context, t domain.Target) {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return
		}
	}

	cctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	out := s.Checker.Check(cctx, t.Host)
	m := domain.Measurement{
		Target:    t.Name,
		Reachable: out.Reachable,
		LatencyMS: out.LatencyMS,
		Reason:    out.Reason,
		CheckedAt: time.Now().UTC(),
	}
	s.Metrics.ObserveProbe(m.Reachable)

	state, tr := s.Evaluator.Observe(m)
	s.Metrics.SetTargetState(t.Name, state)

	s.Logger.Debug("sweeper_checked",
		zap.String("target", t.Name),
		zap.String("host", t.Host),
		zap.Bool("reachable", m.Reachable),
		zap.Float64("latency_ms", m.LatencyMS),
		zap.String("state", string(state)),
		zap.String("reason", m.Reason),
	)

	if tr == nil {
		return
	}
	s.Metrics.ObserveTransition(tr.To)
	s.Logger.Info("health_transition",
		zap.String("target", tr.Target),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("reason", tr.Reason),
	)
	select {
	case s.out <- *tr:
	case <-ctx.Done():
	}
}
