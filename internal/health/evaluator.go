package health

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/netwatch/internal/domain"
)

const (
	DefaultDebounceCount  = 1
	DefaultLossWindowSize = 10
)

// Config tunes how raw measurements become confirmed health states.
type Config struct {
	Thresholds domain.Thresholds
	// DebounceCount is how many consecutive agreeing measurements are
	// needed before a state change is confirmed.
	DebounceCount int
	// LossWindowSize is how many recent probes feed the packet-loss
	// percentage.
	LossWindowSize int
}

func (c Config) withDefaults() Config {
	if c.DebounceCount < 1 {
		c.DebounceCount = DefaultDebounceCount
	}
	if c.LossWindowSize < 1 {
		c.LossWindowSize = DefaultLossWindowSize
	}
	return c
}

// TargetHealth is a point-in-time view of one target, served by the
// status API.
type TargetHealth struct {
	State     domain.HealthState `json:"state"`
	LatencyMS float64            `json:"latency_ms"`
	Reason    string             `json:"reason"`
	CheckedAt time.Time          `json:"checked_at"`
	LossPct   float64            `json:"loss_pct"`
}

type targetState struct {
	confirmed domain.HealthState
	candidate domain.HealthState
	streak    int
	window    *lossWindow
	last      TargetHealth
}

// Evaluator owns every target's health state. Measurements go in,
// confirmed states and transition events come out. All access is
// serialized so concurrent sweep workers cannot interleave updates
// for the same target.
type Evaluator struct {
	cfg Config

	mu      sync.Mutex
	targets map[string]*targetState
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{
		cfg:     cfg.withDefaults(),
		targets: make(map[string]*targetState),
	}
}

// Observe folds one measurement into the target's state. It returns
// the confirmed state and, when the confirmed state changed, a
// transition event. Unseen targets start out Healthy, so a first
// unreachable probe yields a Healthy to Down transition.
func (e *Evaluator) Observe(m domain.Measurement) (domain.HealthState, *domain.Transition) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ts, ok := e.targets[m.Target]
	if !ok {
		ts = &targetState{
			confirmed: domain.StateHealthy,
			candidate: domain.StateHealthy,
			window:    newLossWindow(e.cfg.LossWindowSize),
		}
		e.targets[m.Target] = ts
	}

	ts.window.push(m.Reachable)
	raw, reason := e.classify(m, ts.window)

	ts.last = TargetHealth{
		State:     ts.confirmed,
		LatencyMS: m.LatencyMS,
		Reason:    reason,
		CheckedAt: m.CheckedAt,
		LossPct:   ts.window.lossPct(),
	}

	if raw == ts.confirmed {
		// An agreeing measurement cancels any pending change.
		ts.candidate = ts.confirmed
		ts.streak = 0
		return ts.confirmed, nil
	}

	if raw == ts.candidate {
		ts.streak++
	} else {
		ts.candidate = raw
		ts.streak = 1
	}
	if ts.streak < e.cfg.DebounceCount {
		return ts.confirmed, nil
	}

	tr := &domain.Transition{
		ID:     uuid.NewString(),
		Target: m.Target,
		From:   ts.confirmed,
		To:     raw,
		Reason: reason,
		At:     m.CheckedAt,
	}
	ts.confirmed = raw
	ts.candidate = raw
	ts.streak = 0
	ts.last.State = raw
	return ts.confirmed, tr
}

// classify applies the threshold rules to a single measurement, then
// lets the loss window override the verdict. Sustained loss keeps a
// target at least Degraded even when the latest probe came back fine,
// and a lone fast probe cannot clear a Down state the window still
// justifies.
func (e *Evaluator) classify(m domain.Measurement, w *lossWindow) (domain.HealthState, string) {
	var raw domain.HealthState
	var reason string
	switch {
	case !m.Reachable:
		raw = domain.StateDown
		reason = m.Reason
	case e.cfg.Thresholds.LatencyMS > 0 && m.LatencyMS > e.cfg.Thresholds.LatencyMS:
		raw = domain.StateDegraded
		reason = fmt.Sprintf("high_latency: %.1fms > %.0fms", m.LatencyMS, e.cfg.Thresholds.LatencyMS)
	default:
		raw = domain.StateHealthy
		reason = m.Reason
	}

	if pct := w.lossPct(); pct > e.cfg.Thresholds.PacketLossPct {
		forced := raw.AtLeast(domain.StateDegraded)
		if forced != raw {
			raw = forced
			reason = fmt.Sprintf("packet_loss: %.0f%% over last %d probes", pct, w.size())
		}
	}
	return raw, reason
}

// State returns the confirmed state for a target, StateUnknown if it
// has never been observed.
func (e *Evaluator) State(target string) domain.HealthState {
	e.mu.Lock()
	defer e.mu.Unlock()
	ts, ok := e.targets[target]
	if !ok {
		return domain.StateUnknown
	}
	return ts.confirmed
}

// Snapshot copies the current view of every observed target.
func (e *Evaluator) Snapshot() map[string]TargetHealth {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]TargetHealth, len(e.targets))
	for name, ts := range e.targets {
		out[name] = ts.last
	}
	return out
}
