package health

import (
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/netwatch/internal/domain"
)

func meas(target string, reachable bool, latMS float64) domain.Measurement {
	reason := "tcp_connect"
	if !reachable {
		reason = "dial_error: connection refused"
	}
	return domain.Measurement{
		Target:    target,
		Reachable: reachable,
		LatencyMS: latMS,
		Reason:    reason,
		CheckedAt: time.Now(),
	}
}

func TestEvaluator_FirstUnreachableGoesHealthyToDown(t *testing.T) {
	ev := NewEvaluator(Config{Thresholds: domain.Thresholds{LatencyMS: 100, PacketLossPct: 5}})

	state, tr := ev.Observe(meas("db", false, 0))
	if state != domain.StateDown {
		t.Fatalf("want Down, got %s", state)
	}
	if tr == nil {
		t.Fatalf("want a transition on first unreachable probe")
	}
	if tr.From != domain.StateHealthy || tr.To != domain.StateDown {
		t.Fatalf("want Healthy->Down, got %s->%s", tr.From, tr.To)
	}
	if tr.ID == "" {
		t.Fatalf("transition should carry an id")
	}

	// Same verdict again must not re-fire.
	_, tr = ev.Observe(meas("db", false, 0))
	if tr != nil {
		t.Fatalf("duplicate consecutive transition emitted: %+v", tr)
	}
}

func TestEvaluator_TransitionOnlyOnStateChange(t *testing.T) {
	ev := NewEvaluator(Config{Thresholds: domain.Thresholds{LatencyMS: 100, PacketLossPct: 100}})

	seq := []bool{true, true, false, false, true, true}
	var fired []*domain.Transition
	for _, ok := range seq {
		if _, tr := ev.Observe(meas("api", ok, 10)); tr != nil {
			fired = append(fired, tr)
		}
	}
	if len(fired) != 2 {
		t.Fatalf("want 2 transitions, got %d", len(fired))
	}
	if fired[0].From != domain.StateHealthy || fired[0].To != domain.StateDown {
		t.Fatalf("first transition wrong: %s->%s", fired[0].From, fired[0].To)
	}
	if fired[1].From != domain.StateDown || fired[1].To != domain.StateHealthy {
		t.Fatalf("second transition wrong: %s->%s", fired[1].From, fired[1].To)
	}
}

func TestEvaluator_LatencyOverThresholdDegrades(t *testing.T) {
	ev := NewEvaluator(Config{Thresholds: domain.Thresholds{LatencyMS: 100, PacketLossPct: 100}})

	state, tr := ev.Observe(meas("cdn", true, 250))
	if state != domain.StateDegraded {
		t.Fatalf("want Degraded, got %s", state)
	}
	if tr == nil || tr.To != domain.StateDegraded {
		t.Fatalf("want transition to Degraded, got %+v", tr)
	}
	if !strings.Contains(tr.Reason, "high_latency") {
		t.Fatalf("want high_latency reason, got %q", tr.Reason)
	}
}

func TestEvaluator_LossWindowForcesDegraded(t *testing.T) {
	ev := NewEvaluator(Config{
		Thresholds:     domain.Thresholds{LatencyMS: 100, PacketLossPct: 5},
		LossWindowSize: 10,
	})

	// One miss early, then nine fast probes. 1/10 = 10% loss, over
	// the 5% threshold, so the state must not settle back to Healthy
	// even though the most recent probe succeeded.
	ev.Observe(meas("edge", false, 0))
	var state domain.HealthState
	for i := 0; i < 9; i++ {
		state, _ = ev.Observe(meas("edge", true, 10))
	}
	if state != domain.StateDegraded {
		t.Fatalf("want Degraded from sustained loss, got %s", state)
	}

	if snap := ev.Snapshot()["edge"]; snap.LossPct != 10 {
		t.Fatalf("want 10%% loss, got %.1f", snap.LossPct)
	}

	// Once the miss slides out of the window the target may recover.
	state, tr := ev.Observe(meas("edge", true, 10))
	if state != domain.StateHealthy {
		t.Fatalf("want Healthy after loss left the window, got %s", state)
	}
	if tr == nil || tr.To != domain.StateHealthy {
		t.Fatalf("want recovery transition, got %+v", tr)
	}
}

func TestEvaluator_SingleFastProbeCannotClearDown(t *testing.T) {
	ev := NewEvaluator(Config{
		Thresholds:     domain.Thresholds{LatencyMS: 100, PacketLossPct: 5},
		LossWindowSize: 10,
	})

	for i := 0; i < 5; i++ {
		ev.Observe(meas("gw", false, 0))
	}
	if got := ev.State("gw"); got != domain.StateDown {
		t.Fatalf("want Down, got %s", got)
	}

	state, tr := ev.Observe(meas("gw", true, 5))
	if state == domain.StateHealthy {
		t.Fatalf("one good probe cleared a Down state with 5/6 loss in the window")
	}
	if tr == nil || tr.To != domain.StateDegraded {
		t.Fatalf("want Down->Degraded while loss persists, got %+v", tr)
	}
	if !strings.Contains(tr.Reason, "packet_loss") {
		t.Fatalf("want packet_loss reason, got %q", tr.Reason)
	}
}

func TestEvaluator_DebounceSuppressesPrematureRecovery(t *testing.T) {
	ev := NewEvaluator(Config{
		Thresholds:     domain.Thresholds{LatencyMS: 100, PacketLossPct: 100},
		DebounceCount:  3,
		LossWindowSize: 1,
	})

	// Confirm Degraded first: three consecutive slow probes.
	var tr *domain.Transition
	for i := 0; i < 3; i++ {
		_, tr = ev.Observe(meas("app", true, 500))
	}
	if tr == nil || tr.To != domain.StateDegraded {
		t.Fatalf("want confirmed Degraded after 3 slow probes, got %+v", tr)
	}

	// Two more slow probes, then a single fast one. The lone good
	// reading must not flip the confirmed state.
	ev.Observe(meas("app", true, 500))
	ev.Observe(meas("app", true, 500))
	state, tr := ev.Observe(meas("app", true, 10))
	if state != domain.StateDegraded {
		t.Fatalf("one fast probe flipped state to %s", state)
	}
	if tr != nil {
		t.Fatalf("unexpected transition: %+v", tr)
	}

	// A slow probe in between resets the recovery streak.
	ev.Observe(meas("app", true, 10))
	ev.Observe(meas("app", true, 500))
	for i := 0; i < 2; i++ {
		state, tr = ev.Observe(meas("app", true, 10))
	}
	if state != domain.StateDegraded || tr != nil {
		t.Fatalf("recovered after interrupted streak: state=%s tr=%+v", state, tr)
	}

	// Third consecutive fast probe confirms recovery.
	state, tr = ev.Observe(meas("app", true, 10))
	if state != domain.StateHealthy {
		t.Fatalf("want Healthy after 3 consecutive fast probes, got %s", state)
	}
	if tr == nil || tr.From != domain.StateDegraded || tr.To != domain.StateHealthy {
		t.Fatalf("want Degraded->Healthy, got %+v", tr)
	}
}

func TestEvaluator_DebounceDelaysDegrade(t *testing.T) {
	ev := NewEvaluator(Config{
		Thresholds:     domain.Thresholds{LatencyMS: 100, PacketLossPct: 100},
		DebounceCount:  3,
		LossWindowSize: 1,
	})

	ev.Observe(meas("app", true, 10))
	ev.Observe(meas("app", true, 500))
	ev.Observe(meas("app", true, 500))
	// Streak broken before confirmation.
	state, tr := ev.Observe(meas("app", true, 10))
	if state != domain.StateHealthy || tr != nil {
		t.Fatalf("premature degrade: state=%s tr=%+v", state, tr)
	}
}

func TestEvaluator_StateUnknownBeforeFirstProbe(t *testing.T) {
	ev := NewEvaluator(Config{})
	if got := ev.State("never-seen"); got != domain.StateUnknown {
		t.Fatalf("want Unknown, got %s", got)
	}
}

func TestLossWindow_PartialFill(t *testing.T) {
	w := newLossWindow(10)
	w.push(true)
	w.push(false)
	w.push(true)

	if got := w.lossPct(); got < 33.2 || got > 33.4 {
		t.Fatalf("want ~33.3%% over 3 filled slots, got %.2f", got)
	}
	if w.size() != 3 {
		t.Fatalf("want size 3, got %d", w.size())
	}
}

func TestLossWindow_WrapsOldestOut(t *testing.T) {
	w := newLossWindow(3)
	w.push(false)
	w.push(true)
	w.push(true)
	w.push(true) // evicts the miss

	if got := w.lossPct(); got != 0 {
		t.Fatalf("want 0%% after miss evicted, got %.1f", got)
	}
}
