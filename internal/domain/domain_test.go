package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHealthState_Worse(t *testing.T) {
	cases := []struct {
		a, b HealthState
		want bool
	}{
		{StateDown, StateHealthy, true},
		{StateDown, StateDegraded, true},
		{StateDegraded, StateHealthy, true},
		{StateHealthy, StateDegraded, false},
		{StateHealthy, StateHealthy, false},
		{StateUnknown, StateHealthy, false},
	}
	for _, c := range cases {
		if got := c.a.Worse(c.b); got != c.want {
			t.Fatalf("%s.Worse(%s) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestHealthState_AtLeast(t *testing.T) {
	if got := StateHealthy.AtLeast(StateDegraded); got != StateDegraded {
		t.Fatalf("healthy floored to degraded should be degraded, got %s", got)
	}
	if got := StateDown.AtLeast(StateDegraded); got != StateDown {
		t.Fatalf("down floored to degraded should stay down, got %s", got)
	}
	if got := StateDegraded.AtLeast(StateDegraded); got != StateDegraded {
		t.Fatalf("degraded floored to degraded should stay degraded, got %s", got)
	}
}

func TestTransition_JSONRoundTrip(t *testing.T) {
	want := Transition{
		ID:     "evt-1",
		Target: "core-gw",
		From:   StateHealthy,
		To:     StateDown,
		Reason: "unreachable: dial tcp: i/o timeout",
		At:     time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Transition
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ID != want.ID || got.Target != want.Target ||
		got.From != want.From || got.To != want.To ||
		got.Reason != want.Reason || !got.At.Equal(want.At) {
		t.Fatalf("mismatch after round-trip:\nwant=%+v\ngot =%+v", want, got)
	}
}
