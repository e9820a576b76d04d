package domain

import "time"

// Measurement is the outcome of one probe against one target. An
// unreachable target is a normal measurement, not an error.
type Measurement struct {
	Target    string    `json:"target"`
	Reachable bool      `json:"reachable"`
	LatencyMS float64   `json:"latency_ms"`
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Transition records one confirmed health-state change. Produced once
// per change by the evaluator, consumed once by the dispatcher.
type Transition struct {
	ID     string      `json:"id"`
	Target string      `json:"target"`
	From   HealthState `json:"from"`
	To     HealthState `json:"to"`
	Reason string      `json:"reason"`
	At     time.Time   `json:"at"`
}
