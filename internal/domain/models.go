package domain

// Target is one monitored endpoint. Host may be a plain name, a
// "host:port" pair, or a URL. The initial set comes from configuration;
// more can be registered through the API while the monitor runs.
type Target struct {
	Name string `json:"name" yaml:"name"`
	Host string `json:"host" yaml:"host"`
}

// HealthState is the confirmed verdict for a target.
type HealthState string

const (
	StateUnknown  HealthState = "unknown"
	StateHealthy  HealthState = "healthy"
	StateDegraded HealthState = "degraded"
	StateDown     HealthState = "down"
)

// severity orders states so "at least Degraded" comparisons work.
var severity = map[HealthState]int{
	StateUnknown:  0,
	StateHealthy:  1,
	StateDegraded: 2,
	StateDown:     3,
}

// Worse reports whether s is a more severe state than other.
func (s HealthState) Worse(other HealthState) bool {
	return severity[s] > severity[other]
}

// AtLeast returns the more severe of s and floor.
func (s HealthState) AtLeast(floor HealthState) HealthState {
	if floor.Worse(s) {
		return floor
	}
	return s
}

// Thresholds hold the health limits shared read-only by the evaluator.
type Thresholds struct {
	LatencyMS     float64 `json:"latency_ms" yaml:"latency_ms"`
	PacketLossPct float64 `json:"packet_loss_pct" yaml:"packet_loss_pct"`
}
