package probe

import "context"

// Result is the unified outcome of a single probe.
//
// Fields:
// - Reachable: the target answered within the caller's deadline.
// - LatencyMS: wall-clock round trip of the underlying check; also set
//   on failed probes when a partial timing is available.
// - Reason: short machine-readable cause ("ok", "dial_error", ...),
//   optionally suffixed with transport detail.
type Result struct {
	Reachable bool
	LatencyMS float64
	Reason    string
}

// Checker performs a single reachability check against a host.
// Implementations never return an error for ordinary network failure;
// an unreachable host is a normal Result. The context carries the
// per-probe deadline.
type Checker interface {
	Check(ctx context.Context, host string) Result
}
