package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hamed0406/netwatch/internal/domain"
)

// Metrics collects the monitor's operational counters on a private
// registry. All record methods are nil-receiver safe so components can
// run without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	probesTotal      *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	transitionsTotal *prometheus.CounterVec
	alertsSent       prometheus.Counter
	alertsFailed     prometheus.Counter
	targetUp         *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netwatch",
			Name:      "probes_total",
			Help:      "Probes performed, by outcome.",
		}, []string{"result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "netwatch",
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one full probe sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netwatch",
			Name:      "transitions_total",
			Help:      "Confirmed health transitions, by new state.",
		}, []string{"to"}),
		alertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netwatch",
			Name:      "alerts_sent_total",
			Help:      "Alerts delivered to at least one notifier.",
		}),
		alertsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netwatch",
			Name:      "alerts_failed_total",
			Help:      "Alerts dropped after exhausting delivery retries.",
		}),
		targetUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "netwatch",
			Name:      "target_health",
			Help:      "Per-target health: 1 healthy, 0.5 degraded, 0 down.",
		}, []string{"target"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.probesTotal,
		m.sweepDuration,
		m.transitionsTotal,
		m.alertsSent,
		m.alertsFailed,
		m.targetUp,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveProbe(reachable bool) {
	if m == nil {
		return
	}
	result := "unreachable"
	if reachable {
		result = "reachable"
	}
	m.probesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveTransition(to domain.HealthState) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) AlertSent() {
	if m == nil {
		return
	}
	m.alertsSent.Inc()
}

func (m *Metrics) AlertFailed() {
	if m == nil {
		return
	}
	m.alertsFailed.Inc()
}

func (m *Metrics) SetTargetState(target string, s domain.HealthState) {
	if m == nil {
		return
	}
	var v float64
	switch s {
	case domain.StateHealthy:
		v = 1
	case domain.StateDegraded:
		v = 0.5
	case domain.StateDown:
		v = 0
	default:
		return
	}
	m.targetUp.WithLabelValues(target).Set(v)
}
