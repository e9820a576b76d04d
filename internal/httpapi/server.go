package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/netwatch/internal/domain"
	apimw "github.com/hamed0406/netwatch/internal/httpapi/middleware"
	"github.com/hamed0406/netwatch/internal/monitor"
	"github.com/hamed0406/netwatch/internal/probe"
)

type Server struct {
	Logger  *zap.Logger
	Monitor *monitor.Monitor
	Checker probe.Checker

	metricsHandler http.Handler
}

func NewServer(l *zap.Logger, m *monitor.Monitor, c probe.Checker, metricsHandler http.Handler) *Server {
	return &Server{Logger: l, Monitor: m, Checker: c, metricsHandler: metricsHandler}
}

// Router builds the full route tree. Probe endpoints (/healthz, /readyz,
// /metrics) stay open; everything under /api requires a key when keys
// are configured and is rate limited per client IP.
func (s *Server) Router(keys apimw.Keys, ratePerMin, rateBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(apimw.RateLimit(ratePerMin, rateBurst))
		api.Use(apimw.RequireAny(keys))
		api.Get("/status", s.handleStatus)
		api.Get("/targets", s.handleListTargets)
		api.With(apimw.RequireAdmin(keys)).Post("/targets", s.handleAddTarget)
		api.Get("/transitions", s.handleTransitions)
		api.Get("/stream", s.handleStream)
	})

	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ok, reason := s.Monitor.Ready()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "reason": reason})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Monitor.Status())
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Monitor.Targets())
}

func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	trs, err := s.Monitor.Recent(r.Context(), parseLimit(r))
	if err != nil {
		s.Logger.Warn("transitions_error", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if trs == nil {
		trs = []domain.Transition{}
	}
	writeJSON(w, http.StatusOK, trs)
}

type addPayload struct {
	Name string `json:"name"`
	Host string `json:"host"`
}

type probeSummary struct {
	Reachable bool      `json:"reachable"`
	LatencyMS float64   `json:"latency_ms"`
	Reason    string    `json:"reason,omitempty"`
	DNS       string    `json:"dns,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var p addPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	t := domain.Target{
		Name: strings.TrimSpace(p.Name),
		Host: strings.TrimSpace(p.Host),
	}
	if t.Name == "" || t.Host == "" {
		http.Error(w, "name and host are required", http.StatusBadRequest)
		return
	}

	if err := s.Monitor.AddTarget(t); err != nil {
		if errors.Is(err, monitor.ErrDuplicateTarget) {
			http.Error(w, "target already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Run a single check synchronously for immediate feedback; the sweep
	// loop takes over from the next tick.
	out := s.Checker.Check(r.Context(), t.Host)

	// If the probe fails, classify DNS to tell a dead host from a bad name.
	dnsClass := ""
	if !out.Reachable {
		dns := probe.CheckDNS(r.Context(), extractHost(t.Host))
		dnsClass = string(dns.Class)

		s.Logger.Info("dns_check",
			zap.String("domain", dns.Domain),
			zap.String("class", dnsClass),
			zap.Int("addresses", len(dns.IPs)),
			zap.Strings("nameservers", dns.Nameservers),
			zap.String("cname", dns.CNAME),
			zap.String("resolver_error", dns.ResolverError),
		)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"target": t,
		"probe": probeSummary{
			Reachable: out.Reachable,
			LatencyMS: out.LatencyMS,
			Reason:    out.Reason,
			DNS:       dnsClass,
			CheckedAt: time.Now().UTC(),
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseLimit(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// extractHost pulls the bare hostname out of a target host spec, which
// may be a URL, a host:port pair, or a plain name.
func extractHost(raw string) string {
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
		return raw
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		return host
	}
	return raw
}
