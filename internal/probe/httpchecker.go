package probe

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// HTTPChecker probes targets that expose an HTTP(S) endpoint. A 2xx or
// 3xx response counts as reachable.
type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPChecker) Check(ctx context.Context, host string) Result {
	url := host
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Reachable: false, Reason: "bad_request: " + err.Error()}
	}

	resp, err := h.Client.Do(req)
	lat := time.Since(start).Seconds() * 1000
	if err != nil {
		return Result{Reachable: false, LatencyMS: lat, Reason: "http_error: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return Result{Reachable: true, LatencyMS: lat, Reason: resp.Status}
	}
	return Result{Reachable: false, LatencyMS: lat, Reason: resp.Status}
}
