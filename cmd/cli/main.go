package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"
)

// Mirrors of the API payloads so the client stays decoupled from the
// server packages.
type targetStatus struct {
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	State     string    `json:"state"`
	LatencyMS float64   `json:"latency_ms"`
	Reason    string    `json:"reason"`
	LossPct   float64   `json:"loss_pct"`
	CheckedAt time.Time `json:"checked_at"`
}

type transition struct {
	Target string    `json:"target"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

func main() {
	api := flag.String("api", envOr("NETWATCH_API", "http://localhost:8080"), "API base URL")
	key := flag.String("key", os.Getenv("NETWATCH_API_KEY"), "API key (X-API-Key)")
	trN := flag.Int("transitions", 0, "also show the N most recent transitions")
	flag.Parse()

	var status []targetStatus
	if err := getJSON(*api+"/api/status", *key, &status); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  TARGET\tHOST\tSTATE\tLATENCY\tLOSS\tREASON")
	for _, s := range status {
		latency := "-"
		if !s.CheckedAt.IsZero() {
			latency = fmt.Sprintf("%.1fms", s.LatencyMS)
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\t%.0f%%\t%s\n",
			stateGlyph(s.State), s.Name, s.Host, s.State, latency, s.LossPct, s.Reason)
	}
	w.Flush()

	if *trN > 0 {
		var trs []transition
		url := fmt.Sprintf("%s/api/transitions?limit=%d", *api, *trN)
		if err := getJSON(url, *key, &trs); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fmt.Println()
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "AT\tTARGET\tCHANGE\tREASON")
		for _, tr := range trs {
			fmt.Fprintf(tw, "%s\t%s\t%s -> %s\t%s\n",
				tr.At.Local().Format("2006-01-02 15:04:05"), tr.Target, tr.From, tr.To, tr.Reason)
		}
		tw.Flush()
	}
}

func stateGlyph(state string) string {
	switch state {
	case "healthy":
		return "🟢"
	case "degraded":
		return "🟡"
	case "down":
		return "🔴"
	default:
		return "⚪"
	}
}

func getJSON(url, key string, v any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
