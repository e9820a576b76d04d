package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hamed0406/netwatch/internal/config"
	"github.com/hamed0406/netwatch/internal/probe"
)

func main() {
	configPath := flag.String("config", "", "path to config file (YAML)")
	timeout := flag.Duration("timeout", 5*time.Second, "DNS lookup timeout per target")
	flag.Parse()

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		fail(err.Error())
	}
	ok(fmt.Sprintf("config valid: %d target(s), interval %s, timeout %s",
		len(cfg.Targets), cfg.Interval(), cfg.ProbeTimeout()))

	if len(cfg.API.PublicAPIKeys) == 0 && len(cfg.API.AdminAPIKeys) == 0 {
		warn("no API keys configured — every route is open")
	} else if len(cfg.API.AdminAPIKeys) == 0 {
		warn("api.admin_keys empty — target registration is open")
	}
	if cfg.Notify.SlackWebhook == "" && cfg.Notify.WebhookURL == "" {
		warn("no notification sink configured — alerts go to the log only")
	}
	if cfg.DatabaseURL == "" {
		warn("database_url empty — alert state and transitions live in memory only")
	}

	bad := 0
	for _, t := range cfg.Targets {
		host := probe.HostOnly(t.Host)
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		st := probe.CheckDNS(ctx, host)
		cancel()

		switch st.Class {
		case probe.DNSResolves:
			ok(fmt.Sprintf("%s: %s resolves (%d address(es))", t.Name, host, len(st.IPs)))
		case probe.DNSNoARecord:
			warn(fmt.Sprintf("%s: %s is delegated but has no address records", t.Name, host))
		case probe.DNSServFail:
			warn(fmt.Sprintf("%s: %s lookup failed, possibly transient (%s)", t.Name, host, st.ResolverError))
		default:
			bad++
			fmt.Fprintln(os.Stderr, "✖", fmt.Sprintf("%s: %s %s (%s)", t.Name, host, st.Class, st.ResolverError))
		}
	}
	if bad > 0 {
		fail(fmt.Sprintf("%d target(s) failed DNS preflight", bad))
	}

	ok("preflight passed")
}
