package probe

import (
	"context"
	"net"
	"net/url"
	"time"
)

// DNSChecker treats a target as reachable when its name resolves to at
// least one address. Useful for targets that refuse connections but
// whose presence in DNS is the thing being watched.
type DNSChecker struct{}

func NewDNSChecker() *DNSChecker {
	return &DNSChecker{}
}

func (d *DNSChecker) Check(ctx context.Context, host string) Result {
	start := time.Now()
	dns := CheckDNS(ctx, HostOnly(host))
	lat := time.Since(start).Seconds() * 1000

	if dns.Class == DNSResolves {
		return Result{Reachable: true, LatencyMS: lat, Reason: string(dns.Class)}
	}
	return Result{Reachable: false, LatencyMS: lat, Reason: string(dns.Class)}
}

// HostOnly strips any scheme, port, or path from a target so the bare
// name can be handed to the resolver.
func HostOnly(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	if h, _, err := net.SplitHostPort(raw); err == nil {
		return h
	}
	return raw
}
