package probe

import (
	"context"
	"strings"
	"time"
)

// AutoChecker picks a probe method from the target's shape: hosts with
// a URL scheme go through HTTP, everything else through a TCP dial.
// When a TCP dial fails it consults DNS so the reason distinguishes a
// dead host from a name that never resolved.
type AutoChecker struct {
	HTTP *HTTPChecker
	TCP  *TCPChecker
}

func NewAutoChecker(timeout time.Duration) *AutoChecker {
	return &AutoChecker{
		HTTP: NewHTTPChecker(timeout),
		TCP:  NewTCPChecker(),
	}
}

func (a *AutoChecker) Check(ctx context.Context, host string) Result {
	if strings.Contains(host, "://") {
		return a.HTTP.Check(ctx, host)
	}

	res := a.TCP.Check(ctx, host)
	if res.Reachable {
		return res
	}
	if dns := CheckDNS(ctx, HostOnly(host)); dns.Class != DNSResolves {
		res.Reason = res.Reason + " (dns: " + string(dns.Class) + ")"
	}
	return res
}
