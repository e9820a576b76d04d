package probe

import (
	"context"
	"net"
	"strings"
	"time"
)

// TCPChecker measures reachability by completing a TCP handshake with
// the target. This is the closest platform-delegated equivalent of an
// ICMP echo that does not need raw-socket privileges.
type TCPChecker struct {
	// DefaultPort is joined to hosts given without a port.
	DefaultPort string
	Dialer      *net.Dialer
}

func NewTCPChecker() *TCPChecker {
	return &TCPChecker{
		DefaultPort: "80",
		Dialer:      &net.Dialer{},
	}
}

func (c *TCPChecker) Check(ctx context.Context, host string) Result {
	addr := host
	if !hasPort(addr) {
		port := c.DefaultPort
		if port == "" {
			port = "80"
		}
		addr = net.JoinHostPort(addr, port)
	}

	start := time.Now()
	conn, err := c.Dialer.DialContext(ctx, "tcp", addr)
	lat := time.Since(start).Seconds() * 1000
	if err != nil {
		return Result{Reachable: false, LatencyMS: lat, Reason: "dial_error: " + err.Error()}
	}
	_ = conn.Close()
	return Result{Reachable: true, LatencyMS: lat, Reason: "tcp_connect"}
}

// hasPort reports whether addr already carries a port. Bracketed IPv6
// literals only count when the port follows the closing bracket.
func hasPort(addr string) bool {
	if strings.HasPrefix(addr, "[") {
		return strings.Contains(addr[strings.LastIndex(addr, "]")+1:], ":")
	}
	return strings.Count(addr, ":") == 1
}
