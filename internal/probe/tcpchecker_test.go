package probe

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestTCPChecker_OpenPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	chk := NewTCPChecker()
	out := chk.Check(context.Background(), ln.Addr().String())
	if !out.Reachable {
		t.Fatalf("want reachable, got %+v", out)
	}
	if out.Reason != "tcp_connect" {
		t.Fatalf("want reason tcp_connect, got %q", out.Reason)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("latency should be >= 0, got %f", out.LatencyMS)
	}
}

func TestTCPChecker_ClosedPort(t *testing.T) {
	// Bind then close so the port is known free.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	chk := NewTCPChecker()
	out := chk.Check(context.Background(), addr)
	if out.Reachable {
		t.Fatalf("want unreachable, got %+v", out)
	}
	if !strings.HasPrefix(out.Reason, "dial_error") {
		t.Fatalf("want dial_error reason, got %q", out.Reason)
	}
}

func TestTCPChecker_DefaultPortApplied(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	_, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	chk := NewTCPChecker()
	chk.DefaultPort = port
	out := chk.Check(context.Background(), "127.0.0.1")
	if !out.Reachable {
		t.Fatalf("want reachable via default port, got %+v", out)
	}
}

func TestTCPChecker_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chk := NewTCPChecker()
	out := chk.Check(ctx, "127.0.0.1:1")
	if out.Reachable {
		t.Fatalf("want unreachable with canceled context, got %+v", out)
	}
}

func TestHasPort(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"example.com", false},
		{"example.com:443", true},
		{"10.0.0.1", false},
		{"10.0.0.1:22", true},
		{"[::1]", false},
		{"[::1]:8080", true},
	}
	for _, c := range cases {
		if got := hasPort(c.addr); got != c.want {
			t.Fatalf("hasPort(%q) = %v, want %v", c.addr, got, c.want)
		}
	}
}

func TestAutoChecker_SchemeRoutesToHTTP(t *testing.T) {
	chk := NewAutoChecker(time.Second)
	out := chk.Check(context.Background(), "http://127.0.0.1:1")
	if out.Reachable {
		t.Fatalf("want unreachable, got %+v", out)
	}
	if !strings.HasPrefix(out.Reason, "http_error") {
		t.Fatalf("want http_error reason, got %q", out.Reason)
	}
}

func TestAutoChecker_BareHostRoutesToTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	chk := NewAutoChecker(time.Second)
	out := chk.Check(context.Background(), ln.Addr().String())
	if !out.Reachable {
		t.Fatalf("want reachable, got %+v", out)
	}
	if out.Reason != "tcp_connect" {
		t.Fatalf("want tcp_connect reason, got %q", out.Reason)
	}
}
