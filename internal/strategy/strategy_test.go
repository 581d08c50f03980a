package strategy_test

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ovral/netstress/internal/capability"
	"github.com/ovral/netstress/internal/config"
	"github.com/ovral/netstress/internal/strategy"
)

func baseConfig(port int) *config.Config {
	return &config.Config{
		Target:         "127.0.0.1",
		Port:           port,
		Threads:        1,
		PayloadSize:    64,
		ConnectTimeout: time.Second,
	}
}

func TestUDPSendsPayload(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	cfg := baseConfig(pc.LocalAddr().(*net.UDPAddr).Port)
	strat, err := strategy.New(config.TestTypeUDP, cfg, capability.Set{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if err := strat.Setup(ctx); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer strat.Teardown()

	out := strat.Attempt(ctx)
	if out.Err != nil {
		t.Fatalf("attempt: %v", out.Err)
	}
	if out.BytesSent != cfg.PayloadSize {
		t.Fatalf("bytes: got %d, want %d", out.BytesSent, cfg.PayloadSize)
	}

	buf := make([]byte, 2048)
	pc.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != cfg.PayloadSize {
		t.Fatalf("received %d bytes, want %d", n, cfg.PayloadSize)
	}
}

func TestTCPConnectsAndWritesProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		got <- line
	}()

	cfg := baseConfig(ln.Addr().(*net.TCPAddr).Port)
	strat, err := strategy.New(config.TestTypeTCP, cfg, capability.Set{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if err := strat.Setup(ctx); err != nil {
		t.Fatalf("setup: %v", err)
	}

	out := strat.Attempt(ctx)
	if out.Err != nil {
		t.Fatalf("attempt: %v", out.Err)
	}
	if !out.Connected {
		t.Fatalf("connection not recorded")
	}
	if out.BytesSent == 0 {
		t.Fatalf("probe not written")
	}
	select {
	case line := <-got:
		if !strings.HasPrefix(line, "GET / HTTP/1.0") {
			t.Fatalf("probe line: %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server saw no request")
	}
}

func TestTCPReportsConnectionRefused(t *testing.T) {
	// Grab a port the kernel just released so nothing is listening on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	strat, err := strategy.New(config.TestTypeTCP, baseConfig(port), capability.Set{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out := strat.Attempt(context.Background())
	if out.Err == nil {
		t.Fatalf("expected connect error")
	}
	if out.Connected {
		t.Fatalf("refused connect marked as connected")
	}
}

func TestHTTPSendsWellFormedRequest(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	got := make(chan []string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		var lines []string
		for {
			line, err := r.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
		got <- lines
	}()

	cfg := baseConfig(ln.Addr().(*net.TCPAddr).Port)
	strat, err := strategy.New(config.TestTypeHTTP, cfg, capability.Set{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out := strat.Attempt(context.Background())
	if out.Err != nil {
		t.Fatalf("attempt: %v", out.Err)
	}
	if !out.Connected {
		t.Fatalf("connection not recorded")
	}

	select {
	case lines := <-got:
		if len(lines) == 0 || !strings.HasPrefix(lines[0], "GET /") {
			t.Fatalf("request line: %v", lines)
		}
		joined := strings.Join(lines, "\n")
		if !strings.Contains(joined, "Host: 127.0.0.1") {
			t.Fatalf("missing host header: %v", lines)
		}
		if !strings.Contains(joined, "Connection: close") {
			t.Fatalf("missing connection header: %v", lines)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server saw no request")
	}
}

func TestSYNDegradesWithoutRawSocket(t *testing.T) {
	strat, err := strategy.New(config.TestTypeSYN, baseConfig(80), capability.Set{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := strat.(*strategy.TCP); !ok {
		t.Fatalf("got %T, want tcp fallback", strat)
	}
}

func TestSYNDegradesForIPv6(t *testing.T) {
	cfg := baseConfig(80)
	cfg.Target = "::1"
	strat, err := strategy.New(config.TestTypeSYN, cfg, capability.Set{RawIP: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := strat.(*strategy.TCP); !ok {
		t.Fatalf("got %T, want tcp fallback", strat)
	}
}

func TestICMPUnavailableWithoutSocketOrPing(t *testing.T) {
	_, err := strategy.New(config.TestTypeICMP, baseConfig(80), capability.Set{})
	if !errors.Is(err, strategy.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestMixedExcludesUnavailableVariants(t *testing.T) {
	strat, err := strategy.New(config.TestTypeMixed, baseConfig(80), capability.Set{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	mixed, ok := strat.(*strategy.Mixed)
	if !ok {
		t.Fatalf("got %T, want mixed", strat)
	}
	names := mixed.Variants()
	sort.Strings(names)
	want := []string{"http", "tcp", "udp"}
	if len(names) != len(want) {
		t.Fatalf("variants: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("variants: got %v, want %v", names, want)
		}
	}
}

func TestMixedIncludesPingFallback(t *testing.T) {
	strat, err := strategy.New(config.TestTypeMixed, baseConfig(80), capability.Set{PingPath: "/bin/ping"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	names := strat.(*strategy.Mixed).Variants()
	found := false
	for _, n := range names {
		if strings.Contains(n, "ping") {
			found = true
		}
	}
	if !found {
		t.Fatalf("variants %v missing ping", names)
	}
}

func TestUnknownTestType(t *testing.T) {
	_, err := strategy.New(config.TestType("bogus"), baseConfig(80), capability.Set{})
	if !errors.Is(err, strategy.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestNewRejectsHostnameTarget(t *testing.T) {
	cfg := baseConfig(80)
	cfg.Target = "example.com"
	if _, err := strategy.New(config.TestTypeUDP, cfg, capability.Set{}); err == nil {
		t.Fatalf("hostname target should be rejected")
	}
}
