package strategy

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"time"
)

// tcpHold keeps each established connection open briefly so the target's
// connection table carries the load, matching real connect-flood behavior.
const tcpHold = 100 * time.Millisecond

// tcpProbe is the minimal request written after a successful connect.
var tcpProbe = []byte("GET / HTTP/1.0\r\n\r\n")

// TCP opens a full connection per attempt, writes a minimal request, holds
// the session briefly and releases it. Nothing is reused across attempts.
type TCP struct {
	addr    string
	timeout time.Duration
}

func newTCP(target netip.Addr, port int, timeout time.Duration) *TCP {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &TCP{
		addr:    net.JoinHostPort(target.String(), strconv.Itoa(port)),
		timeout: timeout,
	}
}

func (t *TCP) Name() string { return "tcp" }

func (t *TCP) Setup(ctx context.Context) error { return nil }

func (t *TCP) Attempt(ctx context.Context) Outcome {
	dialer := net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return Outcome{Err: err}
	}
	defer conn.Close()

	out := Outcome{Connected: true}
	n, err := conn.Write(tcpProbe)
	out.BytesSent = n
	if err != nil {
		out.Err = err
		return out
	}

	if err := sleepCtx(ctx, tcpHold); err != nil {
		out.Err = err
	}
	return out
}

func (t *TCP) Teardown() error { return nil }
