package strategy

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/netip"
	"strconv"
	"time"
)

const httpReadLimit = 1024

// HTTP opens a connection per attempt and writes a minimal well-formed
// request with a randomized path, then reads a bounded slice of the
// response so the server does real application-layer work.
type HTTP struct {
	addr    string
	host    string
	timeout time.Duration
	rnd     *rand.Rand
	readBuf []byte
}

func newHTTP(target netip.Addr, port int, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	host := target.String()
	if target.Is6() && !target.Is4In6() {
		host = "[" + host + "]"
	}
	return &HTTP{
		addr:    net.JoinHostPort(target.String(), strconv.Itoa(port)),
		host:    host,
		timeout: timeout,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		readBuf: make([]byte, httpReadLimit),
	}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Setup(ctx context.Context) error { return nil }

func (h *HTTP) Attempt(ctx context.Context) Outcome {
	dialer := net.Dialer{Timeout: h.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", h.addr)
	if err != nil {
		return Outcome{Err: err}
	}
	defer conn.Close()

	request := fmt.Sprintf(
		"GET /%d HTTP/1.1\r\nHost: %s\r\nUser-Agent: netstress/1.0\r\nConnection: close\r\n\r\n",
		h.rnd.Intn(10000)+1, h.host,
	)

	out := Outcome{Connected: true}
	conn.SetDeadline(time.Now().Add(h.timeout))
	n, err := conn.Write([]byte(request))
	out.BytesSent = n
	if err != nil {
		out.Err = err
		return out
	}

	// Read a bounded slice of the response; failures here are the
	// target's problem, not ours.
	conn.Read(h.readBuf)
	return out
}

func (h *HTTP) Teardown() error { return nil }
