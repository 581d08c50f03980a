package strategy

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/netip"
)

// UDP sends one connectionless datagram per attempt. The socket is acquired
// once at Setup and reused for the worker's lifetime.
type UDP struct {
	addr    *net.UDPAddr
	conn    *net.UDPConn
	payload []byte
}

func newUDP(target netip.Addr, port, payloadSize int) *UDP {
	payload := make([]byte, payloadSize)
	// Random payload so nothing on the path can dedupe or compress it away.
	rand.Read(payload)
	return &UDP{
		addr:    net.UDPAddrFromAddrPort(netip.AddrPortFrom(target, uint16(port))),
		payload: payload,
	}
}

func (u *UDP) Name() string { return "udp" }

func (u *UDP) Setup(ctx context.Context) error {
	conn, err := net.DialUDP("udp", nil, u.addr)
	if err != nil {
		return fmt.Errorf("udp socket: %w", err)
	}
	u.conn = conn
	return nil
}

func (u *UDP) Attempt(ctx context.Context) Outcome {
	n, err := u.conn.Write(u.payload)
	return Outcome{BytesSent: n, Err: err}
}

func (u *UDP) Teardown() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
