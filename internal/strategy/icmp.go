package strategy

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/netip"
	"strings"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// icmpHeaderAllowance is the IP header plus ICMP header size subtracted from
// the configured packet size so the on-wire packet matches it.
const icmpHeaderAllowance = 28

// ICMP emits one echo request per attempt with randomized identifier and
// sequence. The socket (raw or unprivileged datagram, whichever the
// capability probe found) is opened once at Setup.
type ICMP struct {
	target  netip.Addr
	network string
	conn    *icmp.PacketConn
	dst     net.Addr
	rnd     *rand.Rand
	payload []byte
}

func newICMP(target netip.Addr, network string, packetSize int) *ICMP {
	payloadLen := packetSize - icmpHeaderAllowance
	if payloadLen < 0 {
		payloadLen = 0
	}
	payload := make([]byte, payloadLen)
	for i := range payload {
		payload[i] = 'A'
	}
	return &ICMP{
		target:  target,
		network: network,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		payload: payload,
	}
}

func (p *ICMP) Name() string { return "icmp" }

func (p *ICMP) Setup(ctx context.Context) error {
	conn, err := icmp.ListenPacket(p.network, listenWildcard(p.target))
	if err != nil {
		return fmt.Errorf("icmp socket: %w", err)
	}
	p.conn = conn

	ip := net.IP(p.target.AsSlice())
	if strings.HasPrefix(p.network, "udp") {
		p.dst = &net.UDPAddr{IP: ip}
	} else {
		p.dst = &net.IPAddr{IP: ip}
	}
	return nil
}

func (p *ICMP) Attempt(ctx context.Context) Outcome {
	msg := icmp.Message{
		Type: p.echoType(),
		Body: &icmp.Echo{
			ID:   p.rnd.Intn(65535) + 1,
			Seq:  p.rnd.Intn(65535) + 1,
			Data: p.payload,
		},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return Outcome{Err: err}
	}

	n, err := p.conn.WriteTo(wire, p.dst)
	return Outcome{BytesSent: n, Err: err}
}

func (p *ICMP) Teardown() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func (p *ICMP) echoType() icmp.Type {
	if p.target.Is6() && !p.target.Is4In6() {
		return ipv6.ICMPTypeEchoRequest
	}
	return ipv4.ICMPTypeEcho
}

func listenWildcard(target netip.Addr) string {
	if target.Is6() && !target.Is4In6() {
		return "::"
	}
	return "0.0.0.0"
}
