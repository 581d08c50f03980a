// Package capability probes what the process is allowed to do on this host:
// raw IP sockets for crafted packets, ICMP sockets for echo requests, and
// the system ping binary used as the unprivileged fallback.
package capability

import (
	"net/netip"
	"os/exec"

	"golang.org/x/net/icmp"
	"golang.org/x/sys/unix"
)

// Set reports the transmission capabilities available to this process.
// Probed once before workers are created; strategies that need a missing
// capability degrade to their documented fallback or are skipped.
type Set struct {
	// RawIP is true when the process may open AF_INET/SOCK_RAW sockets,
	// needed for crafted SYN packets and source-address spoofing.
	RawIP bool

	// ICMPSocket is true when an ICMP echo socket (raw or unprivileged
	// datagram) can be opened. ICMPNetwork holds the x/net/icmp network
	// string that succeeded, e.g. "ip4:icmp" or "udp4".
	ICMPSocket  bool
	ICMPNetwork string

	// PingPath is the resolved path of the system ping binary, empty when
	// not found. Used when ICMPSocket is false.
	PingPath string
}

// Probe detects available capabilities for the given target address family.
func Probe(target netip.Addr) Set {
	var set Set

	if fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_RAW); err == nil {
		unix.Close(fd)
		set.RawIP = true
	}

	for _, network := range icmpNetworks(target) {
		conn, err := icmp.ListenPacket(network, listenAddr(target))
		if err != nil {
			continue
		}
		conn.Close()
		set.ICMPSocket = true
		set.ICMPNetwork = network
		break
	}

	if path, err := exec.LookPath("ping"); err == nil {
		set.PingPath = path
	}

	return set
}

func icmpNetworks(target netip.Addr) []string {
	if target.Is6() && !target.Is4In6() {
		return []string{"ip6:ipv6-icmp", "udp6"}
	}
	return []string{"ip4:icmp", "udp4"}
}

func listenAddr(target netip.Addr) string {
	if target.Is6() && !target.Is4In6() {
		return "::"
	}
	return "0.0.0.0"
}
