package capability_test

import (
	"net/netip"
	"testing"

	"github.com/ovral/netstress/internal/capability"
)

// Probe results depend on privileges, so assert internal consistency rather
// than specific capabilities.
func TestProbeConsistency(t *testing.T) {
	set := capability.Probe(netip.MustParseAddr("127.0.0.1"))
	if set.ICMPSocket && set.ICMPNetwork == "" {
		t.Fatalf("icmp socket reported without a network: %+v", set)
	}
	if !set.ICMPSocket && set.ICMPNetwork != "" {
		t.Fatalf("icmp network without a socket: %+v", set)
	}
}

func TestProbeIPv6UsesV6Networks(t *testing.T) {
	set := capability.Probe(netip.MustParseAddr("::1"))
	if set.ICMPSocket {
		switch set.ICMPNetwork {
		case "ip6:ipv6-icmp", "udp6":
		default:
			t.Fatalf("v6 probe picked %q", set.ICMPNetwork)
		}
	}
}
