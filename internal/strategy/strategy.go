// Package strategy implements one send attempt per protocol variant.
//
// A Strategy is a pure function of the run configuration: Attempt performs a
// single delivery attempt and reports what happened. Errors during an
// attempt never escape as faults; they come back inside the Outcome.
// Setup is the only fatal surface, and it kills just the worker that owns
// the strategy instance.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/ovral/netstress/internal/capability"
	"github.com/ovral/netstress/internal/config"
)

// Outcome reports one completed send attempt.
type Outcome struct {
	BytesSent int
	Connected bool
	Err       error
}

// Strategy is a single protocol variant. Instances are worker-private;
// none of the methods need to be goroutine-safe.
type Strategy interface {
	Name() string
	// Setup acquires per-worker resources where the variant reuses a
	// socket across attempts. Variants that open per attempt do nothing.
	Setup(ctx context.Context) error
	Attempt(ctx context.Context) Outcome
	Teardown() error
}

// ErrUnavailable is returned by New when a test type cannot run on this
// host even after degradation.
var ErrUnavailable = errors.New("strategy unavailable on this host")

// New builds the strategy instance for a test type, degrading variants
// whose capability is missing: syn falls back to tcp, icmp falls back to
// the system ping binary. A worker gets its own instance.
func New(tt config.TestType, cfg *config.Config, caps capability.Set) (Strategy, error) {
	target, err := netip.ParseAddr(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", cfg.Target, err)
	}

	switch tt {
	case config.TestTypeUDP:
		return newUDP(target, cfg.Port, cfg.PayloadSize), nil
	case config.TestTypeTCP:
		return newTCP(target, cfg.Port, cfg.ConnectTimeout), nil
	case config.TestTypeSYN:
		if !caps.RawIP || target.Is6() {
			// Crafted SYN needs a raw IPv4 socket; real connects still
			// exercise the listener's accept path.
			return newTCP(target, cfg.Port, cfg.ConnectTimeout), nil
		}
		return newSYN(target, cfg.Port, cfg.Spoof), nil
	case config.TestTypeICMP:
		if caps.ICMPSocket {
			return newICMP(target, caps.ICMPNetwork, cfg.PayloadSize), nil
		}
		if caps.PingPath != "" {
			return newPing(caps.PingPath, cfg.Target), nil
		}
		return nil, fmt.Errorf("icmp: no echo socket and no ping binary: %w", ErrUnavailable)
	case config.TestTypeHTTP:
		return newHTTP(target, cfg.Port, cfg.ConnectTimeout), nil
	case config.TestTypeMixed:
		return newMixed(cfg, caps, target)
	}
	return nil, fmt.Errorf("test type %q: %w", tt, ErrUnavailable)
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
