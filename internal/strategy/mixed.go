package strategy

import (
	"context"
	"fmt"
	"math/rand"
	"net/netip"
	"time"

	"github.com/ovral/netstress/internal/capability"
	"github.com/ovral/netstress/internal/config"
)

// Mixed selects uniformly at random among the other variants on every
// attempt. Variants whose capability is missing are excluded up front, so
// an unavailable variant is never invoked.
type Mixed struct {
	variants []Strategy
	rnd      *rand.Rand
}

func newMixed(cfg *config.Config, caps capability.Set, target netip.Addr) (*Mixed, error) {
	variants := []Strategy{
		newUDP(target, cfg.Port, cfg.PayloadSize),
		newTCP(target, cfg.Port, cfg.ConnectTimeout),
		newHTTP(target, cfg.Port, cfg.ConnectTimeout),
	}
	if caps.RawIP && !target.Is6() {
		variants = append(variants, newSYN(target, cfg.Port, cfg.Spoof))
	}
	switch {
	case caps.ICMPSocket:
		variants = append(variants, newICMP(target, caps.ICMPNetwork, cfg.PayloadSize))
	case caps.PingPath != "":
		variants = append(variants, newPing(caps.PingPath, cfg.Target))
	}

	return &Mixed{
		variants: variants,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (m *Mixed) Name() string { return "mixed" }

// Setup prepares every candidate variant, dropping the ones whose setup
// fails so a single missing capability does not kill the worker.
func (m *Mixed) Setup(ctx context.Context) error {
	ready := m.variants[:0]
	for _, v := range m.variants {
		if err := v.Setup(ctx); err != nil {
			continue
		}
		ready = append(ready, v)
	}
	m.variants = ready
	if len(m.variants) == 0 {
		return fmt.Errorf("mixed: no variant could be set up: %w", ErrUnavailable)
	}
	return nil
}

func (m *Mixed) Attempt(ctx context.Context) Outcome {
	return m.variants[m.rnd.Intn(len(m.variants))].Attempt(ctx)
}

func (m *Mixed) Teardown() error {
	var firstErr error
	for _, v := range m.variants {
		if err := v.Teardown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Variants exposes the active variant names, for banner output.
func (m *Mixed) Variants() []string {
	names := make([]string, len(m.variants))
	for i, v := range m.variants {
		names[i] = v.Name()
	}
	return names
}
