package strategy

import (
	"context"
	"os/exec"
	"runtime"
	"time"
)

const pingTimeout = 2 * time.Second

// Ping shells out to the system ping binary for a single echo request. It is
// the fallback for the icmp test type when no ICMP socket can be opened.
type Ping struct {
	path   string
	target string
}

func newPing(path, target string) *Ping {
	return &Ping{path: path, target: target}
}

func (p *Ping) Name() string { return "icmp (system ping)" }

func (p *Ping) Setup(ctx context.Context) error { return nil }

func (p *Ping) Attempt(ctx context.Context) Outcome {
	runCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.path, p.args()...)
	if err := cmd.Run(); err != nil {
		return Outcome{Err: err}
	}
	return Outcome{}
}

func (p *Ping) Teardown() error { return nil }

func (p *Ping) args() []string {
	if runtime.GOOS == "windows" {
		return []string{"-n", "1", "-w", "1000", p.target}
	}
	return []string{"-c", "1", "-W", "1", p.target}
}
