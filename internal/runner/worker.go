package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ovral/netstress/internal/config"
	"github.com/ovral/netstress/internal/ratelimit"
	"github.com/ovral/netstress/internal/stats"
	"github.com/ovral/netstress/internal/strategy"
)

// errorBackoff is the fixed pause after a failed attempt so a dead target
// does not spin a worker at full CPU.
const errorBackoff = 10 * time.Millisecond

// worker owns one goroutine of execution. Created and joined only by the
// Controller; its strategy, pacer and buffers are never shared.
type worker struct {
	id       int
	testType config.TestType
	strat    strategy.Strategy
	pacer    *ratelimit.Pacer
	done     chan struct{}
}

// run is the worker loop: attempt, record, back off on error, pace. It exits
// when the running flag clears, the context is cancelled, or setup failed.
func (w *worker) run(ctx context.Context, running *atomic.Bool, collector *stats.Collector, errorLog func(int, string, error)) {
	defer close(w.done)

	if err := w.strat.Setup(ctx); err != nil {
		collector.RecordWorkerFailure(err)
		if errorLog != nil {
			errorLog(w.id, w.strat.Name(), err)
		}
		return
	}
	defer w.strat.Teardown()

	for running.Load() {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		out := w.strat.Attempt(ctx)
		collector.RecordAttempt(out.BytesSent, out.Connected, time.Since(start), out.Err)

		if out.Err != nil {
			if errorLog != nil {
				errorLog(w.id, w.strat.Name(), out.Err)
			}
			if err := sleepCtx(ctx, errorBackoff); err != nil {
				return
			}
		}

		if err := w.pacer.Wait(ctx); err != nil {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
