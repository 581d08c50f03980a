// Package ratelimit paces each worker's send loop toward a target rate.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer throttles one worker toward a per-worker target rate. Two mechanisms
// cooperate: a rolling one-second window that sleeps out the remainder once
// the allotment is spent, and a rate.Limiter that spaces attempts by
// 1/(rate*workers) to smooth bursts inside the window. The target rate is an
// upper bound approached, not a real-time guarantee.
//
// A Pacer is owned by a single worker and must not be shared.
type Pacer struct {
	allot       int
	smoother    *rate.Limiter
	windowStart time.Time
	count       int
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
}

// NewPacer builds a pacer for one of workerCount workers sharing the same
// per-worker target rate. perWorkerRate <= 0 disables pacing entirely.
func NewPacer(perWorkerRate, workerCount int) *Pacer {
	p := &Pacer{
		allot: perWorkerRate,
		now:   time.Now,
		sleep: sleepCtx,
	}
	if perWorkerRate > 0 && workerCount > 0 {
		aggregate := perWorkerRate * workerCount
		p.smoother = rate.NewLimiter(rate.Limit(aggregate), 1)
	}
	return p
}

// Wait applies the post-attempt delay. It returns early with the context's
// error when the context is cancelled mid-sleep.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.allot <= 0 {
		return nil
	}

	if p.windowStart.IsZero() {
		p.windowStart = p.now()
	}

	p.count++
	elapsed := p.now().Sub(p.windowStart)
	switch {
	case elapsed >= time.Second:
		p.windowStart = p.now()
		p.count = 0
	case p.count > p.allot:
		if err := p.sleep(ctx, time.Second-elapsed); err != nil {
			return err
		}
		p.windowStart = p.now()
		p.count = 0
	}

	if p.smoother != nil {
		return p.smoother.Wait(ctx)
	}
	return nil
}

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
