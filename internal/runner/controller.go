package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ovral/netstress/internal/capability"
	"github.com/ovral/netstress/internal/config"
	"github.com/ovral/netstress/internal/ratelimit"
	"github.com/ovral/netstress/internal/stats"
	"github.com/ovral/netstress/internal/strategy"
)

// RunState tracks the lifecycle of a run.
type RunState int32

const (
	StateIdle RunState = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("RunState(%d)", int32(s))
}

// Sample is one monitor observation, delivered once per interval.
type Sample struct {
	Stats         stats.Stats
	ActiveWorkers int
}

// Options configure a Controller.
type Options struct {
	Config    *config.Config
	Collector *stats.Collector
	Caps      capability.Set

	// NewStrategy builds the strategy for each worker; defaults to
	// strategy.New. Injectable for tests.
	NewStrategy func(config.TestType, *config.Config, capability.Set) (strategy.Strategy, error)

	// OnSample receives monitor observations at SampleInterval (default 1s).
	OnSample       func(Sample)
	SampleInterval time.Duration

	// JoinTimeout bounds the per-worker wait during Stop (default 2s).
	JoinTimeout time.Duration

	// ErrorLog, when set, receives every per-attempt error (worker id,
	// strategy name, error). Wired to stderr under --verbose.
	ErrorLog func(int, string, error)
}

// Report is the final accounting of a completed run.
type Report struct {
	RunID     string         `json:"run_id"`
	Target    string         `json:"target"`
	Port      int            `json:"port"`
	TestTypes []string       `json:"test_types"`
	Workers   int            `json:"workers"`
	Abandoned int            `json:"abandoned_workers,omitempty"`
	Skipped   []string       `json:"skipped_test_types,omitempty"`
	Stats     stats.Stats    `json:"stats"`
}

// Controller owns configuration, workers and the monitor for one run.
type Controller struct {
	opts    Options
	cfg     *config.Config
	state   atomic.Int32
	running atomic.Bool
	workers []*worker
	skipped []string
	runID   ulid.ULID

	monitorStop chan struct{}
	monitorDone chan struct{}
	start       time.Time
}

// New creates a Controller for a validated configuration. Validate must have
// been called; New does not re-check field ranges.
func New(opts Options) *Controller {
	if opts.NewStrategy == nil {
		opts.NewStrategy = strategy.New
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = time.Second
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = 2 * time.Second
	}
	return &Controller{
		opts:        opts,
		cfg:         opts.Config,
		runID:       ulid.MustNew(ulid.Timestamp(time.Now()), rand.New(rand.NewSource(time.Now().UnixNano()))),
		monitorStop: make(chan struct{}),
		monitorDone: make(chan struct{}),
	}
}

// RunID identifies this run in reports and traces.
func (c *Controller) RunID() string { return c.runID.String() }

// State returns the current lifecycle state.
func (c *Controller) State() RunState {
	return RunState(c.state.Load())
}

// Start transitions Idle to Running and spawns one worker per
// (test type x thread count) pair. Test types whose strategy is unavailable
// even after degradation are skipped; Start fails only when nothing at all
// could be spawned.
func (c *Controller) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("start: run is %s, want idle", c.State())
	}

	id := 0
	for _, tt := range c.cfg.TestTypes {
		spawned := make([]*worker, 0, c.cfg.Threads)
		for i := 0; i < c.cfg.Threads; i++ {
			strat, err := c.opts.NewStrategy(tt, c.cfg, c.opts.Caps)
			if err != nil {
				if errors.Is(err, strategy.ErrUnavailable) {
					c.skipped = append(c.skipped, fmt.Sprintf("%s: %v", tt, err))
					spawned = nil
					break
				}
				c.state.Store(int32(StateStopped))
				return fmt.Errorf("strategy %s: %w", tt, err)
			}
			spawned = append(spawned, &worker{
				id:       id,
				testType: tt,
				strat:    strat,
				pacer:    ratelimit.NewPacer(c.cfg.Rate, c.cfg.Threads),
				done:     make(chan struct{}),
			})
			id++
		}
		c.workers = append(c.workers, spawned...)
	}

	if len(c.workers) == 0 {
		c.state.Store(int32(StateStopped))
		return fmt.Errorf("no test type could be started: %w", strategy.ErrUnavailable)
	}

	c.opts.Collector.Start()
	c.start = c.opts.Collector.StartTime()
	c.running.Store(true)

	for _, w := range c.workers {
		go w.run(ctx, &c.running, c.opts.Collector, c.opts.ErrorLog)
	}
	go c.monitor()

	return nil
}

// Wait blocks for the configured duration, or until the context is
// cancelled when the duration is zero. Either way the run moves to Stopping.
func (c *Controller) Wait(ctx context.Context) {
	if c.cfg.Duration > 0 {
		timer := time.NewTimer(c.cfg.Duration)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	} else {
		<-ctx.Done()
	}
	c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
}

// Stop clears the running flag, joins every worker with the bounded
// per-worker wait, and computes the final report. Workers that miss the
// bound are abandoned; the runtime reclaims their resources.
func (c *Controller) Stop() Report {
	c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
	c.running.Store(false)

	abandoned := 0
	for _, w := range c.workers {
		timer := time.NewTimer(c.opts.JoinTimeout)
		select {
		case <-w.done:
			timer.Stop()
		case <-timer.C:
			abandoned++
		}
	}

	close(c.monitorStop)
	<-c.monitorDone

	c.state.Store(int32(StateStopped))

	elapsed := time.Since(c.start)
	types := make([]string, len(c.cfg.TestTypes))
	for i, tt := range c.cfg.TestTypes {
		types[i] = string(tt)
	}
	return Report{
		RunID:     c.RunID(),
		Target:    c.cfg.Target,
		Port:      c.cfg.Port,
		TestTypes: types,
		Workers:   len(c.workers),
		Abandoned: abandoned,
		Skipped:   append([]string(nil), c.skipped...),
		Stats:     c.opts.Collector.Stats(elapsed),
	}
}

// Skipped lists test types that could not run on this host.
func (c *Controller) Skipped() []string {
	return append([]string(nil), c.skipped...)
}

// monitor samples the collector once per interval until Stop.
func (c *Controller) monitor() {
	defer close(c.monitorDone)
	if c.opts.OnSample == nil {
		<-c.monitorStop
		return
	}

	ticker := time.NewTicker(c.opts.SampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.monitorStop:
			return
		case <-ticker.C:
			c.opts.OnSample(Sample{
				Stats:         c.opts.Collector.Stats(time.Since(c.start)),
				ActiveWorkers: c.activeWorkers(),
			})
		}
	}
}

func (c *Controller) activeWorkers() int {
	active := 0
	for _, w := range c.workers {
		select {
		case <-w.done:
		default:
			active++
		}
	}
	return active
}
