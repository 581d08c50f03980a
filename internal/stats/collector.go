package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records per-attempt outcomes in a thread-safe manner. Increments
// are linearizable; a snapshot reflects every increment completed before the
// snapshot began.
type Collector struct {
	packets     atomic.Int64
	bytes       atomic.Int64
	connections atomic.Int64
	errors      atomic.Int64

	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	errorsByKind map[string]int64

	startOnce sync.Once
	startNano atomic.Int64
}

// Snapshot is a consistent point-in-time copy of the raw counters.
type Snapshot struct {
	Packets     int64
	Bytes       int64
	Connections int64
	Errors      int64
}

// Stats represents aggregated metrics derived from the counters.
type Stats struct {
	Packets        int64         `json:"packets"`
	Bytes          int64         `json:"bytes"`
	Connections    int64         `json:"connections"`
	Errors         int64         `json:"errors"`
	Duration       time.Duration `json:"-"`
	DurationSec    float64       `json:"duration_sec"`
	PacketsPerSec  float64       `json:"packets_per_sec"`
	Mbps           float64       `json:"mbps"`
	SuccessRatio   *float64      `json:"success_ratio,omitempty"` // nil until at least one attempt
	MinLatencyMs   float64       `json:"min_latency_ms"`
	MaxLatencyMs   float64       `json:"max_latency_ms"`
	P50LatencyMs   float64       `json:"p50_latency_ms"`
	P90LatencyMs   float64       `json:"p90_latency_ms"`
	P99LatencyMs   float64       `json:"p99_latency_ms"`
	ErrorsByKind   map[string]int `json:"errors_by_kind,omitempty"`
}

func NewCollector() *Collector {
	// Track attempt latencies from 1µs up to 60s with 3 significant figures.
	return &Collector{
		hist:         hdrhistogram.New(1, 60_000_000, 3),
		errorsByKind: make(map[string]int64),
	}
}

// Start records the run's start timestamp. Only the first call has effect.
func (c *Collector) Start() {
	c.startOnce.Do(func() {
		c.startNano.Store(time.Now().UnixNano())
	})
}

// StartTime returns the recorded start timestamp, zero before Start.
func (c *Collector) StartTime() time.Time {
	nano := c.startNano.Load()
	if nano == 0 {
		return time.Time{}
	}
	return time.Unix(0, nano)
}

// RecordAttempt accounts for one send attempt. A non-nil err increments the
// error counter under its classified kind; bytesSent and connected are
// credited regardless, since a partial send still put bytes on the wire.
func (c *Collector) RecordAttempt(bytesSent int, connected bool, latency time.Duration, err error) {
	c.packets.Add(1)
	if bytesSent > 0 {
		c.bytes.Add(int64(bytesSent))
	}
	if connected {
		c.connections.Add(1)
	}
	if err != nil {
		c.errors.Add(1)
	}

	c.mu.Lock()
	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	if err != nil {
		c.errorsByKind[Classify(err)]++
	}
	c.mu.Unlock()
}

// RecordWorkerFailure accounts for a worker that died in setup. The loss is
// visible as a single error so the final report does not silently shrink.
func (c *Collector) RecordWorkerFailure(err error) {
	c.errors.Add(1)
	c.mu.Lock()
	c.errorsByKind[Classify(err)]++
	c.mu.Unlock()
}

// Snapshot returns the raw counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Packets:     c.packets.Load(),
		Bytes:       c.bytes.Load(),
		Connections: c.connections.Load(),
		Errors:      c.errors.Load(),
	}
}

// Stats computes aggregated statistics over the given elapsed time.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	snap := c.Snapshot()
	stats := Stats{
		Packets:     snap.Packets,
		Bytes:       snap.Bytes,
		Connections: snap.Connections,
		Errors:      snap.Errors,
		Duration:    elapsed,
		DurationSec: elapsed.Seconds(),
	}

	if elapsed > 0 {
		stats.PacketsPerSec = float64(snap.Packets) / elapsed.Seconds()
		stats.Mbps = float64(snap.Bytes) * 8 / 1e6 / elapsed.Seconds()
	}
	if snap.Packets > 0 {
		ratio := float64(snap.Packets-snap.Errors) / float64(snap.Packets)
		stats.SuccessRatio = &ratio
	}

	c.mu.Lock()
	if c.hist.TotalCount() > 0 {
		stats.MinLatencyMs = float64(c.hist.Min()) / 1000
		stats.MaxLatencyMs = float64(c.hist.Max()) / 1000
		stats.P50LatencyMs = float64(c.hist.ValueAtQuantile(50)) / 1000
		stats.P90LatencyMs = float64(c.hist.ValueAtQuantile(90)) / 1000
		stats.P99LatencyMs = float64(c.hist.ValueAtQuantile(99)) / 1000
	}
	if len(c.errorsByKind) > 0 {
		stats.ErrorsByKind = make(map[string]int, len(c.errorsByKind))
		for k, v := range c.errorsByKind {
			stats.ErrorsByKind[k] = int(v)
		}
	}
	c.mu.Unlock()

	return stats
}
