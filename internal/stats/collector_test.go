package stats_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/ovral/netstress/internal/stats"
)

// TestCollectorConcurrentIncrements verifies no update is lost under
// concurrent writers.
func TestCollectorConcurrentIncrements(t *testing.T) {
	c := stats.NewCollector()

	const writers = 16
	const perWriter = 2000

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				var err error
				if j%10 == 0 {
					err = errors.New("boom")
				}
				c.RecordAttempt(64, j%2 == 0, time.Microsecond, err)
			}
		}(i)
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.Packets != writers*perWriter {
		t.Fatalf("packets: got %d, want %d", snap.Packets, writers*perWriter)
	}
	if snap.Bytes != writers*perWriter*64 {
		t.Fatalf("bytes: got %d, want %d", snap.Bytes, writers*perWriter*64)
	}
	if snap.Connections != writers*perWriter/2 {
		t.Fatalf("connections: got %d, want %d", snap.Connections, writers*perWriter/2)
	}
	if snap.Errors != writers*perWriter/10 {
		t.Fatalf("errors: got %d, want %d", snap.Errors, writers*perWriter/10)
	}
}

// TestCollectorMonotonic samples snapshots while writers run and asserts
// every counter only ever grows.
func TestCollectorMonotonic(t *testing.T) {
	c := stats.NewCollector()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					c.RecordAttempt(10, true, 0, nil)
				}
			}
		}()
	}

	var prev stats.Snapshot
	for i := 0; i < 500; i++ {
		snap := c.Snapshot()
		if snap.Packets < prev.Packets || snap.Bytes < prev.Bytes ||
			snap.Connections < prev.Connections || snap.Errors < prev.Errors {
			t.Fatalf("counter went backwards: %+v after %+v", snap, prev)
		}
		prev = snap
	}
	close(done)
	wg.Wait()
}

func TestCollectorStartIsRecordedOnce(t *testing.T) {
	c := stats.NewCollector()
	if !c.StartTime().IsZero() {
		t.Fatalf("start time should be zero before Start")
	}
	c.Start()
	first := c.StartTime()
	time.Sleep(5 * time.Millisecond)
	c.Start()
	if !c.StartTime().Equal(first) {
		t.Fatalf("start time moved: %s -> %s", first, c.StartTime())
	}
}

func TestStatsDerivation(t *testing.T) {
	c := stats.NewCollector()

	s := c.Stats(time.Second)
	if s.SuccessRatio != nil {
		t.Fatalf("success ratio should be undefined with no attempts")
	}

	for i := 0; i < 10; i++ {
		var err error
		if i < 2 {
			err = errors.New("boom")
		}
		c.RecordAttempt(100, false, time.Millisecond, err)
	}

	s = c.Stats(2 * time.Second)
	if s.Packets != 10 || s.Bytes != 1000 || s.Errors != 2 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.PacketsPerSec != 5 {
		t.Fatalf("pps: got %g, want 5", s.PacketsPerSec)
	}
	if s.SuccessRatio == nil || *s.SuccessRatio != 0.8 {
		t.Fatalf("success ratio: got %v, want 0.8", s.SuccessRatio)
	}
	if s.P50LatencyMs <= 0 {
		t.Fatalf("latency percentiles missing: %+v", s)
	}
	if s.ErrorsByKind["*errors.errorString"] != 2 {
		t.Fatalf("error kinds: %v", s.ErrorsByKind)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "cancelled"},
		{syscall.ECONNREFUSED, "connection refused"},
		{syscall.ECONNRESET, "connection reset"},
		{syscall.ENETUNREACH, "unreachable"},
		{syscall.EPERM, "permission denied"},
		{&net.OpError{Op: "write", Err: syscall.ECONNREFUSED}, "connection refused"},
	}
	for _, tc := range tests {
		if got := stats.Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v): got %q, want %q", tc.err, got, tc.want)
		}
	}
	if got := stats.Classify(nil); got != "" {
		t.Fatalf("Classify(nil): got %q", got)
	}
}
