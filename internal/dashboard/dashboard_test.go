package dashboard

import (
	"testing"
	"time"

	"github.com/ovral/netstress/internal/runner"
)

// newHeadless builds a Dashboard without initializing the terminal, so
// lifecycle behavior can be tested outside a TTY.
func newHeadless() *Dashboard {
	return &Dashboard{
		samples:  make(chan runner.Sample, 4),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// A run that fails before the event loop launches still stops the dashboard
// on its error path; Stop must return instead of waiting for a loop that was
// never started.
func TestStopWithoutStart(t *testing.T) {
	d := newHeadless()

	returned := make(chan struct{})
	go func() {
		d.Stop()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("Stop blocked with no event loop running")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d := newHeadless()
	d.Stop()
	// A second call must not panic on the already-closed channel.
	d.Stop()
}

func TestUpdateNeverBlocks(t *testing.T) {
	d := newHeadless()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			d.Update(runner.Sample{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Update blocked with no consumer draining samples")
	}
}
