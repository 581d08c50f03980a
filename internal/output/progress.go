package output

import (
	"fmt"
	"io"

	"github.com/ovral/netstress/internal/runner"
)

// ProgressReporter renders the live one-line status. It is driven by the
// controller's monitor samples rather than its own ticker, so the line and
// the dashboard can never disagree about what was measured.
type ProgressReporter struct {
	writer io.Writer
	wrote  bool
}

// NewProgressReporter creates a reporter writing to w.
func NewProgressReporter(w io.Writer) *ProgressReporter {
	if w == nil {
		w = io.Discard
	}
	return &ProgressReporter{writer: w}
}

// Update rewrites the status line in place.
func (p *ProgressReporter) Update(sample runner.Sample) {
	s := sample.Stats
	fmt.Fprintf(p.writer,
		"\r[%6.1fs] Packets: %d | Rate: %.1f pps | Bandwidth: %.2f Mbps | Errors: %d | Workers: %d",
		s.DurationSec, s.Packets, s.PacketsPerSec, s.Mbps, s.Errors, sample.ActiveWorkers)
	p.wrote = true
}

// Finish terminates the status line so the report starts on a fresh row.
func (p *ProgressReporter) Finish() {
	if p.wrote {
		fmt.Fprintln(p.writer)
	}
}
