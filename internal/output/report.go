package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"github.com/ovral/netstress/internal/runner"
)

// PrintReport outputs the human-readable final statistics block.
func PrintReport(w io.Writer, report runner.Report) {
	s := report.Stats
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, "FINAL STATISTICS")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Run ID:          %s\n", report.RunID)
	fmt.Fprintf(w, "Target:          %s:%d (%s)\n", report.Target, report.Port, strings.Join(report.TestTypes, ", "))
	fmt.Fprintf(w, "Duration:        %.2f seconds\n", s.DurationSec)
	fmt.Fprintf(w, "Total Packets:   %d\n", s.Packets)
	fmt.Fprintf(w, "Total Bytes:     %d (%.2f MB)\n", s.Bytes, float64(s.Bytes)/(1024*1024))
	fmt.Fprintf(w, "Connections:     %d\n", s.Connections)
	fmt.Fprintf(w, "Average PPS:     %.1f\n", s.PacketsPerSec)
	fmt.Fprintf(w, "Average Mbps:    %.2f\n", s.Mbps)
	fmt.Fprintf(w, "Errors:          %d\n", s.Errors)
	if s.SuccessRatio != nil {
		fmt.Fprintf(w, "Success Rate:    %.1f%%\n", *s.SuccessRatio*100)
	} else {
		fmt.Fprintln(w, "Success Rate:    N/A")
	}
	if s.P50LatencyMs > 0 || s.P99LatencyMs > 0 {
		fmt.Fprintf(w, "Attempt Latency: p50 %.2fms / p90 %.2fms / p99 %.2fms (max %.2fms)\n",
			s.P50LatencyMs, s.P90LatencyMs, s.P99LatencyMs, s.MaxLatencyMs)
	}
	if report.Abandoned > 0 {
		fmt.Fprintf(w, "Abandoned:       %d worker(s) missed the join deadline\n", report.Abandoned)
	}
	for _, skipped := range report.Skipped {
		fmt.Fprintf(w, "Skipped:         %s\n", skipped)
	}
	if len(s.ErrorsByKind) > 0 {
		fmt.Fprintln(w, "\nErrors by kind:")
		kinds := make([]string, 0, len(s.ErrorsByKind))
		for kind := range s.ErrorsByKind {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(w, "  %-28s %d\n", kind, s.ErrorsByKind[kind])
		}
	}
	fmt.Fprintln(w, rule)
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report runner.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteReportFile persists the JSON report to path. A file lock serializes
// concurrent runs pointed at the same report path.
func WriteReportFile(path string, report runner.Report) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock report file: %w", err)
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := PrintJSONReport(f, report); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}
