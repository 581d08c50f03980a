package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ovral/netstress/internal/config"
)

const banner = `
+==============================================================+
|                NETWORK STRESS TESTING TOOL                   |
|                   EDUCATIONAL USE ONLY                       |
+==============================================================+
|  WARNING: Only use on networks you own or have permission    |
|  to test. Unauthorized use may be illegal and unethical.     |
+==============================================================+`

// PrintBanner writes the tool banner and the run parameters.
func PrintBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, banner)
	types := make([]string, len(cfg.TestTypes))
	for i, tt := range cfg.TestTypes {
		types[i] = string(tt)
	}
	fmt.Fprintf(w, "Target:       %s:%d\n", cfg.Target, cfg.Port)
	fmt.Fprintf(w, "Test Types:   %s\n", strings.Join(types, ", "))
	fmt.Fprintf(w, "Threads:      %d per test type\n", cfg.Threads)
	fmt.Fprintf(w, "Payload Size: %d bytes\n", cfg.PayloadSize)
	if cfg.Rate > 0 {
		fmt.Fprintf(w, "Rate:         %d attempts/s per worker\n", cfg.Rate)
	} else {
		fmt.Fprintln(w, "Rate:         unlimited")
	}
	if cfg.Duration > 0 {
		fmt.Fprintf(w, "Duration:     %s\n", cfg.Duration.Round(time.Second))
	} else {
		fmt.Fprintln(w, "Duration:     until interrupted (Ctrl+C)")
	}
	fmt.Fprintln(w, strings.Repeat("=", 64))
}

// Confirm asks the operator for explicit authorization. Only the exact
// answer "yes" lets the run proceed.
func Confirm(r io.Reader, w io.Writer) bool {
	fmt.Fprint(w, "\nAre you authorized to test this network? (yes/no): ")
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(scanner.Text()), "yes")
}
