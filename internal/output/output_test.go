package output_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ovral/netstress/internal/config"
	"github.com/ovral/netstress/internal/output"
	"github.com/ovral/netstress/internal/runner"
	"github.com/ovral/netstress/internal/stats"
)

func sampleReport() runner.Report {
	ratio := 0.9
	return runner.Report{
		RunID:     "01JX0000000000000000000000",
		Target:    "127.0.0.1",
		Port:      8080,
		TestTypes: []string{"udp", "tcp"},
		Workers:   20,
		Stats: stats.Stats{
			Packets:       1000,
			Bytes:         64000,
			Connections:   500,
			Errors:        100,
			DurationSec:   10,
			PacketsPerSec: 100,
			Mbps:          0.0512,
			SuccessRatio:  &ratio,
			ErrorsByKind:  map[string]int{"timeout": 100},
		},
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	output.PrintReport(&buf, sampleReport())
	text := buf.String()

	for _, want := range []string{
		"FINAL STATISTICS",
		"127.0.0.1:8080 (udp, tcp)",
		"Total Packets:   1000",
		"Success Rate:    90.0%",
		"timeout",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

func TestPrintReportWithoutAttempts(t *testing.T) {
	var buf bytes.Buffer
	report := runner.Report{RunID: "x", Target: "127.0.0.1", Port: 80, TestTypes: []string{"udp"}}
	output.PrintReport(&buf, report)
	if !strings.Contains(buf.String(), "Success Rate:    N/A") {
		t.Fatalf("empty run should report N/A success rate:\n%s", buf.String())
	}
}

func TestPrintJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := output.PrintJSONReport(&buf, sampleReport()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	doc := buf.String()
	if !gjson.Valid(doc) {
		t.Fatalf("invalid json:\n%s", doc)
	}
	if got := gjson.Get(doc, "target").String(); got != "127.0.0.1" {
		t.Fatalf("target: got %q", got)
	}
	if got := gjson.Get(doc, "stats.packets").Int(); got != 1000 {
		t.Fatalf("packets: got %d", got)
	}
	if got := gjson.Get(doc, "stats.success_ratio").Float(); got != 0.9 {
		t.Fatalf("success ratio: got %g", got)
	}
	if got := gjson.Get(doc, "stats.errors_by_kind.timeout").Int(); got != 100 {
		t.Fatalf("timeout count: got %d", got)
	}
	if gjson.Get(doc, "abandoned_workers").Exists() {
		t.Fatalf("zero abandoned workers should be omitted:\n%s", doc)
	}
}

func TestJSONReportOmitsSuccessRatioWhenUndefined(t *testing.T) {
	var buf bytes.Buffer
	report := runner.Report{RunID: "x", Target: "127.0.0.1", TestTypes: []string{"udp"}}
	if err := output.PrintJSONReport(&buf, report); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if gjson.Get(buf.String(), "stats.success_ratio").Exists() {
		t.Fatalf("undefined success ratio should be omitted:\n%s", buf.String())
	}
}

func TestWriteReportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := output.WriteReportFile(path, sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got := gjson.GetBytes(data, "run_id").String(); got != "01JX0000000000000000000000" {
		t.Fatalf("run id: got %q", got)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"no\n", false},
		{"y\n", false},
		{"", false},
	}
	for _, tc := range tests {
		var out bytes.Buffer
		got := output.Confirm(strings.NewReader(tc.input), &out)
		if got != tc.want {
			t.Fatalf("Confirm(%q): got %v, want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "authorized") {
			t.Fatalf("prompt missing: %q", out.String())
		}
	}
}

func TestPrintBanner(t *testing.T) {
	cfg := &config.Config{
		Target:      "192.0.2.1",
		Port:        80,
		TestTypes:   []config.TestType{config.TestTypeUDP},
		Threads:     10,
		PayloadSize: 1024,
		Duration:    30 * time.Second,
	}
	var buf bytes.Buffer
	output.PrintBanner(&buf, cfg)
	text := buf.String()
	for _, want := range []string{
		"EDUCATIONAL USE ONLY",
		"192.0.2.1:80",
		"Rate:         unlimited",
		"Duration:     30s",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("banner missing %q:\n%s", want, text)
		}
	}
}
