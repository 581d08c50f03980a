package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ovral/netstress/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Target:      "127.0.0.1",
		Port:        80,
		TestTypes:   []config.TestType{config.TestTypeUDP},
		Threads:     10,
		PayloadSize: 1024,
		Tracing:     config.TracingConfig{SampleRate: 1.0},
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateAcceptsIPv6Target(t *testing.T) {
	cfg := validConfig()
	cfg.Target = "::1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

// TestValidateRejections checks every out-of-range field yields a
// ValidationError naming the offending field.
func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*config.Config)
		wantField string
	}{
		{"zero threads", func(c *config.Config) { c.Threads = 0 }, "threads"},
		{"too many threads", func(c *config.Config) { c.Threads = 1001 }, "threads"},
		{"zero payload", func(c *config.Config) { c.PayloadSize = 0 }, "payload-size"},
		{"oversized payload", func(c *config.Config) { c.PayloadSize = 65508 }, "payload-size"},
		{"negative rate", func(c *config.Config) { c.Rate = -1 }, "rate"},
		{"negative duration", func(c *config.Config) { c.Duration = -time.Second }, "duration"},
		{"empty test types", func(c *config.Config) { c.TestTypes = nil }, "test-types"},
		{"unknown test type", func(c *config.Config) { c.TestTypes = []config.TestType{"teardrop"} }, "test-types"},
		{"duplicate test type", func(c *config.Config) {
			c.TestTypes = []config.TestType{config.TestTypeUDP, config.TestTypeUDP}
		}, "test-types"},
		{"missing target", func(c *config.Config) { c.Target = "" }, "target"},
		{"hostname target", func(c *config.Config) { c.Target = "example.com" }, "target"},
		{"zero port", func(c *config.Config) { c.Port = 0 }, "port"},
		{"oversized port", func(c *config.Config) { c.Port = 65536 }, "port"},
		{"dashboard with json", func(c *config.Config) { c.Dashboard = true; c.JSONOutput = true }, "dashboard"},
		{"bad sample rate", func(c *config.Config) { c.Tracing.SampleRate = 1.5 }, "trace-sample-rate"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			var verr *config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			found := false
			for _, issue := range verr.Issues() {
				if issue.Field == tc.wantField {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected an issue naming field %q, got %v", tc.wantField, verr.Issues())
			}
		})
	}
}

func TestValidateCollectsAllIssues(t *testing.T) {
	cfg := validConfig()
	cfg.Threads = 0
	cfg.PayloadSize = 0
	cfg.Rate = -1

	err := cfg.Validate()
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Issues()) != 3 {
		t.Fatalf("expected 3 issues, got %d: %v", len(verr.Issues()), verr.Issues())
	}
	if !strings.Contains(verr.Error(), "threads") {
		t.Fatalf("error string should mention threads: %s", verr.Error())
	}
}

func TestParseTestType(t *testing.T) {
	if tt, err := config.ParseTestType(" UDP "); err != nil || tt != config.TestTypeUDP {
		t.Fatalf("expected udp, got %q err=%v", tt, err)
	}
	if _, err := config.ParseTestType("smurf"); err == nil {
		t.Fatalf("expected error for unknown test type")
	}
}
