package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// TestType identifies a transmission strategy variant.
type TestType string

const (
	TestTypeUDP   TestType = "udp"
	TestTypeTCP   TestType = "tcp"
	TestTypeSYN   TestType = "syn"
	TestTypeICMP  TestType = "icmp"
	TestTypeHTTP  TestType = "http"
	TestTypeMixed TestType = "mixed"
)

// TestTypes lists every valid test type in a stable order.
func TestTypes() []TestType {
	return []TestType{TestTypeUDP, TestTypeTCP, TestTypeSYN, TestTypeICMP, TestTypeHTTP, TestTypeMixed}
}

// ParseTestType normalizes and validates a test type label.
func ParseTestType(s string) (TestType, error) {
	tt := TestType(strings.ToLower(strings.TrimSpace(s)))
	switch tt {
	case TestTypeUDP, TestTypeTCP, TestTypeSYN, TestTypeICMP, TestTypeHTTP, TestTypeMixed:
		return tt, nil
	}
	return "", fmt.Errorf("unknown test type %q", s)
}

const (
	MinThreads = 1
	MaxThreads = 1000

	// MaxPayload is the largest payload a single UDP datagram can carry.
	MinPayload = 1
	MaxPayload = 65507
)

// Config holds every parameter of a single run. It is immutable once loaded;
// workers receive it behind a read-only pointer.
type Config struct {
	Target         string        `mapstructure:"target"`
	Port           int           `mapstructure:"port"`
	TestTypes      []TestType    `mapstructure:"test_types"`
	Threads        int           `mapstructure:"threads"`
	PayloadSize    int           `mapstructure:"payload_size"`
	Rate           int           `mapstructure:"rate"`
	Duration       time.Duration `mapstructure:"duration"`
	Spoof          bool          `mapstructure:"spoof"`
	Verbose        bool          `mapstructure:"verbose"`
	JSONOutput     bool          `mapstructure:"json_output"`
	Dashboard      bool          `mapstructure:"dashboard"`
	ReportFile     string        `mapstructure:"report_file"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	ConfigFile     string        `mapstructure:"-"`
}

// TracingConfig controls optional OTLP trace export.
type TracingConfig struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func (t TracingConfig) Enabled() bool {
	return t.Enable
}

// Issue describes one rejected configuration field.
type Issue struct {
	Field  string
	Reason string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Reason)
}

// ValidationError reports every invalid field found during Validate.
type ValidationError struct {
	issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.issues))
	for i, issue := range e.issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// Issues returns a copy of the per-field findings.
func (e *ValidationError) Issues() []Issue {
	return append([]Issue(nil), e.issues...)
}

// Validate checks every field against its documented range. It runs before
// any worker is created; a non-nil return means the run never starts.
func (c *Config) Validate() error {
	var issues []Issue
	add := func(field, reason string) {
		issues = append(issues, Issue{Field: field, Reason: reason})
	}

	if strings.TrimSpace(c.Target) == "" {
		add("target", "is required")
	} else if _, err := netip.ParseAddr(c.Target); err != nil {
		add("target", fmt.Sprintf("%q is not a valid IPv4/IPv6 address", c.Target))
	}

	if c.Port < 1 || c.Port > 65535 {
		add("port", fmt.Sprintf("must be between 1 and 65535, got %d", c.Port))
	}

	if c.Threads < MinThreads || c.Threads > MaxThreads {
		add("threads", fmt.Sprintf("must be between %d and %d, got %d", MinThreads, MaxThreads, c.Threads))
	}

	if c.PayloadSize < MinPayload || c.PayloadSize > MaxPayload {
		add("payload-size", fmt.Sprintf("must be between %d and %d, got %d", MinPayload, MaxPayload, c.PayloadSize))
	}

	if c.Rate < 0 {
		add("rate", fmt.Sprintf("must be >= 0, got %d", c.Rate))
	}

	if c.Duration < 0 {
		add("duration", "must be >= 0")
	}

	if c.ConnectTimeout < 0 {
		add("connect-timeout", "must be >= 0")
	}

	if len(c.TestTypes) == 0 {
		add("test-types", "at least one test type is required")
	}
	seen := map[TestType]bool{}
	for _, tt := range c.TestTypes {
		if _, err := ParseTestType(string(tt)); err != nil {
			add("test-types", err.Error())
			continue
		}
		if seen[tt] {
			add("test-types", fmt.Sprintf("duplicate test type %q", tt))
		}
		seen[tt] = true
	}

	if c.Dashboard && c.JSONOutput {
		add("dashboard", "dashboard and json-output are mutually exclusive")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		add("trace-sample-rate", fmt.Sprintf("must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}

	if len(issues) > 0 {
		return &ValidationError{issues: issues}
	}
	return nil
}
