package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "netstress",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.StringP("target", "t", "", "Target IP address (IPv4 or IPv6 literal)")
	flags.IntP("port", "p", 80, "Target port")

	// Load control flags
	flags.StringSlice("test-types", []string{string(TestTypeUDP)},
		fmt.Sprintf("Test types to run (%s)", joinTestTypes()))
	flags.Int("threads", 10, "Number of workers per test type")
	flags.Int("payload-size", 1024, "Payload size in bytes per send")
	flags.IntP("rate", "r", 0, "Send attempts per second per worker (0 means unlimited)")
	flags.StringP("duration", "d", "0", "How long to run (e.g. 30s, 2m, or plain seconds; 0 means until interrupted)")
	flags.Duration("connect-timeout", 2*time.Second, "Per-attempt connect timeout for stream strategies")
	flags.Bool("spoof", false, "Randomize the source address on raw packets (capability dependent)")

	// Output flags
	flags.BoolP("verbose", "v", false, "Skip the confirmation prompt and log each send error to stderr")
	flags.Bool("json-output", false, "Emit the final report as JSON")
	flags.Bool("dashboard", false, "Show live terminal dashboard instead of the status line")
	flags.String("report-file", "", "Write the JSON report to the given path as well")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.Bool("trace", false, "Export OpenTelemetry traces for the run")
	flags.String("trace-endpoint", "", "OTLP endpoint (defaults to OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("trace-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
}

func joinTestTypes() string {
	all := TestTypes()
	labels := make([]string, len(all))
	for i, tt := range all {
		labels[i] = string(tt)
	}
	return strings.Join(labels, ", ")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.Target = strings.TrimSpace(val)
	}
	if fs.Changed("port") {
		val, err := fs.GetInt("port")
		if err != nil {
			return err
		}
		cfg.Port = val
	}
	if fs.Changed("test-types") {
		vals, err := fs.GetStringSlice("test-types")
		if err != nil {
			return err
		}
		cfg.TestTypes = toTestTypes(vals)
	}
	if fs.Changed("threads") {
		val, err := fs.GetInt("threads")
		if err != nil {
			return err
		}
		cfg.Threads = val
	}
	if fs.Changed("payload-size") {
		val, err := fs.GetInt("payload-size")
		if err != nil {
			return err
		}
		cfg.PayloadSize = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetString("duration")
		if err != nil {
			return err
		}
		d, err := asDuration(val)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = d
	}
	if fs.Changed("connect-timeout") {
		val, err := fs.GetDuration("connect-timeout")
		if err != nil {
			return err
		}
		cfg.ConnectTimeout = val
	}
	if fs.Changed("spoof") {
		val, err := fs.GetBool("spoof")
		if err != nil {
			return err
		}
		cfg.Spoof = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("report-file") {
		val, err := fs.GetString("report-file")
		if err != nil {
			return err
		}
		cfg.ReportFile = strings.TrimSpace(val)
	}
	if fs.Changed("trace") {
		val, err := fs.GetBool("trace")
		if err != nil {
			return err
		}
		cfg.Tracing.Enable = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = val
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	return nil
}

func toTestTypes(vals []string) []TestType {
	out := make([]TestType, 0, len(vals))
	for _, v := range vals {
		out = append(out, TestType(strings.ToLower(strings.TrimSpace(v))))
	}
	return out
}
