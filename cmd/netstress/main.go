package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ovral/netstress/internal/capability"
	"github.com/ovral/netstress/internal/config"
	"github.com/ovral/netstress/internal/dashboard"
	"github.com/ovral/netstress/internal/output"
	"github.com/ovral/netstress/internal/runner"
	"github.com/ovral/netstress/internal/stats"
	"github.com/ovral/netstress/internal/tracing"
)

type stderrFailureLogger struct {
	mu sync.Mutex
}

func (l *stderrFailureLogger) log(workerID int, strategyName string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "worker %d (%s): %v\n", workerID, strategyName, err)
}

// promptWriter keeps interactive text off stdout when stdout carries the
// machine-readable report.
func promptWriter(cfg *config.Config) io.Writer {
	if cfg.JSONOutput {
		return os.Stderr
	}
	return os.Stdout
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	target, err := netip.ParseAddr(cfg.Target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	caps := capability.Probe(target)

	if cfg.Spoof && !caps.RawIP {
		fmt.Fprintln(os.Stderr, "WARNING: source-address spoofing requires raw sockets; flag ignored on this host.")
	}

	if !cfg.JSONOutput {
		output.PrintBanner(os.Stdout, cfg)
	}
	if !cfg.Verbose {
		prompt := promptWriter(cfg)
		if !output.Confirm(os.Stdin, prompt) {
			fmt.Fprintln(prompt, "Test cancelled.")
			return nil
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		provider.Shutdown(shutdownCtx)
	}()

	collector := stats.NewCollector()

	var progress *output.ProgressReporter
	var dash *dashboard.Dashboard
	var onSample func(runner.Sample)
	switch {
	case cfg.Dashboard:
		dash, err = dashboard.New(cfg, cancel)
		if err != nil {
			return err
		}
		onSample = dash.Update
	case !cfg.JSONOutput:
		progress = output.NewProgressReporter(os.Stdout)
		onSample = progress.Update
	}

	var errorLog func(int, string, error)
	if cfg.Verbose {
		logger := &stderrFailureLogger{}
		errorLog = logger.log
	}

	ctrl := runner.New(runner.Options{
		Config:    cfg,
		Collector: collector,
		Caps:      caps,
		OnSample:  onSample,
		ErrorLog:  errorLog,
	})

	runCtx, span := provider.Tracer().Start(ctx, "netstress.run",
		trace.WithAttributes(
			attribute.String("run.id", ctrl.RunID()),
			attribute.String("target.address", cfg.Target),
			attribute.Int("target.port", cfg.Port),
			attribute.Int("threads", cfg.Threads),
			attribute.Int("rate", cfg.Rate),
		),
	)
	defer span.End()

	if err := ctrl.Start(runCtx); err != nil {
		if dash != nil {
			dash.Stop()
		}
		return err
	}
	for _, skipped := range ctrl.Skipped() {
		fmt.Fprintf(os.Stderr, "WARNING: skipping %s\n", skipped)
	}

	if dash != nil {
		dash.Start()
	} else if !cfg.JSONOutput {
		fmt.Fprintln(os.Stdout, "\nStarting network stress test...")
		fmt.Fprintln(os.Stdout, "Press Ctrl+C to stop")
	}

	ctrl.Wait(runCtx)
	report := ctrl.Stop()

	span.SetAttributes(
		attribute.Int64("packets", report.Stats.Packets),
		attribute.Int64("bytes", report.Stats.Bytes),
		attribute.Int64("errors", report.Stats.Errors),
	)

	if dash != nil {
		dash.Stop()
	}
	if progress != nil {
		progress.Finish()
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, report); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, report)
	}

	if cfg.ReportFile != "" {
		if err := output.WriteReportFile(cfg.ReportFile, report); err != nil {
			return err
		}
	}

	return nil
}
