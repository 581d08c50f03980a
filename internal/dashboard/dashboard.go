// Package dashboard renders a live terminal UI for a running stress test.
package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/ovral/netstress/internal/config"
	"github.com/ovral/netstress/internal/runner"
)

const historyLen = 120

// Dashboard shows packet rate, bandwidth and error breakdown live. Pressing
// q or Ctrl+C invokes the shutdown callback, which is expected to cancel
// the run the same way a signal would.
type Dashboard struct {
	cfg          *config.Config
	shutdownFunc func()

	samples  chan runner.Sample
	done     chan struct{}
	finished chan struct{}

	term     bool // terminal initialized by New
	started  bool // event loop launched by Start
	stopOnce sync.Once

	grid        *ui.Grid
	summaryPara *widgets.Paragraph
	ppsSparkle  *widgets.SparklineGroup
	errorList   *widgets.List
	gauge       *widgets.Gauge

	ppsHistory  []float64
	mbpsHistory []float64
}

// New creates a Dashboard. The shutdown callback must be safe to call from
// the UI goroutine.
func New(cfg *config.Config, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("init terminal ui: %w", err)
	}

	d := &Dashboard{
		cfg:          cfg,
		shutdownFunc: shutdownFunc,
		samples:      make(chan runner.Sample, 4),
		done:         make(chan struct{}),
		finished:     make(chan struct{}),
		term:         true,
	}
	d.buildWidgets()
	return d, nil
}

// Start runs the UI event loop in a background goroutine.
func (d *Dashboard) Start() {
	d.started = true
	go d.run()
}

// Update feeds one monitor sample to the UI. Never blocks the monitor.
func (d *Dashboard) Update(sample runner.Sample) {
	select {
	case d.samples <- sample:
	default:
	}
}

// Stop tears the UI down and restores the terminal. Safe to call whether or
// not Start ran, and safe to call more than once.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		if d.started {
			<-d.finished
		}
		if d.term {
			ui.Close()
		}
	})
}

func (d *Dashboard) buildWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = fmt.Sprintf(" netstress %s:%d ", d.cfg.Target, d.cfg.Port)
	d.summaryPara.Text = "waiting for first sample..."

	pps := widgets.NewSparkline()
	pps.Title = "pps"
	pps.LineColor = ui.ColorGreen
	mbps := widgets.NewSparkline()
	mbps.Title = "Mbps"
	mbps.LineColor = ui.ColorYellow
	d.ppsSparkle = widgets.NewSparklineGroup(pps, mbps)
	d.ppsSparkle.Title = " Throughput "

	d.errorList = widgets.NewList()
	d.errorList.Title = " Errors by kind "
	d.errorList.Rows = []string{"none"}

	d.gauge = widgets.NewGauge()
	d.gauge.Title = " Progress "
	d.gauge.Percent = 0

	d.grid = ui.NewGrid()
	termWidth, termHeight := ui.TerminalDimensions()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	d.grid.Set(
		ui.NewRow(0.3,
			ui.NewCol(0.6, d.summaryPara),
			ui.NewCol(0.4, d.gauge),
		),
		ui.NewRow(0.4, ui.NewCol(1.0, d.ppsSparkle)),
		ui.NewRow(0.3, ui.NewCol(1.0, d.errorList)),
	)
}

func (d *Dashboard) run() {
	defer close(d.finished)

	ui.Render(d.grid)
	events := ui.PollEvents()

	for {
		select {
		case <-d.done:
			return
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				ui.Render(d.grid)
			}
		case sample := <-d.samples:
			d.apply(sample)
			ui.Render(d.grid)
		}
	}
}

func (d *Dashboard) apply(sample runner.Sample) {
	s := sample.Stats

	success := "N/A"
	if s.SuccessRatio != nil {
		success = fmt.Sprintf("%.1f%%", *s.SuccessRatio*100)
	}
	d.summaryPara.Text = fmt.Sprintf(
		"Elapsed: %s\nPackets: %d\nBytes: %d\nConnections: %d\nErrors: %d\nSuccess: %s\nWorkers: %d",
		time.Duration(s.DurationSec*float64(time.Second)).Round(time.Second),
		s.Packets, s.Bytes, s.Connections, s.Errors, success, sample.ActiveWorkers,
	)

	d.ppsHistory = appendBounded(d.ppsHistory, s.PacketsPerSec)
	d.mbpsHistory = appendBounded(d.mbpsHistory, s.Mbps)
	d.ppsSparkle.Sparklines[0].Data = d.ppsHistory
	d.ppsSparkle.Sparklines[0].Title = fmt.Sprintf("pps %.1f", s.PacketsPerSec)
	d.ppsSparkle.Sparklines[1].Data = d.mbpsHistory
	d.ppsSparkle.Sparklines[1].Title = fmt.Sprintf("Mbps %.2f", s.Mbps)

	if d.cfg.Duration > 0 {
		pct := int(s.DurationSec / d.cfg.Duration.Seconds() * 100)
		if pct > 100 {
			pct = 100
		}
		d.gauge.Percent = pct
	} else {
		d.gauge.Label = "until interrupted"
	}

	if len(s.ErrorsByKind) == 0 {
		d.errorList.Rows = []string{"none"}
		return
	}
	kinds := make([]string, 0, len(s.ErrorsByKind))
	for kind := range s.ErrorsByKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return s.ErrorsByKind[kinds[i]] > s.ErrorsByKind[kinds[j]]
	})
	rows := make([]string, len(kinds))
	for i, kind := range kinds {
		rows[i] = fmt.Sprintf("%s: %d", strings.TrimSpace(kind), s.ErrorsByKind[kind])
	}
	d.errorList.Rows = rows
}

func appendBounded(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > historyLen {
		history = history[len(history)-historyLen:]
	}
	return history
}
