// Package ui renders run progress and the final report. Three
// presenters cover the output modes: an in-place HUD for interactive
// terminals, line-oriented output for pipes, and a silent drain for
// --quiet.
package ui

import (
	"io"

	"github.com/mavery/cubby/internal/event"
	"github.com/mavery/cubby/internal/report"
)

// Presenter consumes engine events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan event.Event) error
	// Summary renders the final report once the run has finished.
	Summary(summary report.Summary) string
}

// Config selects and wires a presenter.
type Config struct {
	Writer    io.Writer
	ErrWriter io.Writer

	// Agg is read for live throughput and progress; presenters never
	// write to it except Tick.
	Agg *report.Aggregator

	DstRoot    string
	IsTTY      bool
	Quiet      bool
	DryRun     bool
	NoProgress bool
}

// NewPresenter picks the presenter for the run's output mode: quiet
// beats everything, the HUD needs a TTY, and --no-progress forces the
// plain feed.
//
//nolint:ireturn // factory returns the selected implementation
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{dryRun: cfg.DryRun}
	}
	if !cfg.IsTTY || cfg.NoProgress {
		return &plainPresenter{
			w:       cfg.Writer,
			errW:    cfg.ErrWriter,
			agg:     cfg.Agg,
			dstRoot: cfg.DstRoot,
			dryRun:  cfg.DryRun,
		}
	}
	return &hudPresenter{
		w:       cfg.ErrWriter, // the HUD draws on stderr, the TTY
		agg:     cfg.Agg,
		dstRoot: cfg.DstRoot,
		dryRun:  cfg.DryRun,
	}
}
