package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/mavery/cubby/internal/event"
	"github.com/mavery/cubby/internal/report"
)

// ANSI escape sequences.
const (
	ansiDim   = "\033[2m"
	ansiReset = "\033[0m"
)

// hudPresenter provides a rich TTY display with a scrolling feed of
// finished files and a 2-line HUD that redraws in place.
type hudPresenter struct {
	w       io.Writer
	agg     *report.Aggregator
	dstRoot string
	dryRun  bool

	// Internal state.
	hudDrawn     bool
	hudLineCount int // actual number of lines in the last HUD draw
	lastHUDDraw  time.Time
}

const (
	sparklineWidth   = 20
	progressBarWidth = 20
	hudMinInterval   = 50 * time.Millisecond // don't redraw faster than this
)

func (p *hudPresenter) Run(events <-chan event.Event) error {
	// Fire the first tick quickly to seed the ring buffer with initial
	// speed data, then switch to 1s interval.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	// Redraw ticker for when no events are flowing (e.g. a large file
	// mid-copy).
	redrawTicker := time.NewTicker(100 * time.Millisecond)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearHUD()
				return nil
			}
			p.handleEvent(ev)
			p.maybeDrawHUD()

		case <-redrawTicker.C:
			p.drawHUD()

		case <-secTicker.C:
			p.agg.Tick()
			if !firstTickDone {
				firstTickDone = true
				secTicker.Reset(1 * time.Second)
			}
		}
	}
}

func (p *hudPresenter) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.FileCopied:
		p.clearHUD()
		p.printFileCopied(ev)
		p.drawHUD() // always redraw the HUD after a feed line

	case event.FileFailed:
		p.clearHUD()
		p.printFileFailed(ev)
		p.drawHUD()

	case event.FileSkipped:
		p.clearHUD()
		fmt.Fprintf(p.w, "–  %s  %sskipped (%s)%s\n",
			p.styledPath(ev.Path), ansiDim, ev.Reason, ansiReset)
		p.drawHUD()

	case event.FileRetrying:
		p.clearHUD()
		fmt.Fprintf(p.w, "↻  %s  %sretry %d in %s%s\n",
			p.styledPath(ev.Path), ansiDim, ev.Attempt, ev.Delay, ansiReset)
		p.drawHUD()

	case event.BucketCreated:
		p.clearHUD()
		fmt.Fprintf(p.w, "%s+ %s/%s\n",
			ansiDim, StripRoot(p.dstRoot, ev.Dest), ansiReset)
		p.drawHUD()
	}
}

func (p *hudPresenter) printFileCopied(ev event.Event) {
	dest := p.styledPath(StripRoot(p.dstRoot, ev.Dest))
	if p.dryRun {
		fmt.Fprintf(p.w, "✓  %s  %s(would copy)%s\n", dest, ansiDim, ansiReset)
		return
	}
	speed := p.agg.RollingSpeed(5)
	if speed > 0 {
		fmt.Fprintf(p.w, "✓  %s  %10s  %s\n",
			dest, FormatBytes(ev.Size), FormatRate(speed))
		return
	}
	fmt.Fprintf(p.w, "✓  %s  %10s\n", dest, FormatBytes(ev.Size))
}

func (p *hudPresenter) printFileFailed(ev event.Event) {
	errMsg := "error"
	if ev.Error != nil {
		errMsg = ev.Error.Error()
	}
	fmt.Fprintf(p.w, "✗  %s  %s\n", p.styledPath(ev.Path), errMsg)
}

// maybeDrawHUD redraws the HUD if enough time has passed since the last draw.
func (p *hudPresenter) maybeDrawHUD() {
	if time.Since(p.lastHUDDraw) < hudMinInterval {
		return
	}
	p.drawHUD()
}

func (p *hudPresenter) drawHUD() {
	snap := p.agg.Snapshot()

	p.clearHUD()

	var pct float64
	if snap.BytesTotal > 0 {
		pct = float64(snap.BytesCopied) / float64(snap.BytesTotal)
	}

	lines := 0

	// Line 1: throughput sparkline + speed + byte totals.
	spark := Sparkline(p.agg.SparklineData(sparklineWidth), sparklineWidth)
	fmt.Fprintf(p.w, "       %s   %s   %s / %s\n",
		spark, FormatRate(p.agg.RollingSpeed(10)),
		FormatBytes(snap.BytesCopied), FormatBytes(snap.BytesTotal))
	lines++

	// Line 2: progress bar + file counts + eta.
	done := snap.Copied + snap.Skipped + snap.Failed
	fmt.Fprintf(p.w, " %3.0f%%  %s   %s / %s files   eta %s\n",
		pct*100, ProgressBar(pct, progressBarWidth),
		FormatCount(done), FormatCount(snap.FilesTotal),
		FormatETA(p.agg.ETA()))
	lines++

	p.hudDrawn = true
	p.hudLineCount = lines
	p.lastHUDDraw = time.Now()
}

func (p *hudPresenter) clearHUD() {
	if !p.hudDrawn {
		return
	}
	lines := p.hudLineCount
	if lines == 0 {
		lines = 2 // fallback
	}
	// Move the cursor up N lines and clear to end of screen.
	fmt.Fprintf(p.w, "\033[%dA\033[J", lines)
	p.hudDrawn = false
}

func (p *hudPresenter) Summary(summary report.Summary) string {
	return Completion(summary, p.dryRun)
}

// styledPath returns the path with the directory portion dimmed and the
// filename in normal weight, making the actual filename stand out.
func (p *hudPresenter) styledPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "." || dir == "" {
		return base
	}
	return fmt.Sprintf("%s%s/%s%s", ansiDim, dir, ansiReset, base)
}
