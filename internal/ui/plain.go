package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/mavery/cubby/internal/event"
	"github.com/mavery/cubby/internal/report"
)

// plainPresenter writes one line per file outcome to stdout and a
// periodic progress line to stderr. The default for pipes and
// redirected output.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	agg     *report.Aggregator
	dstRoot string
	dryRun  bool
}

func (p *plainPresenter) Run(events <-chan event.Event) error {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	progress := time.NewTicker(5 * time.Second)
	defer progress.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-tick.C:
			p.agg.Tick()
		case <-progress.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.FileCopied:
		dest := StripRoot(p.dstRoot, ev.Dest)
		if p.dryRun {
			fmt.Fprintf(p.w, "%s -> %s  %s  (dry run)\n", ev.Path, dest, FormatBytes(ev.Size))
			return
		}
		fmt.Fprintf(p.w, "%s -> %s  %s\n", ev.Path, dest, FormatBytes(ev.Size))
	case event.FileSkipped:
		fmt.Fprintf(p.w, "%s  skipped (%s)\n", ev.Path, ev.Reason)
	case event.FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  FAILED: %s\n", ev.Path, errMsg)
	case event.FileRetrying:
		fmt.Fprintf(p.errW, "%s  retrying (attempt %d, waiting %s)\n", ev.Path, ev.Attempt, ev.Delay)
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.agg.Snapshot()
	if snap.BytesTotal > 0 {
		pct := float64(snap.BytesCopied) / float64(snap.BytesTotal) * 100
		fmt.Fprintf(p.errW, "progress: %.0f%%  %s / %s  %s / %s files  %s  eta %s\n",
			pct,
			FormatBytes(snap.BytesCopied), FormatBytes(snap.BytesTotal),
			FormatCount(snap.Copied), FormatCount(snap.FilesTotal),
			FormatRate(p.agg.RollingSpeed(10)),
			FormatETA(p.agg.ETA()),
		)
		return
	}
	fmt.Fprintf(p.errW, "progress: %s copied, %s files\n",
		FormatBytes(snap.BytesCopied), FormatCount(snap.Copied))
}

func (p *plainPresenter) Summary(summary report.Summary) string {
	return Completion(summary, p.dryRun)
}
