// Package engine walks a source tree and copies every regular file
// into a per-extension bucket directory under the destination root.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mavery/cubby/internal/event"
	"github.com/mavery/cubby/internal/exclude"
	"github.com/mavery/cubby/internal/logging"
	"github.com/mavery/cubby/internal/report"
	"github.com/mavery/cubby/internal/resolve"
)

type emitFunc func(event.Event)

// Config describes one organizing run.
type Config struct {
	Source      string
	Destination string

	// Concurrency is the number of copy workers. ScanWorkers sizes the
	// traversal pool separately; zero picks a default.
	Concurrency int
	ScanWorkers int

	Retries      int
	RetryDelay   time.Duration
	SkipLocked   bool
	SilentLocked bool

	Excludes *exclude.Set

	DryRun     bool
	UseIOURing bool

	// BWLimit caps aggregate copy throughput in bytes per second.
	// Zero means unlimited.
	BWLimit int64

	// Events receives progress events when non-nil. Sends never block:
	// a slow consumer loses events rather than stalling the run.
	Events chan<- event.Event
}

// Run organizes cfg.Source into bucket directories under
// cfg.Destination, blocking until every discovered file has an
// outcome. Cancellation lets in-flight copies finish and drains the
// rest of the queue as skipped, so the summary stays complete. The
// returned error covers failures to start; per-file errors are in the
// summary.
func Run(ctx context.Context, cfg Config, agg *report.Aggregator) (report.Summary, error) {
	log := logging.Get("engine")

	srcInfo, err := os.Stat(cfg.Source)
	if err != nil {
		return report.Summary{}, errors.Errorf("source: %w", err)
	}
	if !srcInfo.IsDir() {
		return report.Summary{}, errors.Errorf("source %s is not a directory", cfg.Source)
	}

	absSrc, err := filepath.Abs(cfg.Source)
	if err != nil {
		return report.Summary{}, errors.Errorf("source: %w", err)
	}
	absDst, err := filepath.Abs(cfg.Destination)
	if err != nil {
		return report.Summary{}, errors.Errorf("destination: %w", err)
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if !cfg.DryRun {
		if err := os.MkdirAll(absDst, 0o755); err != nil {
			return report.Summary{}, errors.Errorf("create destination: %w", err)
		}
	}

	emit := func(ev event.Event) {
		if cfg.Events == nil {
			return
		}
		ev.Timestamp = time.Now()
		select {
		case cfg.Events <- ev:
		default:
		}
	}

	var limiter *rate.Limiter
	if cfg.BWLimit > 0 {
		limiter = NewBWLimiter(cfg.BWLimit)
	}

	// Outcomes from the scanner (excluded, unreadable) and the workers
	// funnel into one channel; the drain below is the only writer to
	// the aggregator's failure list.
	outcomes := make(chan report.Outcome, cfg.Concurrency*4)

	scanner := NewScanner(ScannerConfig{
		SrcRoot:  absSrc,
		DstRoot:  absDst,
		Workers:  cfg.ScanWorkers,
		Excludes: cfg.Excludes,
	}, outcomes, agg, emit)

	pool, err := NewWorkerPool(WorkerConfig{
		NumWorkers:   cfg.Concurrency,
		DstRoot:      absDst,
		MaxRetries:   cfg.Retries,
		RetryDelay:   cfg.RetryDelay,
		SkipLocked:   cfg.SkipLocked,
		SilentLocked: cfg.SilentLocked,
		DryRun:       cfg.DryRun,
		UseIOURing:   cfg.UseIOURing,
		BWLimit:      limiter,
	}, resolve.New(), outcomes, agg, emit)
	if err != nil {
		return report.Summary{}, err
	}
	defer pool.Close()

	log.Info().
		Str("source", absSrc).
		Str("destination", absDst).
		Int("workers", cfg.Concurrency).
		Bool("dry_run", cfg.DryRun).
		Msg("starting run")
	emit(event.Event{Type: event.ScanStarted})

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for o := range outcomes {
			agg.Record(o)
			emitOutcome(emit, cfg.SilentLocked, o)
		}
	}()

	g := new(errgroup.Group)
	g.Go(func() error { return scanner.Run(ctx) })
	g.Go(func() error { return pool.Run(ctx, scanner.Tasks()) })
	runErr := g.Wait()

	close(outcomes)
	<-drained

	summary := agg.Summary()
	emit(event.Event{Type: event.RunComplete})
	log.Info().
		Int64("copied", summary.Copied).
		Int64("skipped", summary.Skipped).
		Int64("failed", summary.Failed).
		Str("bytes", report.FormatBytes(summary.BytesCopied)).
		Dur("elapsed", summary.Elapsed).
		Msg("run complete")

	return summary, runErr
}

// emitOutcome mirrors a recorded outcome onto the event stream. Skips
// for locked files stay quiet when the run opted into silence.
func emitOutcome(emit emitFunc, silentLocked bool, o report.Outcome) {
	switch o.Status {
	case report.Copied:
		emit(event.Event{Type: event.FileCopied, Path: o.RelPath, Dest: o.Dest, Size: o.Bytes})
	case report.Skipped:
		if o.Reason == report.SkipLocked && silentLocked {
			return
		}
		emit(event.Event{Type: event.FileSkipped, Path: o.RelPath, Reason: string(o.Reason)})
	case report.Failed:
		emit(event.Event{Type: event.FileFailed, Path: o.RelPath, Error: o.Err, Attempt: o.Attempts})
	}
}
