package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mavery/cubby/internal/config"
	"github.com/mavery/cubby/internal/engine"
	"github.com/mavery/cubby/internal/event"
	"github.com/mavery/cubby/internal/exclude"
	"github.com/mavery/cubby/internal/logging"
	"github.com/mavery/cubby/internal/platform"
	"github.com/mavery/cubby/internal/report"
	"github.com/mavery/cubby/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: main CLI entry point orchestrates all flag parsing and wiring
func run() int {
	var (
		srcDir       string
		dstDir       string
		concurrency  int
		retries      int
		retryDelay   time.Duration
		skipLocked   bool
		silentLocked bool
		excludeGlobs []string
		dryRun       bool
		bwLimitStr   string
		useIOURing   bool
		benchmark    bool
		quiet        bool
		verbosity    int
		noProgress   bool
		logFile      string
		showVersion  bool
	)

	rootCmd := &cobra.Command{
		Use:   "cubby --source DIR --destination DIR",
		Short: "Sort a directory tree into per-extension bucket directories",
		Long: `Cubby walks a source tree and copies every regular file into a bucket
directory under the destination, named after the file's extension.
Files without an extension land in "no_extension". Name collisions
within a bucket get " (1)", " (2)" suffixes before the extension.

The source tree is never modified.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "cubby %s\n", version)
				return nil
			}

			if srcDir == "" || dstDir == "" {
				return errors.New("--source and --destination are required")
			}

			if err := logging.Setup(verbosity, logFile); err != nil {
				return err
			}
			log := logging.Get("main")

			// Load optional config file.
			cfg, err := config.Load()
			if err != nil {
				log.Warn().Err(err).Msg("failed to load config")
			}
			if err := applyConfigDefaults(cmd.Flags(), cfg.Defaults,
				&concurrency, &retries, &retryDelay,
				&skipLocked, &silentLocked, &noProgress, &bwLimitStr); err != nil {
				return err
			}

			// Config excludes come first so CLI patterns are appended.
			globs := append([]string{}, cfg.Defaults.Exclude...)
			globs = append(globs, excludeGlobs...)
			excludes, err := exclude.New(globs)
			if err != nil {
				return fmt.Errorf("invalid --exclude-glob: %w", err)
			}

			var bwLimit int64
			if bwLimitStr != "" {
				bwLimit, err = engine.ParseRate(bwLimitStr)
				if err != nil {
					return fmt.Errorf("invalid --bwlimit: %w", err)
				}
			}

			absSrc, err := filepath.Abs(srcDir)
			if err != nil {
				return fmt.Errorf("source: %w", err)
			}
			absDst, err := filepath.Abs(dstDir)
			if err != nil {
				return fmt.Errorf("destination: %w", err)
			}

			if dryRun {
				log.Info().Msg("dry run mode")
			}
			if useIOURing && !platform.KernelSupportsIOURing() {
				log.Warn().Msg("io_uring requested but not available, using the standard copy path")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Benchmark writes a temp file to the destination, so a dry
			// run skips it.
			if benchmark && !dryRun {
				result, benchErr := engine.RunBenchmark(ctx, absSrc, absDst)
				if benchErr != nil {
					log.Warn().Err(benchErr).Msg("benchmark failed")
				} else {
					fmt.Fprintln(os.Stderr, engine.FormatBenchmark(result))
					if !cmd.Flags().Changed("concurrency") {
						concurrency = result.SuggestedWorkers
					}
				}
			}

			agg := report.NewAggregator()
			events := make(chan event.Event, 256)

			// When --log is set, tee events through a goroutine that
			// writes one structured record per event before forwarding
			// to the presenter.
			presenterEvents := (<-chan event.Event)(events)
			if logFile != "" {
				presenterEvents = teeEventLog(events)
			}

			presenter := ui.NewPresenter(ui.Config{
				Writer:     os.Stdout,
				ErrWriter:  os.Stderr,
				Agg:        agg,
				DstRoot:    absDst,
				IsTTY:      ui.IsTTY(os.Stderr.Fd()),
				Quiet:      quiet,
				DryRun:     dryRun,
				NoProgress: noProgress,
			})

			var presenterErr error
			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenterErr = presenter.Run(presenterEvents)
			}()

			summary, runErr := engine.Run(ctx, engine.Config{
				Source:       absSrc,
				Destination:  absDst,
				Concurrency:  concurrency,
				Retries:      retries,
				RetryDelay:   retryDelay,
				SkipLocked:   skipLocked,
				SilentLocked: silentLocked,
				Excludes:     excludes,
				DryRun:       dryRun,
				UseIOURing:   useIOURing,
				BWLimit:      bwLimit,
				Events:       events,
			}, agg)
			stop()
			close(events)
			presenterWg.Wait()
			if presenterErr != nil {
				fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
			}

			if runErr != nil {
				return runErr
			}

			if s := presenter.Summary(summary); s != "" {
				fmt.Fprintln(os.Stderr, s)
			}

			if code := summary.ExitCode(); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&srcDir, "source", "s", "", "directory to organize (required)")
	rootCmd.Flags().
		StringVarP(&dstDir, "destination", "d", "", "directory to place bucket directories in (required)")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "n", 8, "number of copy workers")
	rootCmd.Flags().
		IntVar(&retries, "retries", 3, "retry attempts for locked or transient failures")
	rootCmd.Flags().
		DurationVar(&retryDelay, "retry-delay", 500*time.Millisecond, "base delay before the first retry (doubles each attempt)")
	rootCmd.Flags().
		BoolVar(&skipLocked, "skip-locked", false, "skip locked files instead of failing them")
	rootCmd.Flags().
		BoolVar(&silentLocked, "silent-locked", false, "with --skip-locked, drop the warning for each locked file")
	rootCmd.Flags().
		StringArrayVar(&excludeGlobs, "exclude-glob", nil, "exclude paths matching PATTERN, relative to the source (repeatable)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan the run without writing anything")
	rootCmd.Flags().StringVar(&bwLimitStr, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	rootCmd.Flags().
		BoolVar(&useIOURing, "iouring", false, "use io_uring for file copy (Linux only)")
	rootCmd.Flags().
		BoolVar(&benchmark, "benchmark", false, "measure disk throughput first and auto-tune --concurrency when it is not set")
	rootCmd.Flags().
		BoolVarP(&quiet, "quiet", "q", false, "suppress per-file output and progress")
	rootCmd.Flags().
		CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable progress display")
	rootCmd.Flags().StringVar(&logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

// teeEventLog forwards events to the returned channel after logging
// each one as a structured record.
func teeEventLog(events <-chan event.Event) <-chan event.Event {
	log := logging.Get("event")
	teed := make(chan event.Event, 256)
	go func() {
		for ev := range events {
			rec := log.Info().
				Str("type", ev.Type.String()).
				Str("path", ev.Path).
				Int64("size", ev.Size)
			if ev.Dest != "" {
				rec = rec.Str("dest", ev.Dest)
			}
			if ev.Reason != "" {
				rec = rec.Str("reason", ev.Reason)
			}
			if ev.Error != nil {
				rec = rec.Err(ev.Error)
			}
			rec.Msg("cubby.event")
			teed <- ev
		}
		close(teed)
	}()
	return teed
}

// applyConfigDefaults applies config file defaults for flags not
// explicitly set on the CLI.
func applyConfigDefaults(
	flags *pflag.FlagSet,
	defaults config.DefaultsConfig,
	concurrency *int,
	retries *int,
	retryDelay *time.Duration,
	skipLocked *bool,
	silentLocked *bool,
	noProgress *bool,
	bwLimit *string,
) error {
	if !flags.Changed("concurrency") && defaults.Concurrency != nil {
		*concurrency = *defaults.Concurrency
	}
	if !flags.Changed("retries") && defaults.Retries != nil {
		*retries = *defaults.Retries
	}
	if !flags.Changed("retry-delay") && defaults.RetryDelay != nil {
		d, err := time.ParseDuration(*defaults.RetryDelay)
		if err != nil {
			return fmt.Errorf("config retry_delay: %w", err)
		}
		*retryDelay = d
	}
	if !flags.Changed("skip-locked") && defaults.SkipLocked != nil {
		*skipLocked = *defaults.SkipLocked
	}
	if !flags.Changed("silent-locked") && defaults.SilentLocked != nil {
		*silentLocked = *defaults.SilentLocked
	}
	if !flags.Changed("no-progress") && defaults.NoProgress != nil {
		*noProgress = *defaults.NoProgress
	}
	if !flags.Changed("bwlimit") && defaults.BWLimit != nil {
		*bwLimit = *defaults.BWLimit
	}
	return nil
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
