package engine

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/time/rate"

	"github.com/mavery/cubby/internal/bucket"
	"github.com/mavery/cubby/internal/copyerr"
	"github.com/mavery/cubby/internal/event"
	"github.com/mavery/cubby/internal/filelock"
	"github.com/mavery/cubby/internal/logging"
	"github.com/mavery/cubby/internal/platform"
	"github.com/mavery/cubby/internal/report"
	"github.com/mavery/cubby/internal/resolve"
	"github.com/mavery/cubby/internal/retry"
)

// WorkerConfig controls the copy pool.
type WorkerConfig struct {
	NumWorkers   int
	DstRoot      string
	MaxRetries   int
	RetryDelay   time.Duration
	SkipLocked   bool
	SilentLocked bool
	DryRun       bool
	UseIOURing   bool

	// BWLimit throttles aggregate read throughput across all workers.
	// Nil means unlimited.
	BWLimit *rate.Limiter
}

// WorkerPool consumes file tasks, copies each into its bucket under
// DstRoot, and produces exactly one outcome per task.
type WorkerPool struct {
	cfg      WorkerConfig
	resolver *resolve.Resolver
	outcomes chan<- report.Outcome
	agg      *report.Aggregator
	emit     emitFunc
	iouring  *platform.IOURingCopier
	log      zerolog.Logger

	dirsMade sync.Map // bucket dir -> struct{}
}

// NewWorkerPool creates the pool. With UseIOURing set, an io_uring
// backend is initialized when the kernel offers one; otherwise copies
// go through the plain platform path.
func NewWorkerPool(cfg WorkerConfig, resolver *resolve.Resolver, outcomes chan<- report.Outcome, agg *report.Aggregator, emit emitFunc) (*WorkerPool, error) {
	wp := &WorkerPool{
		cfg:      cfg,
		resolver: resolver,
		outcomes: outcomes,
		agg:      agg,
		emit:     emit,
		log:      logging.Get("worker"),
	}
	if cfg.UseIOURing {
		copier, err := platform.NewIOURingCopier(64)
		if err != nil {
			return nil, errors.Errorf("init io_uring: %w", err)
		}
		wp.iouring = copier // nil if the kernel has no io_uring
	}
	return wp, nil
}

// Run consumes tasks until the channel closes. After cancellation the
// remaining queue drains as skipped outcomes, so every discovered file
// is still accounted for.
func (wp *WorkerPool) Run(ctx context.Context, tasks <-chan FileTask) error {
	var wg sync.WaitGroup
	for i := range wp.cfg.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				wp.outcomes <- wp.processTask(ctx, i, task)
			}
		}()
	}
	wg.Wait()
	return nil
}

// Close releases pool resources and removes any temporaries left by an
// interrupted run.
func (wp *WorkerPool) Close() {
	CleanupTmpFiles()
	if wp.iouring != nil {
		wp.iouring.Close()
	}
}

func (wp *WorkerPool) processTask(ctx context.Context, workerID int, task FileTask) report.Outcome {
	if ctx.Err() != nil {
		return report.SkippedOutcome(task.RelPath, report.SkipCancelled)
	}

	wp.emit(event.Event{Type: event.FileStarted, Path: task.RelPath, Size: task.Size, WorkerID: workerID})

	bucketDir := filepath.Join(wp.cfg.DstRoot, bucket.ForPath(task.SrcPath))
	if err := wp.ensureBucketDir(bucketDir); err != nil {
		return report.FailedOutcome(task.RelPath, 0, err)
	}

	res, err := wp.resolver.Reserve(bucketDir, filepath.Base(task.SrcPath))
	if err != nil {
		return report.FailedOutcome(task.RelPath, 0, errors.Errorf("resolve name: %w", err))
	}

	if wp.cfg.DryRun {
		// The claim is kept so later duplicates pick distinct names.
		wp.log.Info().Str("src", task.RelPath).Str("dst", res.Path).Msg("would copy")
		return report.CopiedOutcome(task.RelPath, res.Path, 0, 0)
	}

	policy := retry.Policy{
		MaxRetries: wp.cfg.MaxRetries,
		BaseDelay:  wp.cfg.RetryDelay,
		OnRetry: func(attempt int, delay time.Duration, opErr error) {
			wp.log.Debug().Err(opErr).
				Str("path", task.RelPath).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("retrying copy")
			wp.emit(event.Event{
				Type:     event.FileRetrying,
				Path:     task.RelPath,
				Attempt:  attempt,
				Delay:    delay,
				Error:    opErr,
				WorkerID: workerID,
			})
		},
	}

	var copied int64
	attempts, err := policy.Do(ctx, func() error {
		n, copyErr := wp.copyOnce(ctx, task, res.Path)
		copied = n
		return copyErr
	})
	if err != nil {
		res.Release()
		return wp.failureOutcome(ctx, task, attempts, err)
	}

	res.Commit()
	return report.CopiedOutcome(task.RelPath, res.Path, copied, attempts)
}

// failureOutcome folds an exhausted copy error into its terminal
// outcome: cancellation and opted-in lock skips become Skipped,
// everything else Failed.
func (wp *WorkerPool) failureOutcome(ctx context.Context, task FileTask, attempts int, err error) report.Outcome {
	if ctx.Err() != nil {
		return report.SkippedOutcome(task.RelPath, report.SkipCancelled)
	}
	if copyerr.Classify(err) == copyerr.Locked && wp.cfg.SkipLocked {
		if !wp.cfg.SilentLocked {
			wp.log.Warn().Str("path", task.RelPath).Msg("skipping locked file")
		}
		return report.SkippedOutcome(task.RelPath, report.SkipLocked)
	}
	return report.FailedOutcome(task.RelPath, attempts, err)
}

// copyOnce performs a single copy attempt: probe the source lock, write
// everything to a hidden temporary in the bucket, then rename. The
// destination name only ever appears complete.
func (wp *WorkerPool) copyOnce(ctx context.Context, task FileTask, dstPath string) (int64, error) {
	if err := filelock.Probe(task.SrcPath); err != nil {
		return 0, err
	}

	tmpPath := tmpPathFor(dstPath)
	globalTmpRegistry.add(tmpPath)
	defer func() {
		globalTmpRegistry.remove(tmpPath)
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	// A CoW clone moves the bytes in one syscall when source and
	// destination share an APFS volume. The temp must not exist yet.
	cloned := wp.cfg.BWLimit == nil && platform.CloneFile(task.SrcPath, tmpPath)

	openFlags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if cloned {
		openFlags = os.O_WRONLY
	}
	tmpFd, err := os.OpenFile(tmpPath, openFlags, task.Mode.Perm())
	if err != nil {
		return 0, errors.Errorf("create tmp %s: %w", tmpPath, err)
	}

	var written int64
	switch {
	case cloned:
		written = task.Size
	case task.Size > 0:
		written, err = wp.copyData(ctx, task, tmpFd)
		if err != nil {
			tmpFd.Close()
			return 0, errors.Errorf("copy data: %w", err)
		}
	}

	if err := wp.setFileMetadata(task, tmpFd); err != nil {
		tmpFd.Close()
		return 0, err
	}
	if err := tmpFd.Close(); err != nil {
		return 0, errors.Errorf("close tmp: %w", err)
	}

	if err := os.Rename(tmpPath, dstPath); err != nil {
		return 0, errors.Errorf("rename to %s: %w", dstPath, err)
	}
	return written, nil
}

func (wp *WorkerPool) copyData(ctx context.Context, task FileTask, dst *os.File) (int64, error) {
	if task.Size >= sparseProbeSize {
		written, handled, err := wp.copySparse(ctx, task, dst)
		if handled {
			return written, err
		}
	}

	if wp.cfg.BWLimit != nil {
		return wp.copyThrottled(ctx, task, dst)
	}

	params := platform.CopyFileParams{SrcPath: task.SrcPath, DstFd: dst, SrcSize: task.Size}
	if wp.iouring != nil {
		result, err := wp.iouring.CopyFile(params)
		if err == nil {
			return result.BytesWritten, nil
		}
		wp.log.Debug().Err(err).Str("path", task.SrcPath).Msg("io_uring copy failed, using platform path")
	}
	result, err := platform.CopyFile(params)
	return result.BytesWritten, err
}

// Files below this size are copied dense without a sparse probe.
const sparseProbeSize = 1 << 20

// copySparse preserves holes in large source files. The destination is
// sized up front and only data extents are written, so holes stay
// unallocated. Returns handled=false for dense files.
func (wp *WorkerPool) copySparse(ctx context.Context, task FileTask, dst *os.File) (int64, bool, error) {
	src, err := os.Open(task.SrcPath)
	if err != nil {
		return 0, true, errors.Errorf("open source: %w", err)
	}
	defer src.Close()

	segs, err := detectSegments(src, task.Size)
	if err != nil {
		wp.log.Debug().Err(err).Str("path", task.SrcPath).Msg("sparse probe failed, copying dense")
		return 0, false, nil
	}
	if !hasHoles(segs) {
		return 0, false, nil
	}

	if err := dst.Truncate(task.Size); err != nil {
		return 0, true, errors.Errorf("truncate: %w", err)
	}

	buf := make([]byte, 1<<20)
	var written int64
	for _, seg := range segs {
		if !seg.data {
			continue
		}
		n, segErr := wp.copySegment(ctx, src, dst, seg, buf)
		written += n
		if segErr != nil {
			return written, true, segErr
		}
	}
	return written, true, nil
}

func (wp *WorkerPool) copySegment(ctx context.Context, src, dst *os.File, seg segment, buf []byte) (int64, error) {
	var copied int64
	for copied < seg.length {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		chunk := min(int64(len(buf)), seg.length-copied)
		if wp.cfg.BWLimit != nil {
			chunk = min(chunk, int64(wp.cfg.BWLimit.Burst()))
		}

		off := seg.offset + copied
		n, readErr := src.ReadAt(buf[:chunk], off)
		if n > 0 {
			if wp.cfg.BWLimit != nil {
				if err := wp.cfg.BWLimit.WaitN(ctx, n); err != nil {
					return copied, err
				}
			}
			if _, writeErr := dst.WriteAt(buf[:n], off); writeErr != nil {
				return copied, errors.Errorf("write segment: %w", writeErr)
			}
			copied += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return copied, errors.Errorf("read segment: %w", readErr)
		}
	}
	return copied, nil
}

// copyThrottled goes through userspace buffers so the shared limiter
// sees every byte; the kernel fast paths would bypass it.
func (wp *WorkerPool) copyThrottled(ctx context.Context, task FileTask, dst *os.File) (int64, error) {
	src, err := os.Open(task.SrcPath)
	if err != nil {
		return 0, errors.Errorf("open source: %w", err)
	}
	defer src.Close()
	return io.Copy(dst, newRateLimitedReader(ctx, src, wp.cfg.BWLimit))
}

func (wp *WorkerPool) setFileMetadata(task FileTask, fd *os.File) error {
	mode := task.Mode & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
	if err := fd.Chmod(mode); err != nil {
		return errors.Errorf("chmod: %w", err)
	}
	if err := setFileTimes(int(fd.Fd()), fd.Name(), task.ModTime); err != nil {
		return err
	}
	return nil
}

// ensureBucketDir creates the bucket directory on first use. Buckets
// that already exist on disk from earlier runs are not counted again.
func (wp *WorkerPool) ensureBucketDir(dir string) error {
	if _, seen := wp.dirsMade.LoadOrStore(dir, struct{}{}); seen {
		return nil
	}
	if _, err := os.Lstat(dir); err == nil {
		return nil
	}
	if !wp.cfg.DryRun {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			wp.dirsMade.Delete(dir)
			return errors.Errorf("create bucket %s: %w", dir, err)
		}
	}
	wp.agg.AddBucketCreated()
	wp.emit(event.Event{Type: event.BucketCreated, Dest: dir})
	return nil
}
