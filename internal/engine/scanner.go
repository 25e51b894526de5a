package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/mavery/cubby/internal/event"
	"github.com/mavery/cubby/internal/exclude"
	"github.com/mavery/cubby/internal/logging"
	"github.com/mavery/cubby/internal/report"
)

// ScannerConfig controls traversal.
type ScannerConfig struct {
	SrcRoot string

	// DstRoot is pruned from the walk when it lives inside SrcRoot, so
	// a run never rediscovers its own output.
	DstRoot string

	Workers  int
	Excludes *exclude.Set
}

// Scanner traverses the source tree in parallel and emits a FileTask for
// every regular file that should be copied. Symbolic links to files are
// queued like files; links to directories are followed, with a
// device/inode guard so link cycles terminate. Excluded files and
// traversal failures surface as outcomes rather than tasks.
type Scanner struct {
	cfg      ScannerConfig
	tasks    chan FileTask
	outcomes chan<- report.Outcome
	agg      *report.Aggregator
	emit     emitFunc
	log      zerolog.Logger

	workQueue   chan string
	outstanding sync.WaitGroup // directories queued but not yet processed
	visited     sync.Map       // DevIno -> struct{}

	filesSeen   atomic.Int64
	bytesQueued atomic.Int64
}

// NewScanner creates a scanner. Excluded files and unreadable
// directories are reported on outcomes; discovered totals are recorded
// on agg as the walk progresses.
func NewScanner(cfg ScannerConfig, outcomes chan<- report.Outcome, agg *report.Aggregator, emit emitFunc) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = min(runtime.NumCPU(), 8)
	}
	return &Scanner{
		cfg:       cfg,
		tasks:     make(chan FileTask, cfg.Workers*4),
		outcomes:  outcomes,
		agg:       agg,
		emit:      emit,
		log:       logging.Get("scanner"),
		workQueue: make(chan string, cfg.Workers*2),
	}
}

// Tasks returns the channel the walk feeds. It closes when Run
// returns.
func (s *Scanner) Tasks() <-chan FileTask {
	return s.tasks
}

// Run walks the tree, blocking until traversal completes or the
// context is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	defer close(s.tasks)
	s.scanTree(ctx)
	s.emit(event.Event{
		Type:      event.ScanComplete,
		Total:     s.filesSeen.Load(),
		TotalSize: s.bytesQueued.Load(),
	})
	return nil
}

func (s *Scanner) scanTree(ctx context.Context) {
	var workerWg sync.WaitGroup
	for range s.cfg.Workers {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for dirPath := range s.workQueue {
				s.scanDir(ctx, dirPath)
				s.outstanding.Done()
			}
		}()
	}

	// Seed with the root, marking its identity so a symlink back to it
	// is not followed.
	if info, err := os.Stat(s.cfg.SrcRoot); err == nil {
		if id, ok := fileID(info); ok {
			s.visited.Store(id, struct{}{})
		}
	}
	s.outstanding.Add(1)
	s.workQueue <- s.cfg.SrcRoot

	// Wait for all directory work to finish, then close the work queue
	// so workers exit their range loop.
	s.outstanding.Wait()
	close(s.workQueue)
	workerWg.Wait()
}

func (s *Scanner) scanDir(ctx context.Context, dirPath string) {
	relDir, err := filepath.Rel(s.cfg.SrcRoot, dirPath)
	if err != nil {
		s.sendOutcome(report.FailedOutcome(dirPath, 0, errors.Errorf("relative path: %w", err)))
		return
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		s.log.Warn().Err(err).Str("dir", dirPath).Msg("cannot read directory")
		s.sendOutcome(report.FailedOutcome(relDir, 0, errors.Errorf("read directory: %w", err)))
		return
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.processEntry(ctx, dirPath, relDir, entry)
	}
}

func (s *Scanner) processEntry(ctx context.Context, dirPath, relDir string, entry fs.DirEntry) {
	entryPath := filepath.Join(dirPath, entry.Name())
	entryRel := filepath.Join(relDir, entry.Name())
	excluded := s.cfg.Excludes.Match(entryRel)

	switch {
	case entry.IsDir():
		if excluded {
			s.log.Debug().Str("dir", entryRel).Msg("pruning excluded directory")
			return
		}
		if s.isDstRoot(entryPath) {
			s.log.Debug().Str("dir", entryRel).Msg("pruning destination root")
			return
		}
		info, err := entry.Info()
		if err != nil {
			s.sendOutcome(report.FailedOutcome(entryRel, 0, errors.Errorf("stat directory: %w", err)))
			return
		}
		s.queueDir(ctx, entryPath, info)

	case entry.Type()&fs.ModeSymlink != 0:
		// Follow the link. Dangling or otherwise unresolvable links are
		// not files and are left behind.
		info, err := os.Stat(entryPath)
		if err != nil {
			s.log.Debug().Err(err).Str("path", entryRel).Msg("ignoring unresolvable symlink")
			return
		}
		switch {
		case info.IsDir():
			if excluded {
				s.log.Debug().Str("dir", entryRel).Msg("pruning excluded directory")
				return
			}
			if s.isDstRoot(entryPath) {
				s.log.Debug().Str("dir", entryRel).Msg("pruning destination root")
				return
			}
			s.queueDir(ctx, entryPath, info)
		case info.Mode().IsRegular():
			s.foundFile(ctx, FileTask{
				SrcPath: entryPath,
				RelPath: entryRel,
				Size:    info.Size(),
				Mode:    info.Mode(),
				ModTime: info.ModTime(),
			}, excluded)
		}

	case entry.Type().IsRegular():
		info, err := entry.Info()
		if err != nil {
			s.sendOutcome(report.FailedOutcome(entryRel, 0, errors.Errorf("stat file: %w", err)))
			return
		}
		s.foundFile(ctx, FileTask{
			SrcPath: entryPath,
			RelPath: entryRel,
			Size:    info.Size(),
			Mode:    info.Mode(),
			ModTime: info.ModTime(),
		}, excluded)

	default:
		// Sockets, pipes, devices.
		s.log.Debug().Str("path", entryRel).Msg("ignoring special file")
	}
}

// foundFile records a discovered regular file and either queues it for
// copying or reports it as skipped when excluded.
func (s *Scanner) foundFile(ctx context.Context, task FileTask, excluded bool) {
	s.filesSeen.Add(1)
	s.agg.AddFilesTotal(1)

	if excluded {
		s.log.Debug().Str("path", task.RelPath).Msg("excluded by pattern")
		s.sendOutcome(report.SkippedOutcome(task.RelPath, report.SkipExcluded))
		return
	}

	s.bytesQueued.Add(task.Size)
	s.agg.AddBytesTotal(task.Size)

	select {
	case s.tasks <- task:
	case <-ctx.Done():
		s.sendOutcome(report.SkippedOutcome(task.RelPath, report.SkipCancelled))
	}
}

// queueDir schedules a directory for scanning unless its identity has
// already been visited.
func (s *Scanner) queueDir(ctx context.Context, path string, info fs.FileInfo) {
	if id, ok := fileID(info); ok {
		if _, seen := s.visited.LoadOrStore(id, struct{}{}); seen {
			s.log.Debug().Str("dir", path).Msg("directory already visited, skipping")
			return
		}
	}
	s.outstanding.Add(1)
	select {
	case s.workQueue <- path:
	case <-ctx.Done():
		s.outstanding.Done()
	default:
		// Scan workers produce into the queue they consume from. When
		// it is full every worker may be blocked sending, so walk
		// inline rather than wait.
		s.scanDir(ctx, path)
		s.outstanding.Done()
	}
}

func (s *Scanner) isDstRoot(path string) bool {
	return s.cfg.DstRoot != "" && filepath.Clean(path) == s.cfg.DstRoot
}

func (s *Scanner) sendOutcome(o report.Outcome) {
	s.outcomes <- o
}
