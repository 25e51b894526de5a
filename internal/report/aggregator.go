package report

import (
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Aggregator accumulates outcomes as workers produce them. Counters are
// lock-free atomics; the failure list and the throughput ring sit behind a
// mutex. Arrival order carries no meaning.
type Aggregator struct {
	filesTotal       atomic.Int64
	bytesTotal       atomic.Int64
	copied           atomic.Int64
	skipped          atomic.Int64
	failed           atomic.Int64
	skippedLocked    atomic.Int64
	skippedExcluded  atomic.Int64
	skippedCancelled atomic.Int64
	bytesCopied      atomic.Int64
	bucketsCreated   atomic.Int64
	startTime        time.Time

	// Ring buffer written only by the presenter's Tick, never by workers.
	mu          sync.Mutex
	failures    []Failure
	throughput  [ringSize]int64
	filesPerSec [ringSize]int64
	ringIdx     int
	ringCount   int
	lastBytes   int64
	lastFiles   int64
}

// NewAggregator creates an Aggregator with its clock started.
func NewAggregator() *Aggregator {
	return &Aggregator{startTime: time.Now()}
}

// AddFilesTotal counts files discovered by the scanner.
func (a *Aggregator) AddFilesTotal(n int64) { a.filesTotal.Add(n) }

// AddBytesTotal counts bytes discovered by the scanner.
func (a *Aggregator) AddBytesTotal(n int64) { a.bytesTotal.Add(n) }

// AddBucketCreated counts destination bucket directories created this run.
func (a *Aggregator) AddBucketCreated() { a.bucketsCreated.Add(1) }

// Record folds one outcome into the totals.
func (a *Aggregator) Record(o Outcome) {
	switch o.Status {
	case Copied:
		a.copied.Add(1)
		a.bytesCopied.Add(o.Bytes)
	case Skipped:
		a.skipped.Add(1)
		switch o.Reason {
		case SkipLocked:
			a.skippedLocked.Add(1)
		case SkipExcluded:
			a.skippedExcluded.Add(1)
		case SkipCancelled:
			a.skippedCancelled.Add(1)
		}
	case Failed:
		a.failed.Add(1)
		a.mu.Lock()
		a.failures = append(a.failures, Failure{
			Path:     o.RelPath,
			Kind:     o.Kind,
			Attempts: o.Attempts,
			Err:      o.Err,
		})
		a.mu.Unlock()
	}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesTotal       int64
	BytesTotal       int64
	Copied           int64
	Skipped          int64
	Failed           int64
	SkippedLocked    int64
	SkippedExcluded  int64
	SkippedCancelled int64
	BytesCopied      int64
	BucketsCreated   int64
	Elapsed          time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		FilesTotal:       a.filesTotal.Load(),
		BytesTotal:       a.bytesTotal.Load(),
		Copied:           a.copied.Load(),
		Skipped:          a.skipped.Load(),
		Failed:           a.failed.Load(),
		SkippedLocked:    a.skippedLocked.Load(),
		SkippedExcluded:  a.skippedExcluded.Load(),
		SkippedCancelled: a.skippedCancelled.Load(),
		BytesCopied:      a.bytesCopied.Load(),
		BucketsCreated:   a.bucketsCreated.Load(),
		Elapsed:          a.Elapsed(),
	}
}

// Summary returns the final report. Call it after every outcome has been
// recorded; the failure list is copied so the result is immutable.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	failures := make([]Failure, len(a.failures))
	copy(failures, a.failures)
	a.mu.Unlock()
	return Summary{Snapshot: a.Snapshot(), Failures: failures}
}

// Tick snapshots byte/file deltas into the ring buffer. Called once per
// second by the presenter.
func (a *Aggregator) Tick() {
	currentBytes := a.bytesCopied.Load()
	currentFiles := a.copied.Load()

	a.mu.Lock()
	defer a.mu.Unlock()

	bytesDelta := currentBytes - a.lastBytes
	filesDelta := currentFiles - a.lastFiles
	a.lastBytes = currentBytes
	a.lastFiles = currentFiles

	a.throughput[a.ringIdx] = bytesDelta
	a.filesPerSec[a.ringIdx] = filesDelta
	a.ringIdx = (a.ringIdx + 1) % ringSize
	if a.ringCount < ringSize {
		a.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (a *Aggregator) RollingSpeed(seconds int) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rollingAvg(a.throughput[:], seconds)
}

// RollingFilesPerSec returns average files/sec over the last n seconds.
func (a *Aggregator) RollingFilesPerSec(seconds int) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rollingAvg(a.filesPerSec[:], seconds)
}

func (a *Aggregator) rollingAvg(buf []int64, n int) float64 {
	count := n
	if count > a.ringCount {
		count = a.ringCount
	}
	if count == 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (a.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// SparklineData returns the last n bytes/sec samples, oldest first.
func (a *Aggregator) SparklineData(n int) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	count := n
	if count > a.ringCount {
		count = a.ringCount
	}
	if count == 0 {
		return nil
	}

	data := make([]float64, count)
	for i := range count {
		idx := (a.ringIdx - count + i + ringSize) % ringSize
		data[i] = float64(a.throughput[idx])
	}
	return data
}

// ETA estimates remaining time from rolling speed and remaining bytes.
func (a *Aggregator) ETA() time.Duration {
	speed := a.RollingSpeed(10)
	if speed <= 0 {
		return 0
	}
	remaining := a.bytesTotal.Load() - a.bytesCopied.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Elapsed returns time since the aggregator was created.
func (a *Aggregator) Elapsed() time.Duration {
	return time.Since(a.startTime)
}
