package report

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/mavery/cubby/internal/copyerr"
)

func TestRecordCopied(t *testing.T) {
	a := NewAggregator()
	a.Record(CopiedOutcome("pics/a.jpg", "/dst/jpg/a.jpg", 2048, 1))

	s := a.Snapshot()
	assert.Equal(t, int64(1), s.Copied)
	assert.Equal(t, int64(2048), s.BytesCopied)
	assert.Zero(t, s.Failed)
	assert.Zero(t, s.Skipped)
}

func TestRecordSkippedByReason(t *testing.T) {
	a := NewAggregator()
	a.Record(SkippedOutcome("a", SkipLocked))
	a.Record(SkippedOutcome("b", SkipExcluded))
	a.Record(SkippedOutcome("c", SkipExcluded))
	a.Record(SkippedOutcome("d", SkipCancelled))

	s := a.Snapshot()
	assert.Equal(t, int64(4), s.Skipped)
	assert.Equal(t, int64(1), s.SkippedLocked)
	assert.Equal(t, int64(2), s.SkippedExcluded)
	assert.Equal(t, int64(1), s.SkippedCancelled)
}

func TestRecordFailedKeepsDetails(t *testing.T) {
	a := NewAggregator()
	a.Record(FailedOutcome("docs/x.pdf", 4, errors.New("disk exploded")))

	sum := a.Summary()
	assert.Equal(t, int64(1), sum.Failed)
	require.Len(t, sum.Failures, 1)
	f := sum.Failures[0]
	assert.Equal(t, "docs/x.pdf", f.Path)
	assert.Equal(t, 4, f.Attempts)
	assert.EqualError(t, f.Err, "disk exploded")
}

func TestFailedOutcomeClassifies(t *testing.T) {
	wrapped := errors.Errorf("copy: %w", copyerr.ErrLocked)
	o := FailedOutcome("a", 3, wrapped)
	assert.Equal(t, copyerr.Locked, o.Kind)
}

func TestSummaryIsACopy(t *testing.T) {
	a := NewAggregator()
	a.Record(FailedOutcome("one", 1, errors.New("x")))
	sum := a.Summary()

	a.Record(FailedOutcome("two", 1, errors.New("y")))
	assert.Len(t, sum.Failures, 1)
	assert.Len(t, a.Summary().Failures, 2)
}

func TestExitCode(t *testing.T) {
	a := NewAggregator()
	a.Record(CopiedOutcome("a", "/dst/a", 1, 1))
	assert.Equal(t, 0, a.Summary().ExitCode())

	a.Record(SkippedOutcome("b", SkipLocked))
	assert.Equal(t, 0, a.Summary().ExitCode())

	a.Record(FailedOutcome("c", 2, errors.New("no")))
	assert.Equal(t, 1, a.Summary().ExitCode())
}

func TestConcurrentRecord(t *testing.T) {
	a := NewAggregator()
	const goroutines = 50
	const perGoroutine = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range perGoroutine {
				a.Record(CopiedOutcome("f", "/dst/f", 256, 1))
				a.Record(SkippedOutcome("g", SkipLocked))
				a.Record(FailedOutcome("h", 1, errors.New("boom")))
			}
		}()
	}
	wg.Wait()

	total := int64(goroutines * perGoroutine)
	s := a.Snapshot()
	assert.Equal(t, total, s.Copied)
	assert.Equal(t, total, s.Skipped)
	assert.Equal(t, total, s.Failed)
	assert.Equal(t, total*256, s.BytesCopied)
	assert.Len(t, a.Summary().Failures, int(total))
}

func TestScanTotals(t *testing.T) {
	a := NewAggregator()
	a.AddFilesTotal(10)
	a.AddFilesTotal(5)
	a.AddBytesTotal(1024)

	s := a.Snapshot()
	assert.Equal(t, int64(15), s.FilesTotal)
	assert.Equal(t, int64(1024), s.BytesTotal)
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{Copied: 8, Skipped: 1, Failed: 1, BytesCopied: 4096}
	assert.Equal(t, "copied=8 skipped=1 failed=1 bytes=4096", s.String())
}

func TestTickAndRollingSpeed(t *testing.T) {
	a := NewAggregator()

	for range 5 {
		a.Record(CopiedOutcome("f", "/dst/f", 1000, 1))
		a.Tick()
	}

	assert.InDelta(t, 1000.0, a.RollingSpeed(5), 0.01)
	assert.InDelta(t, 1.0, a.RollingFilesPerSec(5), 0.01)
}

func TestRollingSpeedPartialWindow(t *testing.T) {
	a := NewAggregator()
	a.Record(CopiedOutcome("f", "/dst/f", 500, 1))
	a.Tick()
	a.Record(CopiedOutcome("g", "/dst/g", 500, 1))
	a.Tick()

	assert.InDelta(t, 500.0, a.RollingSpeed(10), 0.01)
}

func TestRollingSpeedNoSamples(t *testing.T) {
	assert.Equal(t, 0.0, NewAggregator().RollingSpeed(5))
}

func TestSparklineData(t *testing.T) {
	a := NewAggregator()
	for i := range 5 {
		a.Record(CopiedOutcome("f", "/dst/f", int64((i+1)*100), 1))
		a.Tick()
	}

	data := a.SparklineData(5)
	require.Len(t, data, 5)
	assert.InDelta(t, 100, data[0], 0.01)
	assert.InDelta(t, 500, data[4], 0.01)
}

func TestRingWraparound(t *testing.T) {
	a := NewAggregator()
	for i := range ringSize + 10 {
		a.Record(CopiedOutcome("f", "/dst/f", int64(i+1), 1))
		a.Tick()
	}
	data := a.SparklineData(ringSize)
	require.Len(t, data, ringSize)
}

func TestETA(t *testing.T) {
	a := NewAggregator()
	a.AddFilesTotal(100)
	a.AddBytesTotal(10000)

	for range 5 {
		a.Record(CopiedOutcome("f", "/dst/f", 1000, 1))
		a.Tick()
	}

	assert.InDelta(t, 5.0, a.ETA().Seconds(), 1.0)
}

func TestETANoSpeed(t *testing.T) {
	a := NewAggregator()
	a.AddBytesTotal(10000)
	assert.Equal(t, time.Duration(0), a.ETA())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{1073741824, "1.0 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, FormatBytes(tt.input))
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "copied", Copied.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "failed", Failed.String())
}
