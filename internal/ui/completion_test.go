package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mavery/cubby/internal/copyerr"
	"github.com/mavery/cubby/internal/report"
)

func TestCompletionCleanRun(t *testing.T) {
	s := report.Summary{
		Snapshot: report.Snapshot{
			FilesTotal:  48,
			Copied:      48,
			BytesCopied: 2 << 20,
			Elapsed:     2 * time.Second,
		},
	}

	out := Completion(s, false)
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "copied 48")
	assert.Contains(t, out, "2.0 MiB")
	assert.Contains(t, out, "time 2s")
	assert.NotContains(t, out, "skipped")
	assert.NotContains(t, out, "failed")
}

func TestCompletionSkipBreakdown(t *testing.T) {
	s := report.Summary{
		Snapshot: report.Snapshot{
			FilesTotal:       10,
			Copied:           7,
			Skipped:          3,
			SkippedLocked:    2,
			SkippedExcluded:  1,
			SkippedCancelled: 0,
			Elapsed:          time.Second,
		},
	}

	out := Completion(s, false)
	assert.Contains(t, out, "skipped 3 (2 locked, 1 excluded)")
	assert.NotContains(t, out, "cancelled")
}

func TestCompletionFailureList(t *testing.T) {
	s := report.Summary{
		Snapshot: report.Snapshot{
			FilesTotal: 2,
			Copied:     1,
			Failed:     1,
			Elapsed:    time.Second,
		},
		Failures: []report.Failure{
			{Path: "docs/report.txt", Kind: copyerr.Transient, Attempts: 4, Err: errors.New("device gone")},
		},
	}

	out := Completion(s, false)
	assert.Contains(t, out, "failed 1")
	assert.Contains(t, out, "failures:")
	assert.Contains(t, out, "docs/report.txt")
	assert.Contains(t, out, "device gone")
	assert.Contains(t, out, "transient, 4 attempts")
}

func TestCompletionDryRun(t *testing.T) {
	s := report.Summary{
		Snapshot: report.Snapshot{
			FilesTotal: 5,
			Copied:     5,
			Elapsed:    time.Second,
		},
	}

	out := Completion(s, true)
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "copied 5")
	// Nothing was written, so no size or throughput claims.
	assert.NotContains(t, out, "size")
	assert.NotContains(t, out, "avg")
}

func TestCompletionBucketCount(t *testing.T) {
	s := report.Summary{
		Snapshot: report.Snapshot{
			FilesTotal:     3,
			Copied:         3,
			BucketsCreated: 2,
			Elapsed:        time.Second,
		},
	}

	out := Completion(s, false)
	assert.Contains(t, out, "buckets 2")
}
