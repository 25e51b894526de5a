// Package report aggregates per-file outcomes into the run summary.
package report

import (
	"fmt"

	"github.com/mavery/cubby/internal/copyerr"
)

// Status is the terminal state of one discovered file.
type Status int

const (
	Copied Status = iota + 1
	Skipped
	Failed
)

var statusNames = [...]string{
	Copied:  "copied",
	Skipped: "skipped",
	Failed:  "failed",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// SkipReason says why a file was skipped rather than copied.
type SkipReason string

const (
	SkipLocked    SkipReason = "locked"
	SkipExcluded  SkipReason = "excluded"
	SkipCancelled SkipReason = "cancelled"
)

// Outcome is produced exactly once per discovered file and consumed by the
// Aggregator.
type Outcome struct {
	RelPath  string
	Status   Status
	Dest     string       // final destination path, Copied only
	Bytes    int64        // bytes written, Copied only
	Reason   SkipReason   // Skipped only
	Kind     copyerr.Kind // Failed only
	Attempts int          // copy attempts executed
	Err      error        // Failed only
}

// CopiedOutcome records a successful copy.
func CopiedOutcome(relPath, dest string, bytes int64, attempts int) Outcome {
	return Outcome{RelPath: relPath, Status: Copied, Dest: dest, Bytes: bytes, Attempts: attempts}
}

// SkippedOutcome records a file deliberately not copied.
func SkippedOutcome(relPath string, reason SkipReason) Outcome {
	return Outcome{RelPath: relPath, Status: Skipped, Reason: reason}
}

// FailedOutcome records a file that could not be copied.
func FailedOutcome(relPath string, attempts int, err error) Outcome {
	return Outcome{
		RelPath:  relPath,
		Status:   Failed,
		Kind:     copyerr.Classify(err),
		Attempts: attempts,
		Err:      err,
	}
}

// Failure is one entry of the final report's failure list.
type Failure struct {
	Path     string
	Kind     copyerr.Kind
	Attempts int
	Err      error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %v (%s, %d attempts)", f.Path, f.Err, f.Kind, f.Attempts)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func (s Snapshot) String() string {
	return fmt.Sprintf("copied=%d skipped=%d failed=%d bytes=%d",
		s.Copied, s.Skipped, s.Failed, s.BytesCopied)
}

// ExitCode maps the summary onto the process exit status: 0 for a clean
// run, 1 when any file failed.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// Summary is the immutable final report, available once the run is done.
type Summary struct {
	Snapshot
	Failures []Failure
}
