package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/mavery/cubby/internal/report"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	failText = color.New(color.FgRed).SprintfFunc()
)

// Completion builds the final report: a one-line summary, a skip
// breakdown when anything was skipped, and the failure list.
//
//	done ✓  copied 48  skipped 3 (2 locked, 1 excluded)  size 2.1 MiB  avg 641 MB/s  time 3s
func Completion(s report.Summary, dryRun bool) string {
	var b strings.Builder

	icon := okMark
	if s.Failed > 0 {
		icon = failMark
	}

	verb := "done"
	if dryRun {
		verb = "dry run"
	}

	fmt.Fprintf(&b, "%s %s  copied %s", verb, icon, FormatCount(s.Copied))
	if s.Skipped > 0 {
		fmt.Fprintf(&b, "  skipped %s (%s)", FormatCount(s.Skipped), skipBreakdown(s))
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, "  %s", failText("failed %s", FormatCount(s.Failed)))
	}

	if dryRun {
		fmt.Fprintf(&b, "  time %s", FormatDuration(s.Elapsed))
	} else {
		avg := 0.0
		if s.Elapsed.Seconds() > 0 {
			avg = float64(s.BytesCopied) / s.Elapsed.Seconds()
		}
		fmt.Fprintf(&b, "  size %s  avg %s  time %s",
			FormatBytes(s.BytesCopied), FormatRate(avg), FormatDuration(s.Elapsed))
	}
	if s.BucketsCreated > 0 {
		fmt.Fprintf(&b, "  buckets %s", FormatCount(s.BucketsCreated))
	}

	if len(s.Failures) > 0 {
		b.WriteString("\nfailures:\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "  %s %s\n", failMark, f)
		}
	}

	return b.String()
}

func skipBreakdown(s report.Summary) string {
	var parts []string
	if s.SkippedLocked > 0 {
		parts = append(parts, fmt.Sprintf("%d locked", s.SkippedLocked))
	}
	if s.SkippedExcluded > 0 {
		parts = append(parts, fmt.Sprintf("%d excluded", s.SkippedExcluded))
	}
	if s.SkippedCancelled > 0 {
		parts = append(parts, fmt.Sprintf("%d cancelled", s.SkippedCancelled))
	}
	return strings.Join(parts, ", ")
}
