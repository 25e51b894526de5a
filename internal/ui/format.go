package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mavery/cubby/internal/report"
)

// FormatRate formats a bytes-per-second rate for display.
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0 B/s"
	}
	units := []string{"B/s", "KB/s", "MB/s", "GB/s", "TB/s"}
	val := bytesPerSec
	for _, u := range units {
		if val < 1024 {
			switch {
			case val < 10:
				return fmt.Sprintf("%.2f %s", val, u)
			case val < 100:
				return fmt.Sprintf("%.1f %s", val, u)
			default:
				return fmt.Sprintf("%.0f %s", val, u)
			}
		}
		val /= 1024
	}
	return fmt.Sprintf("%.1f PB/s", val)
}

// FormatETA formats a remaining-time estimate, "--" when unknown.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	return FormatDuration(d)
}

// FormatDuration formats elapsed time concisely.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatCount formats an integer with comma separators.
func FormatCount(n int64) string {
	if n < 0 {
		return "-" + FormatCount(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		b.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatBytes wraps the report package's formatter for UI use.
func FormatBytes(b int64) string {
	return report.FormatBytes(b)
}

// ProgressBar renders a bar of the given width using ▪/□ runes.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}

	filled := min(int(pct*float64(width)), width)
	var b strings.Builder
	for range filled {
		b.WriteRune('▪')
	}
	for range width - filled {
		b.WriteRune('□')
	}
	return b.String()
}

// Sparkline renders samples as Unicode block characters, exactly width
// runes wide, normalized to the largest sample shown.
func Sparkline(data []float64, width int) string {
	if width <= 0 {
		return ""
	}

	blocks := []rune("▁▂▃▄▅▆▇█")

	samples := make([]float64, width)
	if len(data) >= width {
		copy(samples, data[len(data)-width:])
	} else {
		copy(samples[width-len(data):], data)
	}

	var maxVal float64
	for _, v := range samples {
		maxVal = max(maxVal, v)
	}

	out := make([]rune, width)
	for i, v := range samples {
		if maxVal <= 0 || v <= 0 {
			out[i] = blocks[0]
			continue
		}
		idx := min(int(v/maxVal*float64(len(blocks)-1)), len(blocks)-1)
		out[i] = blocks[idx]
	}
	return string(out)
}

// StripRoot removes a root prefix from a path for display.
func StripRoot(root, path string) string {
	if root == "" {
		return path
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.TrimPrefix(path, root)
}
