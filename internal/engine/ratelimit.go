package engine

import (
	"context"
	"io"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/time/rate"
)

// ParseRate parses a human-readable bandwidth limit into bytes per
// second. Supports plain numbers and K/M/G/T suffixes (powers of 1024,
// case-insensitive), e.g. "25M" or "1.5G".
func ParseRate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty rate")
	}

	multiplier := int64(1)
	numStr := s
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 1 << 10
		numStr = s[:len(s)-1]
	case "M":
		multiplier = 1 << 20
		numStr = s[:len(s)-1]
	case "G":
		multiplier = 1 << 30
		numStr = s[:len(s)-1]
	case "T":
		multiplier = 1 << 40
		numStr = s[:len(s)-1]
	}
	if numStr == "" {
		return 0, errors.Errorf("invalid rate: %q", s)
	}

	if n, err := strconv.ParseInt(numStr, 10, 64); err == nil {
		if n <= 0 {
			return 0, errors.Errorf("rate must be positive: %q", s)
		}
		return n * multiplier, nil
	}
	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil || f <= 0 {
		return 0, errors.Errorf("invalid rate: %q", s)
	}
	return int64(f * float64(multiplier)), nil
}

// NewBWLimiter creates a limiter capping aggregate copy throughput to
// bytesPerSec. The burst is capped at 1 MB so natural read-size chunks
// pass without blocking.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// rateLimitedReader throttles reads against a limiter shared by all
// workers.
type rateLimitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func newRateLimitedReader(ctx context.Context, r io.Reader, limiter *rate.Limiter) *rateLimitedReader {
	return &rateLimitedReader{r: r, limiter: limiter, ctx: ctx}
}

func (rl *rateLimitedReader) Read(p []byte) (int, error) {
	// Never read more than the burst in one go or WaitN would fail.
	if b := rl.limiter.Burst(); len(p) > b {
		p = p[:b]
	}
	n, err := rl.r.Read(p)
	if n > 0 {
		if waitErr := rl.limiter.WaitN(rl.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}
