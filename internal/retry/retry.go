// Package retry runs fallible operations with bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/mavery/cubby/internal/copyerr"
)

// Policy bounds the retry loop. MaxRetries counts attempts after the first,
// so MaxRetries=3 allows four executions in total. The wait before retry n
// (zero-based) is BaseDelay doubled n times.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration

	// OnRetry, when set, observes each scheduled retry before its backoff
	// wait begins. attempt is the number of attempts already executed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Do runs op until it succeeds, fails unrecoverably, or the retry budget is
// spent. Only Locked and Transient errors are retried; the backoff wait
// respects ctx, so cancellation interrupts a sleeping retry immediately.
// attempts is the number of times op actually ran. err is the last error op
// produced, or ctx.Err() when a wait was interrupted.
func (p Policy) Do(ctx context.Context, op func() error) (attempts int, err error) {
	for {
		if cerr := ctx.Err(); cerr != nil {
			return attempts, cerr
		}
		attempts++
		err = op()
		if err == nil {
			return attempts, nil
		}
		if !copyerr.Classify(err).Retryable() || attempts > p.MaxRetries {
			return attempts, err
		}
		delay := p.backoff(attempts - 1)
		if p.OnRetry != nil {
			p.OnRetry(attempts, delay, err)
		}
		if werr := sleep(ctx, delay); werr != nil {
			return attempts, werr
		}
	}
}

func (p Policy) backoff(n int) time.Duration {
	if n > 30 {
		n = 30
	}
	return p.BaseDelay * time.Duration(1<<uint(n))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
