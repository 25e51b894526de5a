// Package copyerr sorts copy failures into the retry taxonomy.
package copyerr

import (
	"context"

	"gitlab.com/tozd/go/errors"
)

// Kind says how the copy pipeline should react to an error.
type Kind int

const (
	// Transient covers temporary conditions worth retrying. It is also the
	// default for errors we cannot place more precisely.
	Transient Kind = iota
	// Locked means another process holds the file. Retryable, and
	// convertible to a skip when the run allows it.
	Locked
	// Fatal is not retryable: the situation will not improve on its own.
	Fatal
	// Config marks bad run configuration, caught before any copying.
	Config
)

var kindNames = [...]string{
	Transient: "transient",
	Locked:    "locked",
	Fatal:     "fatal",
	Config:    "config",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Retryable reports whether another attempt could succeed.
func (k Kind) Retryable() bool {
	return k == Transient || k == Locked
}

// ErrLocked marks errors raised when a file is held by another process.
// Wrap it to force a Locked classification regardless of errno.
var ErrLocked = errors.New("file locked by another process")

// Classify places err in the taxonomy. Explicit markers win, then the
// platform errno mapping. Anything unrecognized counts as Transient so it
// still gets the retry treatment before being reported.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrLocked):
		return Locked
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Fatal
	}
	return classifyPlatform(err)
}
