package ui

import (
	"github.com/mavery/cubby/internal/event"
	"github.com/mavery/cubby/internal/report"
)

// quietPresenter drains events without output. The final summary is
// still rendered, so failures stay visible even in scripts.
type quietPresenter struct {
	dryRun bool
}

func (p *quietPresenter) Run(events <-chan event.Event) error {
	for range events {
	}
	return nil
}

func (p *quietPresenter) Summary(summary report.Summary) string {
	return Completion(summary, p.dryRun)
}
