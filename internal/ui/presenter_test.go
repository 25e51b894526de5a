package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavery/cubby/internal/event"
	"github.com/mavery/cubby/internal/report"
)

func TestNewPresenterSelectsMode(t *testing.T) {
	agg := report.NewAggregator()

	p := NewPresenter(Config{Quiet: true, IsTTY: true, Agg: agg})
	_, isQuiet := p.(*quietPresenter)
	assert.True(t, isQuiet, "quiet beats everything")

	p = NewPresenter(Config{IsTTY: false, Agg: agg})
	_, isPlain := p.(*plainPresenter)
	assert.True(t, isPlain, "pipes get the plain feed")

	p = NewPresenter(Config{IsTTY: true, NoProgress: true, Agg: agg})
	_, isPlain = p.(*plainPresenter)
	assert.True(t, isPlain, "--no-progress forces the plain feed")

	p = NewPresenter(Config{IsTTY: true, Agg: agg})
	_, isHUD := p.(*hudPresenter)
	assert.True(t, isHUD, "interactive terminals get the HUD")
}

func TestQuietPresenterDrainsWithoutOutput(t *testing.T) {
	p := NewPresenter(Config{Quiet: true})

	events := make(chan event.Event, 3)
	events <- event.Event{Type: event.FileCopied, Path: "a.txt"}
	events <- event.Event{Type: event.FileFailed, Path: "b.txt", Error: assert.AnError}
	close(events)

	require.NoError(t, p.Run(events))
}

func TestQuietPresenterStillRendersSummary(t *testing.T) {
	p := NewPresenter(Config{Quiet: true})

	s := p.Summary(report.Summary{
		Snapshot: report.Snapshot{FilesTotal: 2, Copied: 1, Failed: 1, Elapsed: time.Second},
	})
	assert.Contains(t, s, "failed 1")
}
