// Package logging configures the global zerolog logger for cubby.
//
// Console output goes to stderr through a ConsoleWriter so it never
// interleaves with the progress display on stdout. When a log file is
// requested, structured JSON records are appended there as well.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/term"
)

// Setup configures the global logger. Verbosity maps to levels:
// 0 warn, 1 info, 2 debug, 3+ trace. When logPath is non-empty, JSON
// records are also appended to that file.
func Setup(verbosity int, logPath string) error {
	switch verbosity {
	case 0:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
	}

	writers := []io.Writer{console}
	if logPath != "" {
		f, err := openLogFile(logPath)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}
	return nil
}

// Get returns a logger tagged with a component name.
func Get(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Errorf("open log file: %w", err)
	}
	return f, nil
}
