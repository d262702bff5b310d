package slog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fwojciec/sitecrawl"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation settings.
const (
	DefaultLogFileMaxSizeMB = 10
	DefaultLogFileMaxAgeDay = 10
)

// Options configures NewLogger.
type Options struct {
	// Level is the minimum level for both outputs.
	Level slog.Level

	// Console receives human-readable output. Nil disables it.
	Console io.Writer

	// File is the path of a rotated JSON log file. Empty disables it.
	File string
}

// ParseLevel converts a level name such as "debug" or "warn" to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return 0, sitecrawl.Errorf(sitecrawl.EINVALID, "invalid log level %q", s)
	}
	return slog.Level(lvl), nil
}

// NewLogger builds the application logger. The returned closer releases the
// log file and must be called on shutdown.
func NewLogger(opts Options) (*slog.Logger, io.Closer) {
	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if opts.Console != nil {
		console := log.NewWithOptions(opts.Console, log.Options{
			Level:           log.Level(opts.Level),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
		})
		handlers = append(handlers, console)
	}

	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  DefaultLogFileMaxSizeMB,
			MaxAge:   DefaultLogFileMaxAgeDay,
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: opts.Level}))
		closer = file
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, nil)), closer
	case 1:
		return slog.New(handlers[0]), closer
	default:
		return slog.New(fanout(handlers)), closer
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
