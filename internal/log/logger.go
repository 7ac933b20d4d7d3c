// Package log configures the slog logger shared by dicomview components.
//
// Settings come from Options, usually built from the config file and then
// overridden by environment variables:
//   - DICOMVIEW_LOG_LEVEL=debug|info|warn|error
//   - DICOMVIEW_LOG_FORMAT=text|json
//   - DICOMVIEW_LOG_FILE=<path> (rotated file output)
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Env var names read by FromEnv.
const (
	EnvLevel  = "DICOMVIEW_LOG_LEVEL"
	EnvFormat = "DICOMVIEW_LOG_FORMAT"
	EnvFile   = "DICOMVIEW_LOG_FILE"
)

// Options controls logger construction.
type Options struct {
	Level     string
	Format    string // "text" or "json"
	AddSource bool
	File      string // rotated log file, empty to disable

	// Quiet disables console output. The terminal viewer sets it because
	// writes to stderr would corrupt the alternate screen.
	Quiet bool
	// Console overrides os.Stderr, mainly for tests.
	Console io.Writer
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *slog.Logger
)

// L returns the process logger, initializing it from the environment on
// first use.
func L() *slog.Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}
	return Init(FromEnv(Options{}))
}

// Init builds a logger from opts, installs it as the process logger and as
// slog's default, and returns it.
func Init(opts Options) *slog.Logger {
	l := New(opts)
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	slog.SetDefault(l)
	return l
}

// New builds a logger without installing it.
func New(opts Options) *slog.Logger {
	level := ParseLevel(opts.Level)
	hopts := &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}

	var handlers []slog.Handler
	if !opts.Quiet {
		w := opts.Console
		if w == nil {
			w = os.Stderr
		}
		handlers = append(handlers, newHandler(w, opts.Format, hopts))
	}
	if strings.TrimSpace(opts.File) != "" {
		w := &lj.Logger{Filename: opts.File, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, slog.NewJSONHandler(w, hopts))
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, hopts))
	case 1:
		return slog.New(handlers[0]).With(slog.String("app", "dicomview"))
	default:
		return slog.New(&multi{hs: handlers}).With(slog.String("app", "dicomview"))
	}
}

// FromEnv returns base with any DICOMVIEW_LOG_* variables applied on top.
func FromEnv(base Options) Options {
	if v := os.Getenv(EnvLevel); v != "" {
		base.Level = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		base.Format = v
	}
	if v := os.Getenv(EnvFile); v != "" {
		base.File = v
	}
	return base
}

// WithComponent returns the process logger tagged with a component name.
func WithComponent(name string) *slog.Logger {
	return L().With(slog.String("component", name))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to
// info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// multi fans records out to several handlers.
type multi struct{ hs []slog.Handler }

func (m *multi) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multi) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multi) WithAttrs(attrs []slog.Attr) slog.Handler {
	res := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		res[i] = h.WithAttrs(attrs)
	}
	return &multi{hs: res}
}

func (m *multi) WithGroup(name string) slog.Handler {
	res := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		res[i] = h.WithGroup(name)
	}
	return &multi{hs: res}
}
