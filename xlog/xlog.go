// Package xlog is the structured logger used throughout sentinel. It keeps
// the teacher lineage's call convention — Info/Warn/Error/Crit taking a
// message followed by alternating key/value pairs — backed by zerolog.
package xlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var root = New(os.Stderr, false)

// Logger wraps a zerolog.Logger behind the key/value call convention.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger writing to w. When pretty is true, output goes through
// zerolog's console writer instead of raw JSON.
func New(w io.Writer, pretty bool) *Logger {
	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(out).With().Timestamp().Logger()
	return &Logger{z: z}
}

// SetDefault replaces the package-level logger used by the free functions.
func SetDefault(l *Logger) { root = l }

// SetLevel adjusts the minimum level of the default logger.
func SetLevel(level string) {
	if level == "crit" {
		level = "fatal" // Crit logs at zerolog's fatal level
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	root.z = root.z.Level(lvl)
}

func (l *Logger) with(ev *zerolog.Event, ctx []any) *zerolog.Event {
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, ctx[i+1])
	}
	return ev
}

func (l *Logger) Debug(msg string, ctx ...any) { l.with(l.z.Debug(), ctx).Msg(msg) }
func (l *Logger) Info(msg string, ctx ...any)  { l.with(l.z.Info(), ctx).Msg(msg) }
func (l *Logger) Warn(msg string, ctx ...any)  { l.with(l.z.Warn(), ctx).Msg(msg) }
func (l *Logger) Error(msg string, ctx ...any) { l.with(l.z.Error(), ctx).Msg(msg) }

// Crit logs at fatal level and terminates the process, mirroring the
// teacher's log.Crit used for unrecoverable startup failures.
func (l *Logger) Crit(msg string, ctx ...any) { l.with(l.z.Fatal(), ctx).Msg(msg) }

func Debug(msg string, ctx ...any) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { root.Crit(msg, ctx...) }
