// Package logger builds the process-wide zerolog logger and the pgx bridge
// that sends query logs through it.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// New returns a console logger in development and a JSON logger otherwise.
// Unknown levels fall back to info.
func New(w io.Writer, level string, production bool) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if !production {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// QueryTracer logs every statement and every failed statement through l.
func QueryTracer(l zerolog.Logger) *tracelog.TraceLog {
	return &tracelog.TraceLog{
		Logger:   tracelog.LoggerFunc(pgxLogFunc(l)),
		LogLevel: tracelog.LogLevelInfo,
	}
}

func pgxLogFunc(l zerolog.Logger) func(context.Context, tracelog.LogLevel, string, map[string]any) {
	return func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		var ev *zerolog.Event
		switch level {
		case tracelog.LogLevelTrace:
			ev = l.Trace()
		case tracelog.LogLevelDebug:
			ev = l.Debug()
		case tracelog.LogLevelInfo:
			ev = l.Info()
		case tracelog.LogLevelWarn:
			ev = l.Warn()
		case tracelog.LogLevelError:
			ev = l.Error()
		default:
			return
		}

		ev.Ctx(ctx).
			Str("component", "pgx").
			Fields(data).
			Msg(msg)
	}
}
