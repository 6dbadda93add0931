// Package ftplog defines the pluggable logging sink used throughout the
// engine (spec §9: "Global log-level booleans in the source should be
// expressed as a configuration object passed once to the engine or a sink
// interface. Do not reproduce process-wide mutable statics."). The engine
// depends only on the Logger interface; NewKitLogger wires in
// github.com/go-kit/log, the logging library this pack's other FTP
// component (fclairamb/ftpserverlib) depends on.
package ftplog

import (
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is the sink every component in this module logs through.
// Key-value pairs follow the log/slog convention (alternating key, value)
// since that's the call-site shape the teacher client used.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Nop discards everything. It is the default when no Logger is configured,
// replacing the teacher's "no-op slog.Logger at level.Error+1" trick with
// an explicit type.
type Nop struct{}

func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}

type kitLogger struct {
	logger kitlog.Logger
}

// NewKitLogger wraps a go-kit/log.Logger as a Logger. A nil logger writes
// logfmt to stderr.
func NewKitLogger(logger kitlog.Logger) Logger {
	if logger == nil {
		logger = kitlog.NewLogfmtLogger(os.Stderr)
	}
	return &kitLogger{logger: logger}
}

func (l *kitLogger) Debug(msg string, kv ...any) {
	_ = level.Debug(l.logger).Log(append([]any{"msg", msg}, kv...)...)
}

func (l *kitLogger) Info(msg string, kv ...any) {
	_ = level.Info(l.logger).Log(append([]any{"msg", msg}, kv...)...)
}

func (l *kitLogger) Warn(msg string, kv ...any) {
	_ = level.Warn(l.logger).Log(append([]any{"msg", msg}, kv...)...)
}

func (l *kitLogger) Error(msg string, kv ...any) {
	_ = level.Error(l.logger).Log(append([]any{"msg", msg}, kv...)...)
}
