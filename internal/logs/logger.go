package logs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger logger interface
type Logger interface {
	Debug(ctx context.Context, msg string, args ...interface{})
	Info(ctx context.Context, msg string, args ...interface{})
	Warn(ctx context.Context, msg string, args ...interface{})
	Error(ctx context.Context, msg string, args ...interface{})
}

// LogLevel log level
type LogLevel int

const (
	//Debug enable debug or above log output
	Debug LogLevel = 0
	//Info enable info or above log output
	Info LogLevel = 1
	//Warn enable warn or above log output
	Warn LogLevel = 2
	//Error enable error or above log output
	Error LogLevel = 3
)

func (ll LogLevel) String() string {
	switch ll {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	}
	return ""
}

// ParseLevel parse a level name, unknown names fall back to Info
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	}
	return Info
}

func (ll LogLevel) zerologLevel() zerolog.Level {
	switch ll {
	case Debug:
		return zerolog.DebugLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

type fieldsKey struct{}

type field struct {
	key   string
	value interface{}
}

// WithField attach a key/value pair to ctx, every line logged with the returned ctx carries it
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	prev, _ := ctx.Value(fieldsKey{}).([]field)
	fields := make([]field, 0, len(prev)+1)
	fields = append(fields, prev...)
	fields = append(fields, field{key: key, value: value})
	return context.WithValue(ctx, fieldsKey{}, fields)
}

type defaultLogger struct {
	zl zerolog.Logger
}

// NewLogger init Logger instance writing human readable lines to writer
func NewLogger(writer io.Writer, logLevel LogLevel) *defaultLogger {
	out := zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339Nano, NoColor: true}
	zl := zerolog.New(out).Level(logLevel.zerologLevel()).With().Timestamp().Logger()
	return &defaultLogger{zl: zl}
}

// NewJSONLogger init Logger instance writing one json object per line
func NewJSONLogger(writer io.Writer, logLevel LogLevel) *defaultLogger {
	zl := zerolog.New(writer).Level(logLevel.zerologLevel()).With().Timestamp().Logger()
	return &defaultLogger{zl: zl}
}

func (l *defaultLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	l.write(ctx, l.zl.Debug(), msg, args)
}

func (l *defaultLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.write(ctx, l.zl.Info(), msg, args)
}

func (l *defaultLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.write(ctx, l.zl.Warn(), msg, args)
}

func (l *defaultLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.write(ctx, l.zl.Error(), msg, args)
}

func (l *defaultLogger) write(ctx context.Context, ev *zerolog.Event, msg string, args []interface{}) {
	if ev == nil {
		return
	}
	if ctx != nil {
		if fields, ok := ctx.Value(fieldsKey{}).([]field); ok {
			for _, f := range fields {
				ev = ev.Interface(f.key, f.value)
			}
		}
	}
	ev.Msg(fmt.Sprintf(msg, args...))
}

type nopLogger struct{}

// NewNopLogger Logger that discards everything
func NewNopLogger() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(ctx context.Context, msg string, args ...interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...interface{})  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...interface{}) {}
