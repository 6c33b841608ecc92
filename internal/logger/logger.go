package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger writes one JSON object per event. Every record carries the
// service, hostname, action and request_id fields.
type Logger struct {
	service  string
	hostname string
	zl       zerolog.Logger
}

// New creates a logger writing to stdout at the given level
// (debug, info, warn, error). Unknown levels fall back to info.
func New(service, level string) *Logger {
	return NewWithWriter(service, level, os.Stdout)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(service, level string, w io.Writer) *Logger {
	hostname, _ := os.Hostname()

	zl := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Str("service", service).
		Str("hostname", hostname).
		Logger()

	return &Logger{
		service:  service,
		hostname: hostname,
		zl:       zl,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// GenerateRequestID returns a fresh id used to correlate log lines.
func GenerateRequestID() string {
	return uuid.NewString()
}

type requestIDKey struct{}

// WithRequestID stores id in ctx for RequestID to pick up further down.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (l *Logger) Debug(action, message, requestID string, fields map[string]interface{}) {
	l.emit(l.zl.Debug(), action, message, requestID, fields)
}

func (l *Logger) Info(action, message, requestID string, fields map[string]interface{}) {
	l.emit(l.zl.Info(), action, message, requestID, fields)
}

func (l *Logger) Warn(action, message, requestID string, fields map[string]interface{}) {
	l.emit(l.zl.Warn(), action, message, requestID, fields)
}

// Error logs at error level. err may be nil.
func (l *Logger) Error(action, message, requestID string, err error, fields map[string]interface{}) {
	ev := l.zl.Error()
	if err != nil {
		ev = ev.Dict("error", zerolog.Dict().Str("msg", err.Error()))
	}
	l.emit(ev, action, message, requestID, fields)
}

func (l *Logger) emit(ev *zerolog.Event, action, message, requestID string, fields map[string]interface{}) {
	if ev == nil {
		return
	}
	ev = ev.Str("action", action)
	if requestID != "" {
		ev = ev.Str("request_id", requestID)
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(message)
}

// Since is a small helper for duration fields.
func Since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
