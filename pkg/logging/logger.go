// Package logging provides structured JSON logging for simulation runs.
// Records logged with a session context carry the session and scenario
// they belong to, so interleaved batch runs can be told apart.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/google/uuid"
)

// LogLevelEnv names the environment variable holding the log level
const LogLevelEnv = "LANDER_LOG_LEVEL"

// Attribute keys added from a session context
const (
	SessionKey  = "session_id"
	ScenarioKey = "scenario"
)

// Logger is a JSON slog logger whose methods take the context that
// identifies the session being logged
type Logger struct {
	*slog.Logger
}

// NewLogger writes JSON to stdout at the level named by LANDER_LOG_LEVEL
// (DEBUG, INFO, WARN or ERROR; INFO when unset or unknown).
func NewLogger() *Logger {
	return NewLoggerWithWriter(os.Stdout, ParseLevel(os.Getenv(LogLevelEnv)))
}

// NewLoggerWithWriter creates a JSON logger writing to w at the given level
func NewLoggerWithWriter(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: finiteAttr,
	})
	return &Logger{slog.New(handler)}
}

// NewDiscardLogger returns a logger that drops every record
func NewDiscardLogger() *Logger {
	return NewLoggerWithWriter(io.Discard, slog.LevelError+1)
}

// LogWithContext logs msg with the session attributes found in ctx
func (l *Logger) LogWithContext(ctx context.Context, level slog.Level, msg string, args ...any) {
	if id, scenario, ok := SessionFromContext(ctx); ok {
		args = append(args, SessionKey, id)
		if scenario != "" {
			args = append(args, ScenarioKey, scenario)
		}
	}
	l.Log(ctx, level, msg, args...)
}

// Info logs an informational message with context.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs a warning message with context.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelWarn, msg, args...)
}

// Error logs msg at error level with err under the "error" key
func (l *Logger) Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.LogWithContext(ctx, slog.LevelError, msg, args...)
}

// Debug logs a debug message with context.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelDebug, msg, args...)
}

type sessionKey struct{}

type sessionInfo struct {
	id       string
	scenario string
}

// WithSession tags ctx with a session and the scenario it is flying.
// An empty id is replaced by a fresh one.
func WithSession(ctx context.Context, id, scenario string) context.Context {
	if id == "" {
		id = NewSessionID()
	}
	return context.WithValue(ctx, sessionKey{}, sessionInfo{id: id, scenario: scenario})
}

// SessionFromContext returns the session tagged on ctx, if any
func SessionFromContext(ctx context.Context) (id, scenario string, ok bool) {
	if ctx == nil {
		return "", "", false
	}
	info, ok := ctx.Value(sessionKey{}).(sessionInfo)
	return info.id, info.scenario, ok
}

// NewSessionID returns a random session identifier
func NewSessionID() string {
	return uuid.NewString()
}

// ParseLevel converts a level name into a slog.Level, defaulting to INFO
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// finiteAttr renders NaN and infinite floats as strings. The JSON handler
// cannot encode them, and a diverging trajectory produces exactly those.
func finiteAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindFloat64 {
		return a
	}
	f := a.Value.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return slog.String(a.Key, fmt.Sprint(f))
	}
	return a
}

// WrapError prefixes err with a formatted description of the operation
// that failed, keeping err available to errors.Is and errors.As.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	return fmt.Errorf("%s: %w", format, err)
}
