// Package logging provides structured logging for ptzctl.
// It wraps log/slog with configurable levels, output formats and component loggers,
// and redacts session tokens and passwords from every record.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of log messages
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// slog levels are spaced four apart starting at -4 for debug
func (l LogLevel) slog() slog.Level {
	return slog.Level(4 * (int(l) - 1))
}

// ParseLevel converts a textual level such as "debug" into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// Config represents logging configuration
type Config struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    string // "stdout", "stderr", "discard", or file path
	Component string
	Writer    io.Writer // overrides Output when set
}

// DefaultConfig logs text to stderr so command output on stdout stays
// machine-readable.
func DefaultConfig() Config {
	return Config{
		Level:     InfoLevel,
		Format:    "text",
		Output:    "stderr",
		Component: "ptzctl",
	}
}

// Logger is a component-scoped slog logger
type Logger struct {
	logger    *slog.Logger
	component string
}

func redact(groups []string, a slog.Attr) slog.Attr {
	switch key := strings.ToLower(a.Key); {
	case key == "session", key == "token", strings.Contains(key, "password"):
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Writer != nil {
		return cfg.Writer, nil
	}
	switch cfg.Output {
	case "stderr", "":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "discard":
		return io.Discard, nil
	}
	file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", cfg.Output, err)
	}
	return file, nil
}

// NewLogger creates a new logger with the specified configuration
func NewLogger(config Config) (*Logger, error) {
	output, err := openOutput(config)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: config.Level.slog(), ReplaceAttr: redact}
	var handler slog.Handler = slog.NewTextHandler(output, opts)
	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	}
	return &Logger{logger: slog.New(handler), component: config.Component}, nil
}

// Discard returns a logger that drops every record. Used by tests and by
// components constructed without a logger.
func Discard() *Logger {
	return &Logger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *Logger) with(component string, args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), component: component}
}

// WithContext creates a new logger carrying the request id stored in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if id, ok := RequestID(ctx); ok {
		return l.WithField("request_id", id)
	}
	return l
}

// WithComponent creates a new logger for a specific component
func (l *Logger) WithComponent(component string) *Logger {
	return l.with(component, slog.String("component", component))
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value any) *Logger {
	return l.with(l.component, slog.Any(key, value))
}

func (l *Logger) Component() string { return l.component }

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// LogOperation runs fn, logging its duration and any failure
func (l *Logger) LogOperation(operation string, fn func() error) error {
	start := time.Now()
	opLogger := l.WithField("operation", operation)
	opLogger.Debug("Operation starting")

	if err := fn(); err != nil {
		opLogger.Error("Operation failed",
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return err
	}
	opLogger.Debug("Operation completed", slog.Duration("duration", time.Since(start)))
	return nil
}

// LogAuthentication logs the outcome of a session exchange
func (l *Logger) LogAuthentication(forced bool, generation uint64, duration time.Duration, err error) {
	if err != nil {
		l.Warn("Authentication failed",
			slog.Bool("forced", forced),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return
	}
	l.Info("Session established",
		slog.Bool("forced", forced),
		slog.Uint64("generation", generation),
		slog.Duration("duration", duration))
}

// LogHTTPRequest logs one device or bridge exchange. The query is never logged.
func (l *Logger) LogHTTPRequest(method string, action string, statusCode int, duration time.Duration) {
	l.Debug("HTTP request completed",
		slog.String("method", method),
		slog.String("action", action),
		slog.Int("status_code", statusCode),
		slog.Duration("duration", duration))
}

func (l *Logger) LogConfigLoad(configPath string, camera string) {
	l.Debug("Loading configuration",
		slog.String("config_path", configPath),
		slog.String("camera", camera))
}

func (l *Logger) LogConfigError(operation string, err error) {
	l.Error("Configuration error",
		slog.String("operation", operation),
		slog.String("error", err.Error()))
}

// LogUIStateChange logs console focus transitions
func (l *Logger) LogUIStateChange(from string, to string, reason string) {
	l.Debug("UI state change",
		slog.String("from", from),
		slog.String("to", to),
		slog.String("reason", reason))
}

type requestIDKey struct{}

// ContextWithRequestID returns a context carrying a dispatch request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the dispatch request id stored in ctx.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// InitGlobalLogger initializes the global logger with the specified configuration
func InitGlobalLogger(config Config) error {
	logger, err := NewLogger(config)
	if err != nil {
		return fmt.Errorf("failed to initialize global logger: %w", err)
	}
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
	return nil
}

// GetGlobalLogger returns the global logger, creating a default one on first use
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger, _ = NewLogger(DefaultConfig())
	}
	return globalLogger
}

// For returns the global logger scoped to component, e.g. For("session").
func For(component string) *Logger {
	return GetGlobalLogger().WithComponent(component)
}
