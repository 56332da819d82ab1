package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEntry represents a single log entry
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]string
}

// Options controls how the underlying zap logger is built.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// Logger provides structured logging with streaming support
type Logger struct {
	serviceName string
	version     string
	zl          *zap.Logger

	mu          sync.RWMutex
	subscribers []chan LogEntry
}

// New creates a new logger instance writing console output at info level.
func New(serviceName, version string) *Logger {
	l, err := NewWithOptions(serviceName, version, Options{Level: "info", Format: "console"})
	if err != nil {
		// Options above are static and always valid.
		panic(err)
	}
	return l
}

// NewWithOptions creates a logger with the given level and format.
func NewWithOptions(serviceName, version string, opts Options) (*Logger, error) {
	level := zap.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "console", "text":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !isTerminal() {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		cfg.Development = false
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = level > zap.DebugLevel

	zl, err := cfg.Build(zap.AddCallerSkip(2), zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	zl = zl.With(zap.String("service", serviceName), zap.String("version", version))

	return &Logger{
		serviceName: serviceName,
		version:     version,
		zl:          zl,
		subscribers: make([]chan LogEntry, 0),
	}, nil
}

// NewNop returns a logger that discards all output. Subscribers still
// receive entries.
func NewNop() *Logger {
	return &Logger{
		serviceName: "nop",
		zl:          zap.NewNop(),
		subscribers: make([]chan LogEntry, 0),
	}
}

// isTerminal checks if we're outputting to a terminal (for color support)
func isTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	fileInfo, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Zap exposes the underlying zap logger for libraries that want one.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// Subscribe returns a channel to receive log entries
func (l *Logger) Subscribe() <-chan LogEntry {
	ch := make(chan LogEntry, 100)

	l.mu.Lock()
	l.subscribers = append(l.subscribers, ch)
	l.mu.Unlock()

	return ch
}

func (l *Logger) log(level zapcore.Level, message string, fields map[string]string) {
	if ce := l.zl.Check(level, message); ce != nil {
		zf := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zf = append(zf, zap.String(k, v))
		}
		ce.Write(zf...)
	}

	entry := LogEntry{
		Time:    time.Now(),
		Level:   level.CapitalString(),
		Message: message,
		Fields:  fields,
	}

	l.mu.RLock()
	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
			// Skip if channel is full
		}
	}
	l.mu.RUnlock()
}

func format(message string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

// Debug logs a debug message with optional formatting
func (l *Logger) Debug(message string, args ...interface{}) {
	l.log(zapcore.DebugLevel, format(message, args), nil)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(zapcore.DebugLevel, fmt.Sprintf(format, args...), nil)
}

// Info logs an info message with optional formatting
func (l *Logger) Info(message string, args ...interface{}) {
	l.log(zapcore.InfoLevel, format(message, args), nil)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(zapcore.InfoLevel, fmt.Sprintf(format, args...), nil)
}

// Warn logs a warning message with optional formatting
func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(zapcore.WarnLevel, format(message, args), nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(zapcore.WarnLevel, fmt.Sprintf(format, args...), nil)
}

// Error logs an error message with optional formatting
func (l *Logger) Error(message string, args ...interface{}) {
	l.log(zapcore.ErrorLevel, format(message, args), nil)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(zapcore.ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string) {
	l.log(zapcore.ErrorLevel, message, nil)
	_ = l.zl.Sync()
	os.Exit(1)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.Fatal(fmt.Sprintf(format, args...))
}

// WithFields logs a message with additional fields
func (l *Logger) WithFields(fields map[string]string) *LogContext {
	return &LogContext{
		logger: l,
		fields: fields,
	}
}

// LogContext provides field-based logging
type LogContext struct {
	logger *Logger
	fields map[string]string
}

func (c *LogContext) Debug(message string) {
	c.logger.log(zapcore.DebugLevel, message, c.fields)
}

func (c *LogContext) Info(message string) {
	c.logger.log(zapcore.InfoLevel, message, c.fields)
}

func (c *LogContext) Warn(message string) {
	c.logger.log(zapcore.WarnLevel, message, c.fields)
}

func (c *LogContext) Error(message string) {
	c.logger.log(zapcore.ErrorLevel, message, c.fields)
}
