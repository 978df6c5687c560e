// Package logging is the structured logger shared by the compiler, the build
// pipeline, the preview server and the CLI.
//
// It is a thin layer over log/slog. Every call takes a context, warnings and
// errors carry the error that caused them, and each component tags its
// records with WithComponent so that output can be filtered per stage.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogLevel is the minimum severity a logger emits.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// slogLevelFatal sits above slog.LevelError; records at this level are
// rendered as FATAL.
const slogLevelFatal = slog.Level(12)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelFatal {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slogLevelFatal
	}
}

// ParseLevel converts a level name (debug, info, warn, error, fatal) to a
// LogLevel. Unknown names yield LevelInfo and false.
func ParseLevel(name string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "fatal":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// Logger is implemented by every logger in this package. Fields are
// alternating keys and values.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	// Fatal records a failure the caller cannot recover from. It does not
	// exit; the caller decides how to stop.
	Fatal(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	Level  LogLevel
	Format string // "json" or "text"
	Output io.Writer
	// TimeFormat renders record timestamps. Empty keeps the slog default.
	TimeFormat string
	Component  string
}

// DefaultConfig logs text at info level to stderr.
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:      LevelInfo,
		Format:     "text",
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// StructuredLogger implements Logger with a slog.Handler.
type StructuredLogger struct {
	handler   slog.Handler
	component string
}

// NewLogger creates a logger from config, or from DefaultConfig when config
// is nil.
func NewLogger(config *LoggerConfig) *StructuredLogger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       config.Level.slogLevel(),
		ReplaceAttr: replaceAttr(config.TimeFormat),
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &StructuredLogger{handler: handler, component: config.Component}
}

func replaceAttr(timeFormat string) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.LevelKey:
			if level, ok := a.Value.Any().(slog.Level); ok && level >= slogLevelFatal {
				return slog.String(slog.LevelKey, "FATAL")
			}
		case slog.TimeKey:
			if timeFormat != "" && a.Value.Kind() == slog.KindTime {
				return slog.String(slog.TimeKey, a.Value.Time().Format(timeFormat))
			}
		}
		return a
	}
}

func (l *StructuredLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelDebug, nil, msg, fields)
}

func (l *StructuredLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelInfo, nil, msg, fields)
}

func (l *StructuredLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelWarn, err, msg, fields)
}

func (l *StructuredLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelError, err, msg, fields)
}

func (l *StructuredLogger) Fatal(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slogLevelFatal, err, msg, fields)
}

// With returns a logger that adds fields to every record.
func (l *StructuredLogger) With(fields ...interface{}) Logger {
	return &StructuredLogger{
		handler:   slog.New(l.handler).With(fields...).Handler(),
		component: l.component,
	}
}

// WithComponent returns a logger that tags records with component,
// replacing any previous component.
func (l *StructuredLogger) WithComponent(component string) Logger {
	return &StructuredLogger{handler: l.handler, component: component}
}

func (l *StructuredLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields []interface{}) {
	if !l.handler.Enabled(ctx, level) {
		return
	}

	record := slog.NewRecord(time.Now(), level, msg, 0)
	if l.component != "" {
		record.AddAttrs(slog.String("component", l.component))
	}
	if err != nil {
		record.AddAttrs(slog.String("error", err.Error()))
	}
	record.Add(fields...)

	_ = l.handler.Handle(ctx, record)
}

// FileLogger appends records to a dated file, wxjsx-2006-01-02.log, in a
// log directory.
type FileLogger struct {
	*StructuredLogger
	file *os.File
}

// NewFileLogger opens today's log file in dir, creating dir if needed. The
// Output of config is ignored.
func NewFileLogger(config *LoggerConfig, dir string) (*FileLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, "wxjsx-"+time.Now().Format(time.DateOnly)+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	fileConfig := *config
	fileConfig.Output = file
	return &FileLogger{StructuredLogger: NewLogger(&fileConfig), file: file}, nil
}

// Path returns the log file name.
func (f *FileLogger) Path() string {
	return f.file.Name()
}

// Close closes the log file.
func (f *FileLogger) Close() error {
	return f.file.Close()
}

// MultiLogger sends every record to each of its loggers.
type MultiLogger []Logger

// NewMultiLogger combines loggers.
func NewMultiLogger(loggers ...Logger) MultiLogger {
	return MultiLogger(loggers)
}

func (m MultiLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	for _, l := range m {
		l.Debug(ctx, msg, fields...)
	}
}

func (m MultiLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	for _, l := range m {
		l.Info(ctx, msg, fields...)
	}
}

func (m MultiLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	for _, l := range m {
		l.Warn(ctx, err, msg, fields...)
	}
}

func (m MultiLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	for _, l := range m {
		l.Error(ctx, err, msg, fields...)
	}
}

func (m MultiLogger) Fatal(ctx context.Context, err error, msg string, fields ...interface{}) {
	for _, l := range m {
		l.Fatal(ctx, err, msg, fields...)
	}
}

func (m MultiLogger) With(fields ...interface{}) Logger {
	return m.each(func(l Logger) Logger { return l.With(fields...) })
}

func (m MultiLogger) WithComponent(component string) Logger {
	return m.each(func(l Logger) Logger { return l.WithComponent(component) })
}

func (m MultiLogger) each(derive func(Logger) Logger) MultiLogger {
	derived := make(MultiLogger, len(m))
	for i, l := range m {
		derived[i] = derive(l)
	}
	return derived
}

// PerfLogger times one operation.
type PerfLogger struct {
	logger Logger
	start  time.Time
}

// StartOperation starts timing operation. Records logged when it ends carry
// the operation name and its duration.
func StartOperation(logger Logger, operation string) *PerfLogger {
	return &PerfLogger{
		logger: logger.With("operation", operation),
		start:  time.Now(),
	}
}

// Elapsed returns the time since the operation started.
func (p *PerfLogger) Elapsed() time.Duration {
	return time.Since(p.start)
}

// End logs the successful completion at info level.
func (p *PerfLogger) End(ctx context.Context) {
	d := p.Elapsed()
	p.logger.Info(ctx, "operation completed", "duration", d.String(), "duration_ms", d.Milliseconds())
}

// EndWithError logs the failure at error level.
func (p *PerfLogger) EndWithError(ctx context.Context, err error) {
	d := p.Elapsed()
	p.logger.Error(ctx, err, "operation failed", "duration", d.String(), "duration_ms", d.Milliseconds())
}

// NopLogger discards everything. Library entry points use it when the caller
// supplies no logger.
type NopLogger struct{}

func (NopLogger) Debug(context.Context, string, ...interface{})        {}
func (NopLogger) Info(context.Context, string, ...interface{})         {}
func (NopLogger) Warn(context.Context, error, string, ...interface{})  {}
func (NopLogger) Error(context.Context, error, string, ...interface{}) {}
func (NopLogger) Fatal(context.Context, error, string, ...interface{}) {}
func (n NopLogger) With(...interface{}) Logger                          { return n }
func (n NopLogger) WithComponent(string) Logger                         { return n }
