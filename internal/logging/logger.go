package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Default logger configuration constants.
const (
	defaultLevel      = slog.LevelInfo
	defaultAddSource  = false
	defaultIsJSON     = false
	defaultSetDefault = true
)

// LoggerOptions holds configuration for the logger.
type LoggerOptions struct {
	Level      slog.Level
	AddSource  bool
	IsJSON     bool
	SetDefault bool
	Output     io.Writer
}

// LoggerOption functional options pattern for logger configuration.
type LoggerOption func(*LoggerOptions)

// NewLogger creates a text or JSON logger.
func NewLogger(opts ...LoggerOption) *slog.Logger {
	config := &LoggerOptions{
		Level:      defaultLevel,
		AddSource:  defaultAddSource,
		IsJSON:     defaultIsJSON,
		SetDefault: defaultSetDefault,
		Output:     os.Stderr,
	}
	for _, opt := range opts {
		opt(config)
	}

	options := &slog.HandlerOptions{
		AddSource: config.AddSource,
		Level:     config.Level,
	}
	var handler slog.Handler = slog.NewTextHandler(config.Output, options)
	if config.IsJSON {
		handler = slog.NewJSONHandler(config.Output, options)
	}

	logger := slog.New(handler)
	if config.SetDefault {
		slog.SetDefault(logger)
	}
	return logger
}

// ParseLevel converts "debug", "info", "warn" or "error" to a level.
// Unknown input yields info and ok=false.
func ParseLevel(level string) (slog.Level, bool) {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, false
	}
	return parsed, true
}

// WithLevel sets the log level and logs parsing errors.
func WithLevel(level string) LoggerOption {
	return func(o *LoggerOptions) {
		parsed, ok := ParseLevel(level)
		if !ok {
			slog.Default().Error("failed to parse log level",
				slog.String("input", level),
				slog.String("default", "info"))
		}
		o.Level = parsed
	}
}

// WithAddSource enables/disables source file logging.
func WithAddSource(addSource bool) LoggerOption {
	return func(o *LoggerOptions) {
		o.AddSource = addSource
	}
}

// WithIsJSON sets the output format to JSON.
func WithIsJSON(isJSON bool) LoggerOption {
	return func(o *LoggerOptions) {
		o.IsJSON = isJSON
	}
}

// WithSetDefault sets the logger as the default.
func WithSetDefault(setDefault bool) LoggerOption {
	return func(o *LoggerOptions) {
		o.SetDefault = setDefault
	}
}

// WithOutput redirects log output.
func WithOutput(w io.Writer) LoggerOption {
	return func(o *LoggerOptions) {
		o.Output = w
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ErrAttr wraps an error as a log attribute.
func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}

type ctxLogger struct{}

// ContextWithLogger adds a logger to the context for request-scoped logging.
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLogger{}, l)
}

// L retrieves the logger from the context or returns the default.
func L(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxLogger{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
