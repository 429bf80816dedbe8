// Package logging builds the zap loggers used by the server and the CLI.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	level   string
	console bool
	service string
}

// Option configures New.
type Option func(*options)

// WithLevel sets the minimum level by name ("debug", "info", "warn", "error").
func WithLevel(level string) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithConsole switches to human readable output on stderr, as used by the CLI.
func WithConsole() Option {
	return func(o *options) {
		o.console = true
	}
}

// WithService tags every entry with a service name.
func WithService(name string) Option {
	return func(o *options) {
		o.service = name
	}
}

// New creates a structured logger. By default it is a production JSON logger
// at info level.
func New(opts ...Option) (*zap.Logger, error) {
	o := options{level: "info"}
	for _, opt := range opts {
		opt(&o)
	}

	level, err := zapcore.ParseLevel(o.level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.DisableStacktrace = false
	if o.console {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
		cfg.Sampling = nil
	}
	if o.service != "" {
		cfg.InitialFields = map[string]any{"service": o.service}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
