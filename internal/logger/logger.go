// Package logger builds the service's slog logger.  Production uses JSON
// at info level for log aggregation; everything else uses text at debug
// level.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Option configures logger creation.
type Option func(*config)

type config struct {
	level  slog.Level
	json   bool
	output io.Writer
	attrs  []slog.Attr
}

// WithOutput sets custom output destination, ignoring nil writers.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithLevel overrides the level picked by the environment.
func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithAttr adds static attributes to every log record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) { c.attrs = append(c.attrs, attrs...) }
}

// New returns a logger for the given environment and service name.
func New(env, service string, opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelDebug, output: os.Stdout}
	switch strings.ToLower(env) {
	case "prod", "production", "staging", "stage":
		c.level = slog.LevelInfo
		c.json = true
	}
	if service != "" {
		c.attrs = append(c.attrs, slog.String("service", service))
	}
	if env != "" {
		c.attrs = append(c.attrs, slog.String("env", env))
	}
	for _, opt := range opts {
		opt(c)
	}

	hopts := &slog.HandlerOptions{Level: c.level}
	var h slog.Handler
	if c.json {
		h = slog.NewJSONHandler(c.output, hopts)
	} else {
		h = slog.NewTextHandler(c.output, hopts)
	}
	if len(c.attrs) > 0 {
		h = h.WithAttrs(c.attrs)
	}
	return slog.New(h)
}
