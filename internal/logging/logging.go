// Package logging builds the structured logger of a run.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrUnknownLevel  = errors.New("unknown log level")
	ErrUnknownFormat = errors.New("unknown log format")
)

// Config selects the level, format and destination of the logs.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Format is json or text. Defaults to text.
	Format string
	// Output is stdout, stderr or a file path. Defaults to stderr.
	Output string
	// Writer overrides Output when set.
	Writer io.Writer
}

// Logger is a slog.Logger owning its destination.
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// Close releases the destination file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil

	return errors.Wrap(err, "unable to close log output")
}

// New returns a logger for cfg.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}

			return a
		},
	}

	w, closer, err := writer(cfg)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		if closer != nil {
			_ = closer.Close()
		}

		return nil, errors.Wrapf(ErrUnknownFormat, "%q", cfg.Format)
	}

	return &Logger{Logger: slog.New(handler), closer: closer}, nil
}

// ParseLevel converts a level name. An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Wrapf(ErrUnknownLevel, "%q", name)
	}
}

func writer(cfg Config) (io.Writer, io.Closer, error) {
	if cfg.Writer != nil {
		return cfg.Writer, nil, nil
	}

	switch cfg.Output {
	case "", "stderr":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	}

	file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to open log file %s", cfg.Output)
	}

	return file, file, nil
}
