package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/demensdeum/coverseer/internal/infrastructure/config"
)

// Logger is the application logger: slog with coverseer's default
// fields attached. Components derive their own via With, adding a
// component field, so one configured handler serves the whole
// process. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml. The
// format decides the handler (JSON for machine consumption, text for
// terminals), the level filters below it, and every entry carries
// service and version fields.
func New(cfg config.LoggingConfig, version string) *Logger {
	// Supervisor logs default to stderr so the echoed child output and
	// the supervisor's own diagnostics can be separated by the shell.
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stderr
	}

	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "coverseer"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel maps a config level string to slog.Level. Unrecognised
// strings fall back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying extra default attributes.
//
//	oracleLogger := logger.With("component", "oracle")
//	oracleLogger.Info("verdict received") // includes component=oracle
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default is the logger for early startup, before configuration
// exists: stderr, text format, info level. Once config loads, New
// replaces it.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}, "dev")
}
