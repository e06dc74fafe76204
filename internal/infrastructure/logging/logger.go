package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/coldaisle/hvac-edge/internal/infrastructure/config"
)

// serviceName is stamped on every record so log aggregation can separate
// the agent from the other services feeding the same pipeline.
const serviceName = "hvacedge"

// Logger is the agent's structured logger, a thin wrapper over slog with
// the service identity attached to every record.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a Logger from the agent's logging configuration: level
// filtering, text or JSON output, and the stdout/stderr destination.
//
// Parameters:
//   - cfg: Logging section of the agent configuration
//   - version: Build version stamped on every record
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	return newLogger(cfg, version, writerFor(cfg.Output))
}

// newLogger builds the logger against an explicit writer.
func newLogger(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// writerFor maps the configured output name to a destination. Anything
// other than "stderr" goes to stdout.
func writerFor(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel converts a configured level name to slog.Level. Unrecognised
// names fall back to info.
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

// With returns a Logger carrying additional default attributes. The
// subsystems each take a child logger tagged with their component name.
//
// Example:
//
//	busLogger := logger.With("component", "mqtt")
//	busLogger.Info("connected") // includes component=mqtt
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default creates the early-startup logger used before configuration is
// loaded: JSON to stdout at info level, version "dev".
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
