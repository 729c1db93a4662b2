package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/winstonhome/winston/internal/infrastructure/config"
)

// Logger wraps slog.Logger with the daemon's default fields.
//
// All methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a Logger for service (e.g. "winston" or "winston-node").
//
// It configures:
//   - Output format (JSON unless "text")
//   - Level filtering
//   - Default fields service and version
func New(cfg config.LoggingConfig, service, version string) *Logger {
	return newWithWriter(cfg, service, version, writerFor(cfg.Output))
}

func newWithWriter(cfg config.LoggingConfig, service, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", service),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

func writerFor(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel converts debug, info, warn or error to a slog.Level.
// Unrecognised levels mean info.
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

// With returns a Logger with additional default attributes.
//
//	mqttLogger := logger.With("component", "mqtt")
//	mqttLogger.Info("connected") // includes component=mqtt
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default creates a logger for use before configuration is loaded.
func Default(service string) *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, service, "dev")
}
