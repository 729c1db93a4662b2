// Package logging provides structured logging for the Winston daemons.
//
// It wraps log/slog with JSON or text output, level filtering and default
// service and version fields on every entry.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "winston", version)
//	logger.Info("listening", "port", 8080)
//
// Components take a small Logger interface (Debug, Info, Warn, Error), which
// *Logger satisfies through its embedded *slog.Logger.
package logging
