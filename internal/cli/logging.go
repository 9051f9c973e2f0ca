package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/aryankumar/linemill/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging configures structured logging with slog and makes it the default logger.
// The returned closer is non-nil when a rotated log file was opened.
func setupLogging(stderr io.Writer, cfg config.LogConfig, verbose, noColor bool) (*slog.Logger, io.Closer) {
	// Set log level based on config and verbose flag
	logLevel := parseLevel(cfg.Level)
	if verbose {
		logLevel = slog.LevelDebug
	}

	// Create handler options
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	w := stderr
	var closer io.Closer
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		w = io.MultiWriter(stderr, rotated)
		closer = rotated
	}

	var handler slog.Handler
	if noColor || strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	// Set default logger
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if verbose {
		logger.Debug("verbose logging enabled")
	}

	return logger, closer
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
