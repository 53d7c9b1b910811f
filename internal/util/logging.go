package util

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// NewLogger : local - текст и debug, dev - json и debug, prod - json и info.
// Явно заданный level перекрывает уровень окружения.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envDev:
		log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: pickLevel(level, slog.LevelDebug)}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: pickLevel(level, slog.LevelInfo)}))
	default:
		log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: pickLevel(level, slog.LevelDebug)}))
	}

	return log
}

func pickLevel(level string, fallback slog.Level) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// LogError : пишет ошибку в лог и возвращает её обёрнутой сообщением
func LogError(message string, err error) error {
	slog.Error(message, slog.Any("error", err))
	return fmt.Errorf("%s: %w", message, err)
}
