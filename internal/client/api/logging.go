package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// LoggingTransport логирует исходящие HTTP запросы.
// Логирует метод, путь, статус, время выполнения, request id.
// НЕ логирует sensitive данные (токены, пароли, тела запросов).
type LoggingTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

// NewLoggingTransport оборачивает base; nil означает http.DefaultTransport
func NewLoggingTransport(base http.RoundTripper, logger *slog.Logger) *LoggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &LoggingTransport{base: base, logger: logger}
}

// RoundTrip implements http.RoundTripper
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.base.RoundTrip(req)

	duration := time.Since(start)
	attrs := []any{
		"method", req.Method,
		"path", sanitizePath(req.URL.Path),
		"request_id", req.Header.Get(RequestIDHeader),
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		t.logger.Log(req.Context(), slog.LevelWarn, "HTTP request failed", append(attrs, "error", err)...)
		return nil, err
	}

	// Уровень логирования по статусу ответа
	logLevel := slog.LevelDebug
	if resp.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if resp.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}

	t.logger.Log(req.Context(), logLevel, "HTTP request", append(attrs, "status", resp.StatusCode)...)
	return resp, nil
}

// sanitizePath маскирует сегмент после /token/ или /reset/,
// чтобы одноразовые ссылки не попадали в лог
func sanitizePath(path string) string {
	if !strings.Contains(path, "/token/") && !strings.Contains(path, "/reset/") {
		return path
	}

	parts := strings.Split(path, "/")
	for i, part := range parts {
		if (part == "token" || part == "reset") && i+1 < len(parts) && parts[i+1] != "" {
			parts[i+1] = "***"
		}
	}
	return strings.Join(parts, "/")
}
