package authtest

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

type contextKey string

// UserIDKey - ключ контекста с ID аутентифицированного пользователя
const UserIDKey contextKey = "user_id"

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the number of bytes written
func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// LoggingMiddleware логирует метод, путь, статус, время выполнения и request id.
// Заголовки и тела запросов не логируются.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logLevel := slog.LevelInfo
			if wrapped.statusCode >= 500 {
				logLevel = slog.LevelError
			} else if wrapped.statusCode >= 400 {
				logLevel = slog.LevelWarn
			}

			logger.Log(r.Context(), logLevel, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", r.Header.Get("X-Request-ID"),
				"remote_addr", r.RemoteAddr,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes_written", wrapped.written,
			)
		})
	}
}

// RecoveryMiddleware перехватывает panic, логирует стек и отвечает 500 в формате конверта
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					writeError(logger, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware проверяет Bearer access token и кладет ID пользователя в контекст.
// Токены отозванных сессий отклоняются.
func AuthMiddleware(logger *slog.Logger, cfg TokenConfig, users *Users) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				writeError(logger, w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing token")
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				writeError(logger, w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token format")
				return
			}

			claims, err := ValidateAccessToken(cfg, parts[1])
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				writeError(logger, w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
				return
			}

			u, err := users.Get(r.Context(), claims.Subject)
			if err != nil || u.Generation != claims.Generation {
				logger.Warn("Revoked access token", "user_id", claims.Subject)
				writeError(logger, w, http.StatusUnauthorized, "UNAUTHORIZED", "Session revoked")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			logger.Debug("User authenticated", "user_id", claims.Subject)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
