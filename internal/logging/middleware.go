package logging

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

func valueOrMissing(value string) string {
	if value == "" {
		return "<missing>"
	}
	return value
}

// NewRequestLoggerMiddleware stores a logger tagged with request metadata in the request context
func NewRequestLoggerMiddleware(logger *slog.Logger) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			requestLogger := logger.With(
				slog.String("correlationID", uuid.New().String()),
				slog.String("session", valueOrMissing(r.PathValue("session"))),
				slog.String("userId", valueOrMissing(r.Header.Get("X-User-Id"))),
				slog.String("userAgent", valueOrMissing(r.UserAgent())),
				slog.String("methodPath", fmt.Sprintf("%s %s", r.Method, r.URL.Path)),
			)

			next(w, r.WithContext(AddToContext(r.Context(), requestLogger)))
		}
	}
}
