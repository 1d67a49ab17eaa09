package ports_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/Amund211/eliteseller-gateway/internal/ports"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func noopMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r)
	}
}

func newAllowedOrigins(t *testing.T) *ports.AllowedOrigins {
	t.Helper()
	allowedOrigins, err := ports.NewAllowedOrigins("eliteseller.app")
	require.NoError(t, err)
	return allowedOrigins
}
