package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/stretchr/testify/require"
)

func newWriter(t *testing.T) *jsonWriter {
	return &jsonWriter{
		t:    t,
		data: make([]string, 0),
	}
}

type jsonWriter struct {
	t    *testing.T
	data []string
}

func (w *jsonWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.data = append(w.data, string(p))
	return len(p), nil
}

func (w *jsonWriter) PopWithoutTime() (map[string]any, bool) {
	w.t.Helper()
	if len(w.data) == 0 {
		return nil, false
	}

	lastIndex := len(w.data) - 1
	val := w.data[lastIndex]
	w.data = w.data[:lastIndex]

	var result map[string]any
	err := json.Unmarshal([]byte(val), &result)
	require.NoError(w.t, err)

	timeValue, ok := result["time"]
	require.True(w.t, ok)

	timeStr, ok := timeValue.(string)
	require.True(w.t, ok)

	timeTime, err := time.Parse(time.RFC3339, timeStr)
	require.NoError(w.t, err)

	require.WithinDuration(w.t, time.Now(), timeTime, 5*time.Second)

	// Drop "time" as it is hard to match against
	delete(result, "time")

	return result, true
}

func (w *jsonWriter) RequireEmpty() {
	w.t.Helper()
	require.Empty(w.t, w.data)
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("logger in context", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(buf, nil))
		ctx := logging.AddToContext(t.Context(), logger)

		require.Equal(t, logger, logging.FromContext(ctx))
	})

	t.Run("fallback logger", func(t *testing.T) {
		t.Parallel()

		logger := logging.FromContext(t.Context())
		require.NotNil(t, logger)
		require.NotSame(t, slog.Default(), logger)
	})
}

func TestAddMetaToContext(t *testing.T) {
	t.Parallel()

	w := newWriter(t)
	rootLogger := slog.New(slog.NewJSONHandler(w, nil)).With(slog.String("instanceID", "instance-1"))
	ctx := logging.AddToContext(t.Context(), rootLogger)

	w.RequireEmpty()

	rootLogger.Info("Starting")
	entry, ok := w.PopWithoutTime()
	require.True(t, ok)
	require.Equal(t, map[string]any{
		"level":      "INFO",
		"msg":        "Starting",
		"instanceID": "instance-1",
	}, entry)
	w.RequireEmpty()

	sessionCtx := logging.AddMetaToContext(ctx, slog.String("session", "store-1"))
	logging.FromContext(sessionCtx).Info("Getting profile")
	entry, ok = w.PopWithoutTime()
	require.True(t, ok)
	require.Equal(t, map[string]any{
		"level":      "INFO",
		"msg":        "Getting profile",
		"instanceID": "instance-1",
		"session":    "store-1",
	}, entry)
	w.RequireEmpty()

	// Later attributes win, and the parent context is unaffected
	actionCtx := logging.AddMetaToContext(sessionCtx, slog.String("action", "restart"), slog.String("session", "store-2"))
	logging.FromContext(actionCtx).Info("Controlling session")
	entry, ok = w.PopWithoutTime()
	require.True(t, ok)
	require.Equal(t, map[string]any{
		"level":      "INFO",
		"msg":        "Controlling session",
		"instanceID": "instance-1",
		"session":    "store-2",
		"action":     "restart",
	}, entry)
	w.RequireEmpty()

	logging.FromContext(sessionCtx).Info("Getting profile")
	entry, ok = w.PopWithoutTime()
	require.True(t, ok)
	require.Equal(t, "store-1", entry["session"])
	require.NotContains(t, entry, "action")
}
