package ports_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Amund211/eliteseller-gateway/internal/app"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/ports"
	"github.com/stretchr/testify/require"
)

func TestMakeGetProfileHandler(t *testing.T) {
	t.Parallel()

	const session = "store-1"
	const defaultCredential = "default-key"

	makeGetProfile := func(t *testing.T, expectedCredential string, result domain.Result, err error) (app.GetProfile, *bool) {
		called := false
		return func(ctx context.Context, credential string, s string) (domain.Result, error) {
			t.Helper()
			require.Equal(t, session, s)
			require.Equal(t, expectedCredential, credential)

			called = true

			return result, err
		}, &called
	}

	makeHandler := func(t *testing.T, getProfile app.GetProfile, defaultCredential string) http.HandlerFunc {
		return ports.MakeGetProfileHandler(
			getProfile,
			defaultCredential,
			testLogger,
			noopMiddleware,
			newAllowedOrigins(t),
		)
	}

	makeRequest := func(apiKey string) *http.Request {
		req := httptest.NewRequest("GET", fmt.Sprintf("/v1/sessions/%s/profile", session), nil)
		req.SetPathValue("session", session)
		if apiKey != "" {
			req.Header.Set("X-Api-Key", apiKey)
		}
		return req
	}

	t.Run("profile found", func(t *testing.T) {
		t.Parallel()

		getProfile, called := makeGetProfile(t, "request-key", domain.Result{
			StatusCode: 200,
			Payload:    json.RawMessage(`{"id":5511999999999,"name":"Elite Store","picture":"https://cdn.example.com/p.jpg"}`),
		}, nil)
		handler := makeHandler(t, getProfile, defaultCredential)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeRequest("request-key"))

		require.True(t, *called)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))
		require.JSONEq(t, `{"success":true,"profile":{"id":"5511999999999","name":"Elite Store","picture":"https://cdn.example.com/p.jpg"},"noProfile":false}`, w.Body.String())
	})

	t.Run("default credential is used when the request has none", func(t *testing.T) {
		t.Parallel()

		getProfile, called := makeGetProfile(t, defaultCredential, domain.Result{
			StatusCode: 200,
			Payload:    json.RawMessage(`{"id":"abc","name":"Store","picture":""}`),
		}, nil)
		handler := makeHandler(t, getProfile, defaultCredential)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeRequest(""))

		require.True(t, *called)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"success":true,"profile":{"id":"abc","name":"Store","picture":""},"noProfile":false}`, w.Body.String())
	})

	t.Run("missing credential", func(t *testing.T) {
		t.Parallel()

		getProfile, called := makeGetProfile(t, "", domain.Result{}, nil)
		handler := makeHandler(t, getProfile, "")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeRequest(""))

		require.False(t, *called)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `{"success":false,"cause":"Missing API key"}`, w.Body.String())
	})

	t.Run("no profile", func(t *testing.T) {
		t.Parallel()

		getProfile, called := makeGetProfile(t, "request-key", domain.Result{
			StatusCode: 422,
			Payload:    json.RawMessage(`{"error":{"message":"not connected"}}`),
		}, nil)
		handler := makeHandler(t, getProfile, defaultCredential)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeRequest("request-key"))

		require.True(t, *called)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"success":true,"profile":null,"noProfile":true}`, w.Body.String())
	})

	t.Run("upstream failure", func(t *testing.T) {
		t.Parallel()

		getProfile, called := makeGetProfile(t, "request-key", domain.Result{
			StatusCode:   500,
			ErrorMessage: "session not found",
		}, nil)
		handler := makeHandler(t, getProfile, defaultCredential)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeRequest("request-key"))

		require.True(t, *called)
		require.Equal(t, http.StatusBadGateway, w.Code)
		require.JSONEq(t, `{"success":false,"cause":"session not found"}`, w.Body.String())
	})

	t.Run("aborted", func(t *testing.T) {
		t.Parallel()

		getProfile, called := makeGetProfile(t, "request-key", domain.ResultFromError(domain.ErrAborted), nil)
		handler := makeHandler(t, getProfile, defaultCredential)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeRequest("request-key"))

		require.True(t, *called)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		require.JSONEq(t, `{"success":false,"cause":"request aborted"}`, w.Body.String())
	})

	t.Run("throttled", func(t *testing.T) {
		t.Parallel()

		getProfile, called := makeGetProfile(t, "request-key", domain.ResultFromError(
			fmt.Errorf("%w: too many requests to Wazend", domain.ErrTemporarilyUnavailable),
		), nil)
		handler := makeHandler(t, getProfile, defaultCredential)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeRequest("request-key"))

		require.True(t, *called)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		require.JSONEq(t, `{"success":false,"cause":"temporarily unavailable: too many requests to Wazend"}`, w.Body.String())
	})

	t.Run("malformed profile", func(t *testing.T) {
		t.Parallel()

		getProfile, called := makeGetProfile(t, "request-key", domain.Result{
			StatusCode: 200,
			Payload:    json.RawMessage(`{"name":"no id"}`),
		}, nil)
		handler := makeHandler(t, getProfile, defaultCredential)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeRequest("request-key"))

		require.True(t, *called)
		require.Equal(t, http.StatusBadGateway, w.Code)
		require.JSONEq(t, `{"success":false,"cause":"Malformed profile from session API"}`, w.Body.String())
	})

	t.Run("invalid session name", func(t *testing.T) {
		t.Parallel()

		getProfile, called := makeGetProfile(t, "request-key", domain.Result{}, fmt.Errorf("%w: %q", domain.ErrInvalidSessionName, session))
		handler := makeHandler(t, getProfile, defaultCredential)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeRequest("request-key"))

		require.True(t, *called)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unexpected error", func(t *testing.T) {
		t.Parallel()

		getProfile, called := makeGetProfile(t, "request-key", domain.Result{}, errors.New("boom"))
		handler := makeHandler(t, getProfile, defaultCredential)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, makeRequest("request-key"))

		require.True(t, *called)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.JSONEq(t, `{"success":false,"cause":"Internal server error"}`, w.Body.String())
	})

	t.Run("allowed origin gets CORS headers", func(t *testing.T) {
		t.Parallel()

		getProfile, _ := makeGetProfile(t, "request-key", domain.Result{
			StatusCode: 422,
		}, nil)
		handler := makeHandler(t, getProfile, defaultCredential)

		req := makeRequest("request-key")
		req.Header.Set("Origin", "https://app.eliteseller.app")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "https://app.eliteseller.app", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
