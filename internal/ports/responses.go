package ports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
)

type errorResponseObject struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
}

func writeJSONResponse(ctx context.Context, w http.ResponseWriter, statusCode int, response any) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.FromContext(ctx).Error("Failed to marshal response", "error", err)
		reporting.Report(ctx, fmt.Errorf("failed to marshal response: %w", err))

		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err = w.Write(data); err != nil {
		logging.FromContext(ctx).Error("Failed to write response", "error", err)
		reporting.Report(ctx, fmt.Errorf("failed to write response: %w", err))
	}
}

func writeErrorResponse(ctx context.Context, w http.ResponseWriter, statusCode int, cause string) {
	writeJSONResponse(ctx, w, statusCode, errorResponseObject{
		Success: false,
		Cause:   cause,
	})
}

// statusCodeForError maps errors returned by the app layer to a response status
func statusCodeForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSessionName), errors.Is(err, domain.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTemporarilyUnavailable), errors.Is(err, domain.ErrAborted):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrMalformedProfile):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeAppErrorResponse writes the error returned by the app layer. Unexpected errors are
// not exposed to the client.
func writeAppErrorResponse(ctx context.Context, w http.ResponseWriter, err error, message string) {
	statusCode := statusCodeForError(err)

	cause := err.Error()
	if statusCode == http.StatusInternalServerError {
		logging.FromContext(ctx).Error(message, "statusCode", statusCode, "error", err)
		cause = "Internal server error"
	} else {
		logging.FromContext(ctx).Info(message, "statusCode", statusCode, "error", err)
	}

	writeErrorResponse(ctx, w, statusCode, cause)
}

// statusCodeForResult maps a failed session API result to a response status
func statusCodeForResult(result domain.Result) int {
	if result.Transient() {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// credentialFromRequest returns the session API credential of the request, or the
// fallback if the request carries none
func credentialFromRequest(r *http.Request, fallback string) string {
	credential := r.Header.Get("X-Api-Key")
	if credential == "" {
		return fallback
	}
	return credential
}
