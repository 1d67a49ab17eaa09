package ports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/app"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
)

type sessionActionsResponseObject struct {
	Success bool                    `json:"success"`
	Actions []sessionActionResponse `json:"actions"`
}

type sessionActionResponse struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	StatusCode   int       `json:"statusCode"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	PerformedAt  time.Time `json:"performedAt"`
}

func MakeGetSessionActionsHandler(
	getSessionActions app.GetSessionActions,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
	allowedOrigins *AllowedOrigins,
) http.HandlerFunc {
	middleware := buildEndpointMiddleware(
		"session_actions",
		endpointLimits{
			ipRefillPerSecond:         2,
			ipBurstSize:               60,
			credentialRefillPerSecond: 1,
			credentialBurstSize:       30,
		},
		rootLogger,
		sentryMiddleware,
		allowedOrigins,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		session := r.PathValue("session")
		rawLimit := r.URL.Query().Get("limit")
		ctx = reporting.AddExtrasToContext(ctx,
			map[string]string{
				"session":  session,
				"rawLimit": rawLimit,
			},
		)

		limit := 0
		if rawLimit != "" {
			parsed, err := strconv.Atoi(rawLimit)
			if err != nil || parsed < 1 || parsed > domain.MaxSessionActionsLimit {
				statusCode := http.StatusBadRequest
				logging.FromContext(ctx).Info("Invalid limit. Returning error", "statusCode", statusCode, "reason", "invalid limit")
				writeErrorResponse(ctx, w, statusCode, "Invalid limit")
				return
			}
			limit = parsed
		}

		records, err := getSessionActions(ctx, session, limit)
		if errors.Is(err, domain.ErrSessionActionsNotFound) {
			records = nil
		} else if err != nil {
			statusCode := statusCodeForError(err)
			logging.FromContext(ctx).Warn("Error getting session actions", "statusCode", statusCode, "error", err)
			writeErrorResponse(ctx, w, statusCode, "Could not get session actions")
			return
		}

		actions := make([]sessionActionResponse, 0, len(records))
		for _, record := range records {
			actions = append(actions, sessionActionResponse{
				ID:           record.ID,
				Action:       string(record.Action),
				StatusCode:   record.StatusCode,
				ErrorMessage: record.ErrorMessage,
				PerformedAt:  record.PerformedAt.UTC(),
			})
		}

		writeJSONResponse(ctx, w, http.StatusOK, sessionActionsResponseObject{
			Success: true,
			Actions: actions,
		})
	}

	return middleware(handler)
}
