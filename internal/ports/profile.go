package ports

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Amund211/eliteseller-gateway/internal/app"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
)

type profileResponseObject struct {
	Success   bool             `json:"success"`
	Profile   *profileResponse `json:"profile"`
	NoProfile bool             `json:"noProfile"`
}

type profileResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func MakeGetProfileHandler(
	getProfile app.GetProfile,
	defaultCredential string,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
	allowedOrigins *AllowedOrigins,
) http.HandlerFunc {
	middleware := buildEndpointMiddleware(
		"profile",
		endpointLimits{
			ipRefillPerSecond:         4,
			ipBurstSize:               240,
			credentialRefillPerSecond: 2,
			credentialBurstSize:       120,
		},
		rootLogger,
		sentryMiddleware,
		allowedOrigins,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		session := r.PathValue("session")

		credential := credentialFromRequest(r, defaultCredential)
		if credential == "" {
			statusCode := http.StatusBadRequest
			logging.FromContext(ctx).Info("Missing credential. Returning error", "statusCode", statusCode, "reason", "missing credential")
			writeErrorResponse(ctx, w, statusCode, "Missing API key")
			return
		}
		ctx = reporting.SetSessionInContext(ctx, session, domain.CredentialDigest(credential))

		result, err := getProfile(ctx, credential, session)
		if err != nil {
			writeAppErrorResponse(ctx, w, err, "Could not get profile. Returning error")
			return
		}

		if result.Failed() {
			statusCode := statusCodeForResult(result)
			logging.FromContext(ctx).Info(
				"Profile lookup failed. Returning error",
				"statusCode", statusCode,
				"upstreamStatusCode", result.StatusCode,
				"aborted", result.Aborted,
				"unavailable", result.Unavailable,
			)
			writeErrorResponse(ctx, w, statusCode, result.ErrorMessage)
			return
		}

		if result.NoProfile() {
			writeJSONResponse(ctx, w, http.StatusOK, profileResponseObject{
				Success:   true,
				Profile:   nil,
				NoProfile: true,
			})
			return
		}

		profile, err := domain.ParseProfile(result.Payload)
		if err != nil {
			err = fmt.Errorf("failed to parse profile from session API: %w", err)
			reporting.Report(ctx, err, map[string]string{
				"upstreamStatusCode": fmt.Sprint(result.StatusCode),
			})

			writeErrorResponse(ctx, w, statusCodeForError(err), "Malformed profile from session API")
			return
		}

		writeJSONResponse(ctx, w, http.StatusOK, profileResponseObject{
			Success: true,
			Profile: &profileResponse{
				ID:      profile.ID,
				Name:    profile.Name,
				Picture: profile.Picture,
			},
			NoProfile: false,
		})
	}

	return middleware(handler)
}
