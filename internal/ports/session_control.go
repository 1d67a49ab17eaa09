package ports

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Amund211/eliteseller-gateway/internal/app"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
)

type controlSessionResponseObject struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Cause      string          `json:"cause,omitempty"`
}

func MakeControlSessionHandler(
	controlSession app.ControlSession,
	defaultCredential string,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
	allowedOrigins *AllowedOrigins,
) http.HandlerFunc {
	middleware := buildEndpointMiddleware(
		"control_session",
		endpointLimits{
			ipRefillPerSecond:         1,
			ipBurstSize:               30,
			credentialRefillPerSecond: 0.5,
			credentialBurstSize:       15,
		},
		rootLogger,
		sentryMiddleware,
		allowedOrigins,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		session := r.PathValue("session")
		rawAction := r.PathValue("action")
		ctx = logging.AddMetaToContext(ctx, slog.String("action", rawAction))
		ctx = reporting.AddExtrasToContext(ctx,
			map[string]string{
				"action": rawAction,
			},
		)

		action, err := domain.ParseSessionAction(rawAction)
		if err != nil {
			statusCode := http.StatusBadRequest
			logging.FromContext(ctx).Info("Invalid action. Returning error", "statusCode", statusCode, "reason", "invalid action")
			writeErrorResponse(ctx, w, statusCode, err.Error())
			return
		}

		credential := credentialFromRequest(r, defaultCredential)
		if credential == "" {
			statusCode := http.StatusBadRequest
			logging.FromContext(ctx).Info("Missing credential. Returning error", "statusCode", statusCode, "reason", "missing credential")
			writeErrorResponse(ctx, w, statusCode, "Missing API key")
			return
		}
		ctx = reporting.SetSessionInContext(ctx, session, domain.CredentialDigest(credential))

		result, err := controlSession(ctx, credential, session, action)
		if err != nil {
			writeAppErrorResponse(ctx, w, err, "Could not control session. Returning error")
			return
		}

		statusCode := http.StatusOK
		if result.Failed() {
			statusCode = statusCodeForResult(result)
		}

		writeJSONResponse(ctx, w, statusCode, controlSessionResponseObject{
			Success:    !result.Failed(),
			StatusCode: result.StatusCode,
			Data:       result.Payload,
			Cause:      result.ErrorMessage,
		})
	}

	return middleware(handler)
}
