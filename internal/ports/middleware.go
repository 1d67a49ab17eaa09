package ports

import (
	"log/slog"
	"net/http"

	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/Amund211/eliteseller-gateway/internal/ratelimiting"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
)

func NewRateLimitMiddleware(rateLimiter ratelimiting.RequestRateLimiter, onLimitExceeded http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !rateLimiter.Consume(r) {
				onLimitExceeded(w, r)
				return
			}

			next(w, r)
		}
	}
}

func ComposeMiddlewares(middlewares ...func(http.HandlerFunc) http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	if len(middlewares) == 1 {
		return middlewares[0]
	}
	first := middlewares[0]
	rest := ComposeMiddlewares(middlewares[1:]...)
	return func(h http.HandlerFunc) http.HandlerFunc {
		return first(rest(h))
	}
}

type endpointLimits struct {
	ipRefillPerSecond         ratelimiting.RefillPerSecond
	ipBurstSize               ratelimiting.BurstSize
	credentialRefillPerSecond ratelimiting.RefillPerSecond
	credentialBurstSize       ratelimiting.BurstSize
}

func makeOnLimitExceeded(rateLimiter ratelimiting.RequestRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		statusCode := http.StatusTooManyRequests

		logging.FromContext(ctx).Info("Rate limit exceeded", "statusCode", statusCode, "reason", "ratelimit exceeded", "key", rateLimiter.KeyFor(r))

		writeErrorResponse(ctx, w, statusCode, "Rate limit exceeded")
	}
}

// buildEndpointMiddleware builds the middleware chain shared by every endpoint
func buildEndpointMiddleware(
	endpoint string,
	limits endpointLimits,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
	allowedOrigins *AllowedOrigins,
) func(http.HandlerFunc) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		limits.ipRefillPerSecond,
		limits.ipBurstSize,
	)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		ipLimiter,
		ratelimiting.IPKeyFunc,
	)
	credentialLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		limits.credentialRefillPerSecond,
		limits.credentialBurstSize,
	)
	credentialRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		credentialLimiter,
		ratelimiting.CredentialKeyFunc,
	)

	return ComposeMiddlewares(
		buildMetricsMiddleware(endpoint),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware(),
		BuildCORSMiddleware(allowedOrigins),
		NewRateLimitMiddleware(ipRateLimiter, makeOnLimitExceeded(ipRateLimiter)),
		NewRateLimitMiddleware(credentialRateLimiter, makeOnLimitExceeded(credentialRateLimiter)),
	)
}
