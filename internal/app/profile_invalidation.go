package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Amund211/eliteseller-gateway/internal/adapters/cache"
	"github.com/Amund211/eliteseller-gateway/internal/adapters/eventbus"
	"github.com/Amund211/eliteseller-gateway/internal/adapters/wazend"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/logging"
)

// profileKeyPredicate matches the profile keys of session, or of every session
// when session is empty
func profileKeyPredicate(baseURL string, session string) func(cache.Key) bool {
	prefix := strings.TrimSuffix(baseURL, "/") + "/api/"
	if session != "" {
		prefix = wazend.SessionsURL(baseURL, session)
	}

	inScope := cache.ResourceHasPrefix(prefix)
	return func(key cache.Key) bool {
		return inScope(key) && strings.HasSuffix(key.Resource(), "/profile")
	}
}

// SubscribeProfileInvalidation drops cached profiles when a profile refresh is signalled.
// Call the returned func to unsubscribe.
func SubscribeProfileInvalidation(emitter eventbus.Emitter, coalescer *cache.Coalescer[domain.Result], baseURL string) func() {
	return emitter.On(eventbus.ProfileRefresh, func(ctx context.Context, event eventbus.Event) {
		logger := logging.FromContext(ctx)

		if event.Session != "" {
			if err := domain.ValidateSessionName(event.Session); err != nil {
				logger.WarnContext(ctx, "Ignoring profile refresh for invalid session", slog.String("eventSession", event.Session))
				return
			}
		}

		removed := coalescer.InvalidateAll(ctx, profileKeyPredicate(baseURL, event.Session))

		logger.InfoContext(
			ctx,
			"Invalidated profiles",
			slog.String("eventSession", event.Session),
			slog.Int("removed", removed),
		)
	})
}
