package app

import (
	"context"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/adapters/cache"
	"github.com/Amund211/eliteseller-gateway/internal/adapters/wazend"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
)

const getProfileTimeout = 10 * time.Second

// GetProfile returns the profile lookup result of a session.
// Failures are part of the result. An error is only returned for invalid input.
type GetProfile func(ctx context.Context, credential string, session string) (domain.Result, error)

type profileProvider interface {
	GetProfile(ctx context.Context, credential string, session string) (domain.Result, error)
}

func buildGetProfileWithoutCache(provider profileProvider, credential string, session string) cache.Operation[domain.Result] {
	return func(ctx context.Context) (domain.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, getProfileTimeout)
		defer cancel()

		// NOTE: profileProvider implementations handle their own error reporting
		return provider.GetProfile(ctx, credential, session)
	}
}

// BuildGetProfileWithCache coalesces concurrent lookups of the same profile and keeps the
// outcome until the profile is invalidated.
func BuildGetProfileWithCache(
	coalescer *cache.Coalescer[domain.Result],
	provider profileProvider,
	baseURL string,
	fetchDelay time.Duration,
) GetProfile {
	return func(ctx context.Context, credential string, session string) (domain.Result, error) {
		if err := domain.ValidateSessionName(session); err != nil {
			return domain.Result{}, err
		}

		key := cache.NewKey(wazend.ProfileURL(baseURL, session), credential)

		return coalescer.FetchCoalesced(
			ctx,
			key,
			buildGetProfileWithoutCache(provider, credential, session),
			fetchDelay,
		), nil
	}
}
