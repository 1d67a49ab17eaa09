package app

import (
	"context"
	"fmt"

	"github.com/Amund211/eliteseller-gateway/internal/domain"
)

const defaultSessionActionsLimit = 20

type GetSessionActions func(ctx context.Context, session string, limit int) ([]domain.SessionActionRecord, error)

type sessionActionRepository interface {
	GetSessionActions(ctx context.Context, session string, limit int) ([]domain.SessionActionRecord, error)
}

func BuildGetSessionActions(repository sessionActionRepository) GetSessionActions {
	return func(ctx context.Context, session string, limit int) ([]domain.SessionActionRecord, error) {
		if err := domain.ValidateSessionName(session); err != nil {
			return nil, err
		}

		if limit <= 0 {
			limit = defaultSessionActionsLimit
		}

		records, err := repository.GetSessionActions(ctx, session, limit)
		if err != nil {
			// NOTE: sessionActionRepository implementations handle their own error reporting
			return nil, fmt.Errorf("could not get session actions: %w", err)
		}

		return records, nil
	}
}
