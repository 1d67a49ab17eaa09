package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/adapters/eventbus"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/logging"
)

const controlSessionTimeout = 15 * time.Second

// ControlSession performs a control action on a session.
//
// Failed actions are returned as failed results. An error is returned for invalid input,
// or when the action could not be attempted.
type ControlSession func(ctx context.Context, credential string, session string, action domain.SessionAction) (domain.Result, error)

type sessionController interface {
	ControlSession(ctx context.Context, credential string, session string, action domain.SessionAction) (domain.Result, error)
}

type sessionActionStore interface {
	StoreSessionAction(ctx context.Context, record domain.SessionActionRecord) error
}

func BuildControlSession(
	controller sessionController,
	store sessionActionStore,
	emitter eventbus.Emitter,
	nowFunc func() time.Time,
) ControlSession {
	return func(ctx context.Context, credential string, session string, action domain.SessionAction) (domain.Result, error) {
		if err := domain.ValidateSessionName(session); err != nil {
			return domain.Result{}, err
		}
		if _, err := domain.ParseSessionAction(string(action)); err != nil {
			return domain.Result{}, err
		}

		logger := logging.FromContext(ctx).With(slog.String("action", string(action)))

		controlCtx, cancel := context.WithTimeout(ctx, controlSessionTimeout)
		result, err := controller.ControlSession(controlCtx, credential, session, action)
		cancel()
		if errors.Is(err, domain.ErrTemporarilyUnavailable) {
			return domain.Result{}, fmt.Errorf("could not control session: %w", err)
		} else if err != nil {
			// NOTE: sessionController implementations handle their own error reporting
			result = domain.ResultFromError(err)
		}

		performedAt := nowFunc()

		err = store.StoreSessionAction(ctx, domain.SessionActionRecord{
			SessionName:  session,
			Action:       action,
			StatusCode:   result.StatusCode,
			ErrorMessage: result.ErrorMessage,
			PerformedAt:  performedAt,
		})
		if err != nil {
			// NOTE: sessionActionStore implementations handle their own error reporting
			logger.WarnContext(ctx, "Failed to store session action", "error", err.Error())
		}

		if result.Failed() {
			logger.InfoContext(ctx, "Session action failed", "statusCode", result.StatusCode, "aborted", result.Aborted)
			return result, nil
		}

		emitter.Emit(ctx, eventbus.Event{Name: eventbus.ProfileRefresh, Session: session})

		return result, nil
	}
}
