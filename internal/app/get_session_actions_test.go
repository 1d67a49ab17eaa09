package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/app"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSessionActionRepository struct {
	t *testing.T

	expectedSession string
	expectedLimit   int
	called          bool

	records []domain.SessionActionRecord
	err     error
}

func (m *mockSessionActionRepository) GetSessionActions(ctx context.Context, session string, limit int) ([]domain.SessionActionRecord, error) {
	m.t.Helper()
	require.Equal(m.t, m.expectedSession, session)
	require.Equal(m.t, m.expectedLimit, limit)
	m.called = true
	return m.records, m.err
}

func TestBuildGetSessionActions(t *testing.T) {
	t.Parallel()

	records := []domain.SessionActionRecord{
		{
			ID:          "00000000-0000-0000-0000-000000000001",
			SessionName: "store-1",
			Action:      domain.SessionActionStart,
			StatusCode:  200,
			PerformedAt: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	t.Run("passes limit through", func(t *testing.T) {
		t.Parallel()

		repository := &mockSessionActionRepository{t: t, expectedSession: "store-1", expectedLimit: 5, records: records}

		stored, err := app.BuildGetSessionActions(repository)(t.Context(), "store-1", 5)
		require.NoError(t, err)
		require.Equal(t, records, stored)
	})

	t.Run("default limit", func(t *testing.T) {
		t.Parallel()

		for _, limit := range []int{0, -3} {
			repository := &mockSessionActionRepository{t: t, expectedSession: "store-1", expectedLimit: 20, records: records}

			_, err := app.BuildGetSessionActions(repository)(t.Context(), "store-1", limit)
			require.NoError(t, err)
			require.True(t, repository.called)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		repository := &mockSessionActionRepository{t: t, expectedSession: "store-1", expectedLimit: 20, err: domain.ErrSessionActionsNotFound}

		_, err := app.BuildGetSessionActions(repository)(t.Context(), "store-1", 0)
		require.ErrorIs(t, err, domain.ErrSessionActionsNotFound)
	})

	t.Run("repository error", func(t *testing.T) {
		t.Parallel()

		repository := &mockSessionActionRepository{t: t, expectedSession: "store-1", expectedLimit: 20, err: assert.AnError}

		_, err := app.BuildGetSessionActions(repository)(t.Context(), "store-1", 0)
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("invalid session", func(t *testing.T) {
		t.Parallel()

		repository := &mockSessionActionRepository{t: t}

		_, err := app.BuildGetSessionActions(repository)(t.Context(), "", 0)
		require.ErrorIs(t, err, domain.ErrInvalidSessionName)
		require.False(t, repository.called)
	})
}
