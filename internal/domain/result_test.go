package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestResultFromError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		aborted     bool
		unavailable bool
	}{
		{
			name:    "network error",
			err:     errors.New("dial tcp: connection refused"),
			aborted: false,
		},
		{
			name:    "deadline is an operation failure",
			err:     fmt.Errorf("failed to send request: %w", context.DeadlineExceeded),
			aborted: false,
		},
		{
			name:    "cancelled",
			err:     fmt.Errorf("failed to send request: %w", context.Canceled),
			aborted: true,
		},
		{
			name:    "aborted",
			err:     fmt.Errorf("%w: caller went away", domain.ErrAborted),
			aborted: true,
		},
		{
			name:        "throttled",
			err:         fmt.Errorf("%w: too many requests to Wazend", domain.ErrTemporarilyUnavailable),
			aborted:     false,
			unavailable: true,
		},
		{
			name:    "nil error",
			err:     nil,
			aborted: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result := domain.ResultFromError(tc.err)
			require.True(t, result.Failed())
			require.NotEmpty(t, result.ErrorMessage)
			require.Equal(t, tc.aborted, result.Aborted)
			require.Equal(t, tc.unavailable, result.Unavailable)
			require.Equal(t, tc.aborted || tc.unavailable, result.Transient())
			require.Equal(t, 0, result.StatusCode)
			require.Nil(t, result.Payload)
		})
	}
}

func TestResultNoProfile(t *testing.T) {
	t.Parallel()

	require.True(t, domain.Result{StatusCode: 422, Payload: []byte(`{}`)}.NoProfile())
	require.False(t, domain.Result{StatusCode: 422, ErrorMessage: "boom"}.NoProfile())
	require.False(t, domain.Result{StatusCode: 200}.NoProfile())
	require.False(t, domain.Result{}.NoProfile())
}
