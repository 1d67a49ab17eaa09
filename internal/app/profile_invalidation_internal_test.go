package app

import (
	"testing"

	"github.com/Amund211/eliteseller-gateway/internal/adapters/cache"
	"github.com/Amund211/eliteseller-gateway/internal/adapters/wazend"
	"github.com/stretchr/testify/require"
)

func TestProfileKeyPredicate(t *testing.T) {
	t.Parallel()

	const base = "https://wazend.example"

	tests := []struct {
		name    string
		session string
		key     cache.Key
		matches bool
	}{
		{
			name:    "profile of the session",
			session: "store-1",
			key:     cache.NewKey(wazend.ProfileURL(base, "store-1"), "key-1"),
			matches: true,
		},
		{
			name:    "session name is a prefix of another session",
			session: "store-1",
			key:     cache.NewKey(wazend.ProfileURL(base, "store-10"), "key-1"),
			matches: false,
		},
		{
			name:    "other resource of the session",
			session: "store-1",
			key:     cache.NewKey(wazend.SessionsURL(base, "store-1")+"status", "key-1"),
			matches: false,
		},
		{
			name:    "trailing slash on the base url",
			session: "store-1",
			key:     cache.NewKey(wazend.ProfileURL(base+"/", "store-1"), "key-1"),
			matches: true,
		},
		{
			name:    "every session",
			session: "",
			key:     cache.NewKey(wazend.ProfileURL(base, "store-10"), "key-2"),
			matches: true,
		},
		{
			name:    "every session ignores other hosts",
			session: "",
			key:     cache.NewKey(wazend.ProfileURL("https://other.example", "store-1"), "key-1"),
			matches: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.matches, profileKeyPredicate(base, tc.session)(tc.key))
		})
	}
}
