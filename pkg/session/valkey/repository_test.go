//go:build integration

package sessionvalkey_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/oko-market/oko-client/internal/dbtest/valkeytest"
	"github.com/oko-market/oko-client/internal/serviceerr"
	"github.com/oko-market/oko-client/pkg/session"
	sessionvalkey "github.com/oko-market/oko-client/pkg/session/valkey"
)

var client valkey.Client

func TestMain(m *testing.M) {
	ctx := context.Background()

	valkeyClient, _, terminate := valkeytest.Start(ctx)
	client = valkeyClient

	code := m.Run()
	terminate(ctx)

	os.Exit(code)
}

func TestNewRepository_Key(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "oko", want: "oko:session:oko-auth"},
		{prefix: "oko:", want: "oko:session:oko-auth"},
		{prefix: "tenant:oko:", want: "tenant:oko:session:oko-auth"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			repo := sessionvalkey.NewRepository(client, tt.prefix, "oko-auth")
			assert.Equal(t, tt.want, repo.Key())
		})
	}
}

func TestRepository_SaveLoadClear(t *testing.T) {
	repo := sessionvalkey.NewRepository(client, t.Name(), "oko-auth")
	s := session.Session{
		Tokens: session.Tokens{AccessToken: "a", RefreshToken: "r"},
		User:   &session.User{ID: "u-1", Role: session.RoleFarmer},
	}

	_, err := repo.Load(t.Context())
	require.ErrorIs(t, err, serviceerr.ErrNotFound)

	require.NoError(t, repo.Save(t.Context(), s))

	got, err := repo.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, s, got)

	require.NoError(t, repo.Clear(t.Context()))

	exists, err := client.Do(t.Context(), client.B().Exists().Key(repo.Key()).Build()).AsInt64()
	require.NoError(t, err)
	assert.Zero(t, exists, "session key must be absent after clear")

	assert.NoError(t, repo.Clear(t.Context()))
}
