package session_test

import (
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oko-market/oko-client/pkg/session"
)

func signedToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte("0123456789abcdef0123456789abcdef")},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)

	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	require.NoError(t, err)

	return token
}

func TestAccessTokenExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)

	tests := []struct {
		name   string
		token  string
		want   time.Time
		wantOK bool
	}{
		{
			name:   "JWT with exp",
			token:  signedToken(t, jwt.Claims{Subject: "u-1", Expiry: jwt.NewNumericDate(exp)}),
			want:   exp,
			wantOK: true,
		},
		{
			name:  "JWT without exp",
			token: signedToken(t, jwt.Claims{Subject: "u-1"}),
		},
		{
			name:  "Opaque token",
			token: "not-a-jwt",
		},
		{
			name: "Empty token",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := session.AccessTokenExpiry(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			}
		})
	}
}
