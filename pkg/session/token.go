package session

import (
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var tokenAlgorithms = []jose.SignatureAlgorithm{
	jose.HS256, jose.HS384, jose.HS512,
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.EdDSA,
}

// AccessTokenExpiry reads the exp claim of a JWT access token without
// verifying its signature. It is informational only; the backend remains the
// authority on whether a token is still accepted.
func AccessTokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	parsed, err := jwt.ParseSigned(token, tokenAlgorithms)
	if err != nil {
		return time.Time{}, false
	}

	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return time.Time{}, false
	}
	if claims.Expiry == nil {
		return time.Time{}, false
	}

	return claims.Expiry.Time(), true
}
