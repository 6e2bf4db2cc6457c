package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the Auth0 access-token claims the API relies on.  Permissions
// stays nil when the token carries no "permissions" claim at all, which is
// distinct from an empty list.
type Claims struct {
	jwt.RegisteredClaims
	Permissions []string `json:"permissions,omitempty"`
}

// Authenticator turns a raw bearer token into verified claims.
type Authenticator interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// Verifier checks RS256 signatures against a KeySet and enforces audience,
// issuer, and expiry.
type Verifier struct {
	keys   *KeySet
	parser *jwt.Parser
}

// NewVerifier builds a Verifier.  issuer must match the `iss` claim exactly
// (Auth0 includes the trailing slash).
func NewVerifier(keys *KeySet, issuer, audience string) *Verifier {
	return &Verifier{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithAudience(audience),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify returns the token's claims, or one of the package's *Error values.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrKeyNotFound
		}
		return v.keys.Key(ctx, kid)
	})
	if err == nil {
		return claims, nil
	}

	var ae *Error
	switch {
	case errors.As(err, &ae):
		return nil, ae
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return nil, ErrInvalidClaims
	default:
		return nil, ErrMalformed
	}
}

// CheckPermission reports whether claims grant perm.
func CheckPermission(perm string, c *Claims) error {
	if c == nil || c.Permissions == nil {
		return ErrNoPermissions
	}
	for _, p := range c.Permissions {
		if p == perm {
			return nil
		}
	}
	return ErrPermissionMissing
}
