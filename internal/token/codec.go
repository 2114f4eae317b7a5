// Package token decodes the bearer credential issued by the upstream
// dashboard API. Decoding is format-only: the upstream service signs and
// verifies tokens, this codec merely reads the claims the dashboard needs.
package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrDecode indicates a missing or malformed credential. The error carries
// no token material so it is safe to log.
var ErrDecode = errors.New("token: malformed credential")

// Claims holds the subset of token claims the dashboard acts on.
// Exp is seconds since epoch; zero means the claim was absent.
type Claims struct {
	Role string
	Exp  int64
}

type wireClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Decode parses the structural claims out of raw without verifying the
// signature or expiry. It never panics and never returns token contents
// inside the error.
func Decode(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrDecode
	}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	var wc wireClaims
	if _, _, err := parser.ParseUnverified(raw, &wc); err != nil {
		return Claims{}, ErrDecode
	}
	claims := Claims{Role: wc.Role}
	if wc.ExpiresAt != nil {
		claims.Exp = wc.ExpiresAt.Unix()
	}
	return claims, nil
}
