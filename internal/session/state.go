// Package session derives the authentication state of a browser session from
// its stored credential and owns the auto-logout machinery.
package session

import (
	"time"

	"github.com/courierdash/courierdash/internal/token"
)

// Status classifies a session credential.
type Status int

const (
	// StatusAbsent means no credential is stored: the user never logged in
	// or has already been logged out.
	StatusAbsent Status = iota
	// StatusExpired means a credential exists but cannot be trusted:
	// undecodable, missing an expiry, or past it. Fail-closed.
	StatusExpired
	// StatusValid means the credential decodes and has not lapsed yet.
	StatusValid
)

// State is the evaluation result for one credential read.
type State struct {
	Status    Status
	Role      string
	ExpiresAt time.Time
}

// Evaluate derives the session state from a raw credential at the given
// instant. It is pure: no clock, no storage, no side effects, so callers can
// test it with any timestamp. An empty role on a valid state means the role
// claim was absent; downstream permission checks treat that as no
// permissions, never as a wildcard.
//
// The boundary is exclusive on the valid side: a credential is Expired at
// exactly its expiry instant.
func Evaluate(raw string, now time.Time) State {
	if raw == "" {
		return State{Status: StatusAbsent}
	}
	claims, err := token.Decode(raw)
	if err != nil {
		return State{Status: StatusExpired}
	}
	if claims.Exp == 0 {
		return State{Status: StatusExpired}
	}
	expiresAt := time.Unix(claims.Exp, 0)
	if !now.Before(expiresAt) {
		return State{Status: StatusExpired}
	}
	return State{Status: StatusValid, Role: claims.Role, ExpiresAt: expiresAt}
}
