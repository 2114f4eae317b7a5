package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrUpstreamUnauthorized reports that the remote API rejected the
	// bearer credential. Handlers route it into the expiry flow.
	ErrUpstreamUnauthorized = errors.New("upstream: unauthorized")
)

// User-visible notification texts. The expiry messages are the only two the
// session core ever surfaces; decode failures are never shown verbatim.
const (
	MsgSessionExpired = "Session expired. Please log in again."
	MsgAutoLoggedOut  = "Session expired. You have been logged out."
	MsgFetchFailed    = "Failed to fetch details"
)
