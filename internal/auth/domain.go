package auth

import "time"

// SessionRecord is the postgres-side registry entry for one login. The
// registry exists for auditing and for the credential sweep job; the live
// credential itself stays in redis.
type SessionRecord struct {
	ID        string
	Email     string
	Role      string
	ExpiresAt time.Time
	IP        string
	UserAgent string
	CreatedAt time.Time
}
