package model

import "time"

// DefaultTokenName is the name given to tokens issued by register and login.
const DefaultTokenName = "auth-token"

// AuthToken is the server-side record of an issued bearer token.
// Only the SHA-256 hash of the token id is persisted.
type AuthToken struct {
	ID         int64
	UserID     int64
	Name       string
	TokenHash  string
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token has an expiry at or before now.
func (t AuthToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
