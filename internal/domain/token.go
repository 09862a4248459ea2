package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// AuthToken is an upstream OAuth access token. The newest row by CreatedAt is the
// current one; refresh replaces every row.
type AuthToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	Token     string    `gorm:"not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (AuthToken) TableName() string { return "auth_tokens" }

// Expired reports whether the token is past its expiry at now.
func (t AuthToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// TokenGrant is the result of a client-credentials exchange.
type TokenGrant struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}
