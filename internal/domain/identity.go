package domain

import "time"

// Identity is the account a session belongs to.
type Identity struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string // argon2 encoded

	// CurrentRefreshToken is the single refresh-token slot for the identity.
	// At most one refresh token is valid at any time; nil means no active
	// session (logged out, swept, or never logged in).
	CurrentRefreshToken *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
