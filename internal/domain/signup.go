package domain

import "time"

// SignupChallenge gates account creation behind a one-time code. A challenge
// is created when someone asks to sign up with an email address and consumed
// when they present the matching code.
type SignupChallenge struct {
	ID        string
	Email     string
	Secret    string // base32 TOTP secret the code is derived from
	ExpiresAt time.Time
	CreatedAt time.Time
}
