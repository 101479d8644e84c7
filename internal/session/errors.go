package session

import "errors"

var (
	// ErrTokenGeneration covers signing or persistence failures while minting
	// a session. Callers must treat the request as failed; no session exists.
	ErrTokenGeneration = errors.New("session: token generation failed")

	// ErrInvalidToken is returned for malformed tokens, bad signatures, and
	// tokens signed with the wrong secret.
	ErrInvalidToken = errors.New("session: invalid token")

	// ErrExpiredToken is returned when a token's expiry has passed. Callers
	// treat it the same as ErrInvalidToken; the distinction matters only for
	// logging.
	ErrExpiredToken = errors.New("session: token expired")

	// ErrIdentityNotFound is returned when a token names an identity that no
	// longer exists.
	ErrIdentityNotFound = errors.New("session: identity not found")

	// ErrTokenMismatch is returned when a validly signed refresh token is not
	// the one currently stored for its identity: already rotated, already
	// logged out, or a concurrent refresh won the race.
	ErrTokenMismatch = errors.New("session: refresh token mismatch")
)
