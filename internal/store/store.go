package store

import (
	"context"
	"errors"

	"github.com/vidora/vidora/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Identities() Identities
	SignupChallenges() SignupChallenges

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Identities interface {
	// FindByID returns an identity by id.
	FindByID(ctx context.Context, id string) (domain.Identity, error)

	// FindByEmail is used during login.
	FindByEmail(ctx context.Context, email string) (domain.Identity, error)

	// Create inserts a new identity (id is provided by app via ULID).
	Create(ctx context.Context, ident domain.Identity) error

	// SetRefreshToken unconditionally overwrites the identity's refresh-token
	// slot. nil clears it.
	SetRefreshToken(ctx context.Context, id string, token *string) error

	// SetRefreshTokenIf overwrites the slot only if it currently holds
	// expected (nil meaning empty). Returns false without error when the slot
	// held something else, which is how concurrent rotations lose the race.
	SetRefreshTokenIf(ctx context.Context, id string, expected, next *string) (bool, error)

	// ListWithRefreshToken returns every identity whose slot is non-null.
	// Used only by the sweep.
	ListWithRefreshToken(ctx context.Context) ([]domain.Identity, error)

	// IsEmpty returns true if there are no identities.
	IsEmpty(ctx context.Context) (bool, error)
}

type SignupChallenges interface {
	// Create writes a new signup challenge, replacing any prior challenge for
	// the same email.
	Create(ctx context.Context, ch domain.SignupChallenge) error

	// GetByEmail returns the active (non-expired) challenge for an email.
	GetByEmail(ctx context.Context, email string) (domain.SignupChallenge, error)

	// Delete removes a challenge once consumed.
	Delete(ctx context.Context, id string) error

	// DeleteExpired is housekeeping.
	DeleteExpired(ctx context.Context) error
}
