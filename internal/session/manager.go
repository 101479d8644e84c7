package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vidora/vidora/internal/domain"
	"github.com/vidora/vidora/internal/store"
	"github.com/vidora/vidora/pkg/slogx"
)

// Manager owns the session lifecycle for an identity: issuing, verifying,
// rotating, and revoking the access/refresh token pair, and sweeping stale
// refresh tokens out of the store.
//
// The identity's refresh-token slot in the store is the only shared mutable
// state. The manager never caches it; every check re-reads the stored value,
// and rotation goes through a compare-and-swap so two concurrent refreshes
// with the same token cannot both succeed.
type Manager struct {
	Store store.Store
	Codec *TokenCodec
}

// SweepResult reports what a sweep run found.
type SweepResult struct {
	Expired int // tokens cleared because they no longer verify
	Valid   int // tokens left untouched
}

// IssueSession mints a fresh token pair for an already-authenticated identity
// and persists the refresh token into the identity's slot, overwriting any
// prior value. Exactly one store write. Any signing or persistence failure
// surfaces as ErrTokenGeneration and no session is considered active.
func (m *Manager) IssueSession(
	ctx context.Context,
	ident domain.Identity,
) (domain.TokenPair, error) {
	now := time.Now()

	access, err := m.Codec.MintAccess(ident.ID, now)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: sign access: %w", ErrTokenGeneration, err)
	}

	refresh, err := m.Codec.MintRefresh(ident.ID, now)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: sign refresh: %w", ErrTokenGeneration, err)
	}

	if err := m.Store.Identities().SetRefreshToken(ctx, ident.ID, &refresh); err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: persist refresh: %w", ErrTokenGeneration, err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    m.Codec.accessTTL(),
	}, nil
}

// VerifyAccessToken validates signature and expiry of an access token and
// returns the identity id. No store access; this is the whole point of the
// short-lived access token.
func (m *Manager) VerifyAccessToken(ctx context.Context, token string) (string, error) {
	return m.Codec.VerifyAccess(token)
}

// RefreshSession rotates a session: the presented refresh token must verify
// AND be byte-identical to the value currently stored for its identity. On
// success a new pair is minted and swapped into the slot, making the old
// token permanently unusable even though it has not expired. The swap is
// conditional on the slot still holding the presented token, so a concurrent
// refresh that loses the race gets ErrTokenMismatch instead of a second
// valid-looking pair.
func (m *Manager) RefreshSession(
	ctx context.Context,
	presented string,
) (domain.TokenPair, error) {
	identityID, err := m.Codec.VerifyRefresh(presented)
	if err != nil {
		return domain.TokenPair{}, err
	}

	ident, err := m.Store.Identities().FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrIdentityNotFound
		}
		return domain.TokenPair{}, err
	}

	// Covers already-rotated, already-logged-out, and validly-signed tokens
	// from a previous session.
	if ident.CurrentRefreshToken == nil || *ident.CurrentRefreshToken != presented {
		return domain.TokenPair{}, ErrTokenMismatch
	}

	now := time.Now()

	access, err := m.Codec.MintAccess(ident.ID, now)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: sign access: %w", ErrTokenGeneration, err)
	}

	refresh, err := m.Codec.MintRefresh(ident.ID, now)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: sign refresh: %w", ErrTokenGeneration, err)
	}

	swapped, err := m.Store.Identities().SetRefreshTokenIf(ctx, ident.ID, &presented, &refresh)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: persist refresh: %w", ErrTokenGeneration, err)
	}
	if !swapped {
		return domain.TokenPair{}, ErrTokenMismatch
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    m.Codec.accessTTL(),
	}, nil
}

// RevokeSession clears the identity's refresh-token slot. Idempotent: an
// already-empty slot is not an error. Outstanding access tokens are not
// revoked; they are stateless and simply expire.
func (m *Manager) RevokeSession(ctx context.Context, identityID string) error {
	if err := m.Store.Identities().SetRefreshToken(ctx, identityID, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return err
	}
	return nil
}

// SweepExpiredRefreshTokens re-verifies every stored refresh token and clears
// the ones that fail, reclaiming slots whose holder never logged out or
// refreshed. Individual failures are the expected "found a stale one" case
// and never abort the scan; only failing to enumerate identities at all is
// escalated. Tokens that fail for any reason, tampering included, count as
// expired.
func (m *Manager) SweepExpiredRefreshTokens(ctx context.Context) (SweepResult, error) {
	log := slogx.FromContext(ctx)

	idents, err := m.Store.Identities().ListWithRefreshToken(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("enumerate identities: %w", err)
	}

	var result SweepResult
	for _, ident := range idents {
		stale := *ident.CurrentRefreshToken

		if _, err := m.Codec.VerifyRefresh(stale); err == nil {
			result.Valid++
			continue
		} else {
			log.Debug("sweeping refresh token", "identity_id", ident.ID, "reason", err)
		}

		// CAS-clear so a refresh that happened after enumeration survives.
		if _, err := m.Store.Identities().SetRefreshTokenIf(ctx, ident.ID, &stale, nil); err != nil {
			log.Error("failed to clear stale refresh token", "identity_id", ident.ID, "err", err)
			continue
		}
		result.Expired++
	}

	return result, nil
}
