package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vidora/vidora/internal/domain"
	"github.com/vidora/vidora/internal/store"
	"github.com/vidora/vidora/internal/store/drivers/sqlite"
	"github.com/vidora/vidora/pkg/idx"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "store_test.db")
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedIdentity(t *testing.T, st *sqlite.Store, email string) domain.Identity {
	t.Helper()

	ident := domain.Identity{
		ID:           idx.New().String(),
		Email:        email,
		DisplayName:  "Seed",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
	}
	require.NoError(t, st.Identities().Create(context.Background(), ident))
	return ident
}

func TestIdentitiesCRUD(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	empty, err := st.Identities().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	ident := seedIdentity(t, st, "a@example.com")

	empty, err = st.Identities().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	t.Run("find by id", func(t *testing.T) {
		got, err := st.Identities().FindByID(ctx, ident.ID)
		require.NoError(t, err)
		require.Equal(t, ident.Email, got.Email)
		require.Nil(t, got.CurrentRefreshToken)
		require.False(t, got.CreatedAt.IsZero())
	})

	t.Run("find by email", func(t *testing.T) {
		got, err := st.Identities().FindByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		require.Equal(t, ident.ID, got.ID)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := st.Identities().FindByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := domain.Identity{
			ID:           idx.New().String(),
			Email:        "a@example.com",
			PasswordHash: "x",
		}
		err := st.Identities().Create(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})
}

func TestSetRefreshToken(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	ident := seedIdentity(t, st, "b@example.com")

	token := "refresh-token-bytes"
	require.NoError(t, st.Identities().SetRefreshToken(ctx, ident.ID, &token))

	got, err := st.Identities().FindByID(ctx, ident.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentRefreshToken)
	require.Equal(t, token, *got.CurrentRefreshToken)

	t.Run("nil clears the slot", func(t *testing.T) {
		require.NoError(t, st.Identities().SetRefreshToken(ctx, ident.ID, nil))

		got, err := st.Identities().FindByID(ctx, ident.ID)
		require.NoError(t, err)
		require.Nil(t, got.CurrentRefreshToken)
	})

	t.Run("unknown identity", func(t *testing.T) {
		err := st.Identities().SetRefreshToken(ctx, idx.New().String(), &token)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSetRefreshTokenIf(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	ident := seedIdentity(t, st, "c@example.com")

	first := "first-token"
	second := "second-token"

	t.Run("swap from empty", func(t *testing.T) {
		ok, err := st.Identities().SetRefreshTokenIf(ctx, ident.ID, nil, &first)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("swap with matching expectation", func(t *testing.T) {
		ok, err := st.Identities().SetRefreshTokenIf(ctx, ident.ID, &first, &second)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("stale expectation loses", func(t *testing.T) {
		other := "other-token"
		ok, err := st.Identities().SetRefreshTokenIf(ctx, ident.ID, &first, &other)
		require.NoError(t, err)
		require.False(t, ok)

		// Slot is untouched by the losing swap.
		got, err := st.Identities().FindByID(ctx, ident.ID)
		require.NoError(t, err)
		require.Equal(t, second, *got.CurrentRefreshToken)
	})

	t.Run("nil expectation against a full slot loses", func(t *testing.T) {
		other := "other-token"
		ok, err := st.Identities().SetRefreshTokenIf(ctx, ident.ID, nil, &other)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("conditional clear", func(t *testing.T) {
		ok, err := st.Identities().SetRefreshTokenIf(ctx, ident.ID, &second, nil)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := st.Identities().FindByID(ctx, ident.ID)
		require.NoError(t, err)
		require.Nil(t, got.CurrentRefreshToken)
	})

	t.Run("unknown identity swaps nothing", func(t *testing.T) {
		ok, err := st.Identities().SetRefreshTokenIf(ctx, idx.New().String(), nil, &first)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestListWithRefreshToken(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	withToken := seedIdentity(t, st, "d@example.com")
	seedIdentity(t, st, "e@example.com")

	token := "live-token"
	require.NoError(t, st.Identities().SetRefreshToken(ctx, withToken.ID, &token))

	idents, err := st.Identities().ListWithRefreshToken(ctx)
	require.NoError(t, err)
	require.Len(t, idents, 1)
	require.Equal(t, withToken.ID, idents[0].ID)
	require.Equal(t, token, *idents[0].CurrentRefreshToken)
}

func TestSignupChallenges(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	ch := domain.SignupChallenge{
		ID:        idx.New().String(),
		Email:     "f@example.com",
		Secret:    "JBSWY3DPEHPK3PXP",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, st.SignupChallenges().Create(ctx, ch))

	t.Run("get by email", func(t *testing.T) {
		got, err := st.SignupChallenges().GetByEmail(ctx, "f@example.com")
		require.NoError(t, err)
		require.Equal(t, ch.ID, got.ID)
		require.Equal(t, ch.Secret, got.Secret)
	})

	t.Run("create replaces existing challenge for the email", func(t *testing.T) {
		replacement := domain.SignupChallenge{
			ID:        idx.New().String(),
			Email:     "f@example.com",
			Secret:    "NEWSECRETNEWSECR",
			ExpiresAt: time.Now().Add(10 * time.Minute),
		}
		require.NoError(t, st.SignupChallenges().Create(ctx, replacement))

		got, err := st.SignupChallenges().GetByEmail(ctx, "f@example.com")
		require.NoError(t, err)
		require.Equal(t, replacement.ID, got.ID)
	})

	t.Run("expired challenge is invisible", func(t *testing.T) {
		expired := domain.SignupChallenge{
			ID:        idx.New().String(),
			Email:     "g@example.com",
			Secret:    "JBSWY3DPEHPK3PXP",
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		require.NoError(t, st.SignupChallenges().Create(ctx, expired))

		_, err := st.SignupChallenges().GetByEmail(ctx, "g@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		require.NoError(t, st.SignupChallenges().DeleteExpired(ctx))

		// The live challenge survives.
		_, err := st.SignupChallenges().GetByEmail(ctx, "f@example.com")
		require.NoError(t, err)
	})

	t.Run("delete by id", func(t *testing.T) {
		got, err := st.SignupChallenges().GetByEmail(ctx, "f@example.com")
		require.NoError(t, err)

		require.NoError(t, st.SignupChallenges().Delete(ctx, got.ID))

		_, err = st.SignupChallenges().GetByEmail(ctx, "f@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestPing(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Ping(context.Background()))
}
