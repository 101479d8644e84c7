package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vidora/vidora/internal/session"
)

func newTestCodec() *session.TokenCodec {
	return &session.TokenCodec{
		Issuer:        "vidora-test",
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func TestMintAndVerifyAccess(t *testing.T) {
	codec := newTestCodec()
	now := time.Now()

	token, err := codec.MintAccess("identity-1", now)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sub, err := codec.VerifyAccess(token)
	require.NoError(t, err)
	require.Equal(t, "identity-1", sub)
}

func TestMintAndVerifyRefresh(t *testing.T) {
	codec := newTestCodec()
	now := time.Now()

	token, err := codec.MintRefresh("identity-1", now)
	require.NoError(t, err)

	sub, err := codec.VerifyRefresh(token)
	require.NoError(t, err)
	require.Equal(t, "identity-1", sub)
}

func TestVerifyRejectsCrossKindTokens(t *testing.T) {
	codec := newTestCodec()
	now := time.Now()

	access, err := codec.MintAccess("identity-1", now)
	require.NoError(t, err)
	refresh, err := codec.MintRefresh("identity-1", now)
	require.NoError(t, err)

	t.Run("access token against refresh secret", func(t *testing.T) {
		_, err := codec.VerifyRefresh(access)
		require.ErrorIs(t, err, session.ErrInvalidToken)
	})

	t.Run("refresh token against access secret", func(t *testing.T) {
		_, err := codec.VerifyAccess(refresh)
		require.ErrorIs(t, err, session.ErrInvalidToken)
	})
}

func TestVerifyExpiredToken(t *testing.T) {
	codec := newTestCodec()

	// Minted far enough in the past that both TTLs have elapsed.
	past := time.Now().Add(-30 * 24 * time.Hour)

	access, err := codec.MintAccess("identity-1", past)
	require.NoError(t, err)
	refresh, err := codec.MintRefresh("identity-1", past)
	require.NoError(t, err)

	_, err = codec.VerifyAccess(access)
	require.ErrorIs(t, err, session.ErrExpiredToken)

	_, err = codec.VerifyRefresh(refresh)
	require.ErrorIs(t, err, session.ErrExpiredToken)
}

func TestVerifyMalformedToken(t *testing.T) {
	codec := newTestCodec()

	for _, token := range []string{
		"",
		"not-a-jwt",
		"aaaa.bbbb.cccc",
	} {
		_, err := codec.VerifyAccess(token)
		require.ErrorIs(t, err, session.ErrInvalidToken)

		_, err = codec.VerifyRefresh(token)
		require.ErrorIs(t, err, session.ErrInvalidToken)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	codec := newTestCodec()
	other := newTestCodec()
	other.AccessSecret = []byte("a-different-access-secret")

	token, err := codec.MintAccess("identity-1", time.Now())
	require.NoError(t, err)

	_, err = other.VerifyAccess(token)
	require.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestVerifyTamperedToken(t *testing.T) {
	codec := newTestCodec()

	token, err := codec.MintRefresh("identity-1", time.Now())
	require.NoError(t, err)

	// Flip a character in the payload segment; the signature no longer matches.
	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	_, err = codec.VerifyRefresh(string(tampered))
	require.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestDefaultTTLs(t *testing.T) {
	codec := &session.TokenCodec{
		Issuer:        "vidora-test",
		AccessSecret:  []byte("access"),
		RefreshSecret: []byte("refresh"),
	}

	require.Equal(t, session.DefaultRefreshTokenTTL, codec.RefreshLifetime())

	token, err := codec.MintAccess("identity-1", time.Now())
	require.NoError(t, err)

	sub, err := codec.VerifyAccess(token)
	require.NoError(t, err)
	require.Equal(t, "identity-1", sub)
}
