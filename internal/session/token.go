package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vidora/vidora/pkg/idx"
)

// Default token TTLs. Short-lived access tokens keep verification stateless
// without a store lookup on every request; long-lived refresh tokens keep the
// user logged in between visits.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenCodec mints and verifies the two token kinds. Access and refresh
// tokens are both HS256 JWTs carrying {sub, exp, iat, iss, jti}, signed with
// independent secrets so leaking one secret does not compromise the other
// token class.
type TokenCodec struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (c *TokenCodec) accessTTL() time.Duration {
	if c.AccessTTL > 0 {
		return c.AccessTTL
	}
	return DefaultAccessTokenTTL
}

func (c *TokenCodec) refreshTTL() time.Duration {
	if c.RefreshTTL > 0 {
		return c.RefreshTTL
	}
	return DefaultRefreshTokenTTL
}

// RefreshLifetime reports the effective refresh-token TTL, e.g. for setting
// cookie max-age at the transport layer.
func (c *TokenCodec) RefreshLifetime() time.Duration {
	return c.refreshTTL()
}

// MintAccess signs a new access token for the identity.
func (c *TokenCodec) MintAccess(identityID string, now time.Time) (string, error) {
	return c.mint(identityID, now, c.accessTTL(), c.AccessSecret)
}

// MintRefresh signs a new refresh token for the identity.
func (c *TokenCodec) MintRefresh(identityID string, now time.Time) (string, error) {
	return c.mint(identityID, now, c.refreshTTL(), c.RefreshSecret)
}

// VerifyAccess validates signature and expiry of an access token and returns
// the identity id it was minted for. Purely cryptographic, no store access.
func (c *TokenCodec) VerifyAccess(token string) (string, error) {
	return c.verify(token, c.AccessSecret)
}

// VerifyRefresh is VerifyAccess for the refresh secret. The store match that
// makes refresh tokens single-use lives in Manager, not here.
func (c *TokenCodec) VerifyRefresh(token string) (string, error) {
	return c.verify(token, c.RefreshSecret)
}

func (c *TokenCodec) mint(
	identityID string,
	now time.Time,
	ttl time.Duration,
	secret []byte,
) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    c.Issuer,
		Subject:   identityID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        idx.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// verify fails closed: any parse failure that is not specifically an expiry
// failure collapses to ErrInvalidToken, and a missing subject claim is
// treated as malformed even when the signature checks out.
func (c *TokenCodec) verify(token string, secret []byte) (string, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
