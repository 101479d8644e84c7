package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/vidora/vidora/internal/domain"
	"github.com/vidora/vidora/internal/store"
	"github.com/vidora/vidora/pkg/cryptox"
	"github.com/vidora/vidora/pkg/idx"
	"github.com/vidora/vidora/pkg/slogx"
)

const (
	// SignupChallengeTTL is how long a requested signup code stays redeemable.
	SignupChallengeTTL = 10 * time.Minute

	// signupCodePeriod is the TOTP step for signup codes. Email delivery is
	// slow, so the step is minutes rather than the authenticator-style 30s.
	signupCodePeriod = 300
	signupCodeSkew   = 1
)

var (
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	ErrInvalidSignupCode  = errors.New("account: invalid or expired signup code")
	ErrEmailTaken         = errors.New("account: email already registered")
)

// Service handles the account surface that feeds the session manager:
// OTP-gated signup and password login.
type Service struct {
	Store  store.Store
	Issuer string // issuer label baked into generated TOTP keys
}

var signupCodeOpts = totp.ValidateOpts{
	Period:    signupCodePeriod,
	Skew:      signupCodeSkew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// RequestSignupOTP creates (or replaces) a signup challenge for the email and
// returns the current code. Delivering the code to the user is the caller's
// concern; this service never sends mail.
func (s *Service) RequestSignupOTP(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	log := slogx.FromContext(ctx)

	if _, err := s.Store.Identities().FindByEmail(ctx, email); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: email,
		Period:      signupCodePeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("generate signup secret: %w", err)
	}

	ch := domain.SignupChallenge{
		ID:        idx.New().String(),
		Email:     email,
		Secret:    key.Secret(),
		ExpiresAt: time.Now().Add(SignupChallengeTTL),
	}
	if err := s.Store.SignupChallenges().Create(ctx, ch); err != nil {
		return "", fmt.Errorf("store signup challenge: %w", err)
	}

	code, err := totp.GenerateCodeCustom(key.Secret(), time.Now(), signupCodeOpts)
	if err != nil {
		return "", fmt.Errorf("generate signup code: %w", err)
	}

	log.Info("signup challenge created", slog.String("email", email))
	return code, nil
}

// CompleteSignup validates the challenge code and creates the identity. The
// challenge is consumed on success.
func (s *Service) CompleteSignup(
	ctx context.Context,
	email, code, password, displayName string,
) (domain.Identity, error) {
	email = normalizeEmail(email)
	log := slogx.FromContext(ctx)

	ch, err := s.Store.SignupChallenges().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrInvalidSignupCode
		}
		return domain.Identity{}, err
	}

	ok, err := totp.ValidateCustom(code, ch.Secret, time.Now(), signupCodeOpts)
	if err != nil || !ok {
		log.Info("signup code rejected", slog.String("email", email))
		return domain.Identity{}, ErrInvalidSignupCode
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	ident := domain.Identity{
		ID:           idx.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	}
	if err := s.Store.Identities().Create(ctx, ident); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Identity{}, ErrEmailTaken
		}
		return domain.Identity{}, err
	}

	// Best effort; an expired leftover gets swept anyway.
	if err := s.Store.SignupChallenges().Delete(ctx, ch.ID); err != nil {
		log.Warn("failed to delete consumed signup challenge", "err", err)
	}

	return ident, nil
}

// Login resolves an identity from credentials. Any failure, unknown email
// included, collapses to ErrInvalidCredentials so the endpoint doesn't leak
// which emails are registered.
func (s *Service) Login(ctx context.Context, email, password string) (domain.Identity, error) {
	email = normalizeEmail(email)

	ident, err := s.Store.Identities().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, err
	}

	if err := cryptox.VerifyPassword(password, ident.PasswordHash); err != nil {
		return domain.Identity{}, ErrInvalidCredentials
	}

	return ident, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
