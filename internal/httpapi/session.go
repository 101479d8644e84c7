package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vidora/vidora/internal/account"
	"github.com/vidora/vidora/internal/domain"
	"github.com/vidora/vidora/internal/session"
	"github.com/vidora/vidora/pkg/httpx"
	"github.com/vidora/vidora/pkg/slogx"
)

// RefreshCookieName is the HttpOnly cookie the refresh token travels in for
// browser clients. Mobile clients send it in the JSON body instead; the
// refresh endpoint accepts either.
const RefreshCookieName = "vidora_refresh"

// TokenResponse is the JSON body returned by login, signup, and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// SessionHandler serves login, refresh, and logout.
type SessionHandler struct {
	Accounts *account.Service
	Sessions *session.Manager
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ident, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email or password incorrect")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	pair, err := h.Sessions.IssueSession(ctx, ident)
	if err != nil {
		log.Error("session issue failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeTokenPair(w, pair, h.Sessions.Codec.RefreshLifetime())
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	presented := refreshTokenFromRequest(r)
	if presented == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh token required")
		return
	}

	pair, err := h.Sessions.RefreshSession(ctx, presented)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidToken),
			errors.Is(err, session.ErrExpiredToken),
			errors.Is(err, session.ErrTokenMismatch),
			errors.Is(err, session.ErrIdentityNotFound):
			// All four mean the same thing to the client: log in again.
			log.Info("refresh rejected", "reason", err)
			clearRefreshCookie(w)
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_grant", "refresh token not accepted")
		default:
			log.Error("refresh failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	writeTokenPair(w, pair, h.Sessions.Codec.RefreshLifetime())
}

func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	identityID := httpx.IdentityIDFromCtx(ctx)

	if err := h.Sessions.RevokeSession(ctx, identityID); err != nil {
		if !errors.Is(err, session.ErrIdentityNotFound) {
			log.Error("logout failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		// Identity deleted mid-session; nothing left to revoke.
	}

	clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// refreshTokenFromRequest prefers the JSON body and falls back to the cookie.
func refreshTokenFromRequest(r *http.Request) string {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}

	if c, err := r.Cookie(RefreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

func writeTokenPair(w http.ResponseWriter, pair domain.TokenPair, refreshTTL time.Duration) {
	setRefreshCookie(w, pair.RefreshToken, refreshTTL)
	httpx.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}

func setRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/v1/session",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/v1/session",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
