package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidora/vidora/internal/account"
	"github.com/vidora/vidora/internal/session"
	"github.com/vidora/vidora/pkg/httpx"
	"github.com/vidora/vidora/pkg/slogx"
)

// SignupHandler serves the two-step OTP-gated signup flow.
type SignupHandler struct {
	Accounts *account.Service
	Sessions *session.Manager

	// DeliverCode hands the generated OTP off for delivery (mail relay or
	// similar). When nil the code is only logged, which is what dev runs use.
	DeliverCode func(email, code string)
}

type signupOTPRequest struct {
	Email string `json:"email"`
}

func (h *SignupHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signupOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	code, err := h.Accounts.RequestSignupOTP(ctx, req.Email)
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			httpx.WriteError(w, http.StatusConflict, "email_taken", "email already registered")
			return
		}
		log.Error("signup otp request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	if h.DeliverCode != nil {
		h.DeliverCode(req.Email, code)
	} else {
		log.Info("signup code generated (no delivery configured)", "email", req.Email, "code", code)
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "challenge_created"})
}

type signupRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (h *SignupHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Email == "" || req.Code == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email, code and password are required")
		return
	}

	ident, err := h.Accounts.CompleteSignup(ctx, req.Email, req.Code, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidSignupCode):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "signup code invalid or expired")
		case errors.Is(err, account.ErrEmailTaken):
			httpx.WriteError(w, http.StatusConflict, "email_taken", "email already registered")
		default:
			log.Error("signup failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	// Signing up logs you in, same as the apps expect.
	pair, err := h.Sessions.IssueSession(ctx, ident)
	if err != nil {
		log.Error("post-signup session issue failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	setRefreshCookie(w, pair.RefreshToken, h.Sessions.Codec.RefreshLifetime())
	httpx.WriteJSON(w, http.StatusCreated, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}
