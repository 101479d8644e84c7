package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/vidora/vidora/internal/store"
	"github.com/vidora/vidora/pkg/httpx"
	"github.com/vidora/vidora/pkg/slogx"
)

// MeHandler returns the authenticated identity's profile.
type MeHandler struct {
	Store store.Store
}

type meResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	identityID := httpx.IdentityIDFromCtx(ctx)

	ident, err := h.Store.Identities().FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Token verified but the account is gone.
			httpx.WriteError(w, http.StatusUnauthorized, "unknown_identity", "account no longer exists")
			return
		}
		log.Error("profile lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		ID:          ident.ID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		CreatedAt:   ident.CreatedAt,
	})
}
