package httpx

import "context"

type ctxKey string

const (
	// CtxKeyIdentityID holds the authenticated identity's id (JWT subject).
	CtxKeyIdentityID ctxKey = "identity_id"
)

// IdentityIDFromCtx returns the authenticated identity id, or "" if the
// request did not pass through AuthnMiddleware.
func IdentityIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyIdentityID).(string); ok {
		return v
	}
	return ""
}
