package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vidora/vidora/internal/account"
	"github.com/vidora/vidora/internal/session"
	"github.com/vidora/vidora/internal/store"
	"github.com/vidora/vidora/pkg/httpx"
	"github.com/vidora/vidora/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	Sessions *session.Manager
	Accounts *account.Service

	// DeliverSignupCode is handed to the signup handler; nil means codes are
	// only logged.
	DeliverSignupCode func(email, code string)
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.registerSignup()
	r.registerSessions()
	r.registerSystem()
}

func (r *Router) registerSignup() {
	h := &SignupHandler{
		Accounts:    r.Accounts,
		Sessions:    r.Sessions,
		DeliverCode: r.DeliverSignupCode,
	}

	// Both endpoints are unauthenticated and credential-adjacent, so they get
	// the strict per-IP limit.
	r.Mux.Handle("POST /v1/signup/otp",
		httpx.Chain(http.HandlerFunc(h.HandleRequestOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/signup",
		httpx.Chain(http.HandlerFunc(h.HandleComplete),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionHandler{Accounts: r.Accounts, Sessions: r.Sessions}

	// POST /v1/session - login, strict rate limit (authentication attempts)
	r.Mux.Handle("POST /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/session/refresh - moderate limit; a well-behaved client only
	// refreshes when its access token runs out
	r.Mux.Handle("POST /v1/session/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// DELETE /v1/session - logout, requires a valid access token
	r.Mux.Handle("DELETE /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.AuthnMiddleware(r.Sessions),
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)

	// GET /v1/me - authenticated profile lookup
	me := &MeHandler{Store: r.store}
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(me,
			httpx.AuthnMiddleware(r.Sessions),
			httpx.RateLimitByIdentity(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
