package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	bootstrapapi "github.com/alpgraphic/alpgraphics-sub003/pkg/bootstrap/api"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/csrf"
	loginapi "github.com/alpgraphic/alpgraphics-sub003/pkg/login/api"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/ratelimit"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/session"
	sessionapi "github.com/alpgraphic/alpgraphics-sub003/pkg/session/api"
)

// Config carries the handlers and middleware the router composes.
type Config struct {
	LoginHandle     *loginapi.Handle
	BootstrapHandle *bootstrapapi.Handle
	SessionHandle   *sessionapi.Handle

	WebSessions    *session.Service
	MobileSessions *session.MobileService

	Limiter        *ratelimit.Limiter
	IncludeHeaders bool
	CSRFGuard      *csrf.Guard
}

// New builds the HTTP surface. Middleware order matters: rate limiting
// runs before the CSRF guard so abusive traffic is counted and rejected
// before any origin checks, and session resolution happens last.
func New(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health stays outside the CSRF guard and uses the most permissive tier.
	r.Group(func(r chi.Router) {
		r.Use(cfg.Limiter.Middleware(ratelimit.TierPublic, cfg.IncludeHeaders))
		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			render.JSON(w, req, map[string]string{"status": "ok"})
		})
	})

	// Credential-bearing endpoints: strictest tier, CSRF-guarded.
	r.Group(func(r chi.Router) {
		r.Use(cfg.Limiter.Middleware(ratelimit.TierAuth, cfg.IncludeHeaders))
		r.Use(cfg.CSRFGuard.Middleware)
		r.Route("/auth", cfg.LoginHandle.Routes)
		r.Route("/bootstrap", cfg.BootstrapHandle.Routes)
	})

	// Mobile token endpoints: bearer-token based, exempt from CSRF by
	// path prefix, still on the auth tier.
	r.Group(func(r chi.Router) {
		r.Use(cfg.Limiter.Middleware(ratelimit.TierAuth, cfg.IncludeHeaders))
		r.Use(cfg.CSRFGuard.Middleware)
		r.Route("/api/mobile", cfg.SessionHandle.MobileRoutes)
	})

	// Authenticated API surface.
	r.Group(func(r chi.Router) {
		r.Use(cfg.Limiter.Middleware(ratelimit.TierAPI, cfg.IncludeHeaders))
		r.Use(cfg.CSRFGuard.Middleware)
		r.Use(session.RequireAuth(cfg.WebSessions, cfg.MobileSessions))
		r.Route("/api", func(r chi.Router) {
			cfg.SessionHandle.ProtectedRoutes(r)
			cfg.LoginHandle.ProtectedRoutes(r)
		})
	})

	return r
}
