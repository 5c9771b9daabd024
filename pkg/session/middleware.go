package session

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/account"
)

type contextKey string

const identityKey contextKey = "session.identity"

// IdentityFromContext returns the authenticated identity placed by
// RequireAuth, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}

// Verifier resolves an identity from a request. Both session services
// implement it.
type Verifier interface {
	Verify(ctx context.Context, r *http.Request) (*Identity, error)
}

// RequireAuth resolves the request identity through the web session first
// and the mobile session second, so one guard serves both channels. Any
// failure is a uniform 401; handlers downstream read the identity from the
// context.
func RequireAuth(verifiers ...Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, v := range verifiers {
				identity, err := v.Verify(r.Context(), r)
				if err == nil && identity != nil {
					ctx := context.WithValue(r.Context(), identityKey, identity)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			unauthenticated(w, r)
		})
	}
}

// RequireAdmin guards admin-only routes. It must be mounted inside
// RequireAuth. Authenticated non-admins get a distinct 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity == nil {
			unauthenticated(w, r)
			return
		}
		if identity.Role != account.RoleAdmin {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": "authentication required"})
}
