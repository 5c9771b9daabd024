// Package csrf guards state-changing cookie-authenticated requests with a
// same-origin check and a double-submit token check.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	// TokenCookie is httpOnly; ClientTokenCookie is the JS-readable mirror
	// a frontend copies into the request header.
	TokenCookie       = "csrf_token"
	ClientTokenCookie = "csrf_token_client"
	TokenHeader       = "x-csrf-token"
)

// Guard validates state-changing requests. Bearer-token routes are exempt:
// they carry no ambient cookie credentials to forge.
type Guard struct {
	exemptPrefixes []string
	production     bool
	cookieSecure   bool
}

// NewGuard creates a CSRF guard. In production the total absence of both
// Origin and Referer is a hard reject.
func NewGuard(exemptPrefixes []string, production, cookieSecure bool) *Guard {
	return &Guard{
		exemptPrefixes: exemptPrefixes,
		production:     production,
		cookieSecure:   cookieSecure,
	}
}

// Middleware enforces both checks on POST/PUT/PATCH/DELETE requests to
// non-exempt paths.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !stateChanging(r.Method) || g.exempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if !g.sameOrigin(r) {
			reject(w, r, "origin mismatch")
			return
		}

		if !tokensMatch(r) {
			reject(w, r, "csrf token mismatch")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// IssueToken mints a CSRF token and sets the cookie pair. Call on any
// response that precedes a state-changing form or fetch.
func (g *Guard) IssueToken(w http.ResponseWriter) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	token := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Path:     "/",
		Value:    token,
		HttpOnly: true,
		Secure:   g.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     ClientTokenCookie,
		Path:     "/",
		Value:    token,
		HttpOnly: false,
		Secure:   g.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return token, nil
}

func stateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (g *Guard) exempt(path string) bool {
	for _, prefix := range g.exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// sameOrigin compares the Origin header's host, falling back to Referer,
// against the request Host.
func (g *Guard) sameOrigin(r *http.Request) bool {
	source := r.Header.Get("Origin")
	if source == "" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		// Non-browser clients omit both; only production treats that as
		// hostile.
		return !g.production
	}

	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Host == r.Host
}

// tokensMatch runs the double-submit check in constant time.
func tokensMatch(r *http.Request) bool {
	header := r.Header.Get(TokenHeader)
	cookie, err := r.Cookie(TokenCookie)
	if err != nil || header == "" || cookie.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) == 1
}

func reject(w http.ResponseWriter, r *http.Request, reason string) {
	slog.Warn("CSRF check failed", "reason", reason, "path", r.URL.Path, "method", r.Method)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprint(w, `{"error":"invalid request origin"}`)
}
