package session

import (
	"net/http"
	"time"
)

// Cookie names used as the web transport and the mobile fallback transport.
const (
	WebTokenCookie = "session_token"
	WebRoleCookie  = "user_role"

	MobileAccessCookie   = "mobile_access_token"
	MobileRefreshCookie  = "mobile_refresh_token"
	MobileRoleCookie     = "mobile_role"
	MobileClientIDCookie = "mobile_client_id"
)

// CookieManager sets and clears the session cookies with consistent flags.
type CookieManager struct {
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// NewCookieManager creates a cookie manager. Secure should be true in
// production.
func NewCookieManager(httpOnly, secure bool) *CookieManager {
	return &CookieManager{
		HTTPOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c *CookieManager) set(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     "/",
		Value:    value,
		Expires:  expires,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func (c *CookieManager) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     "/",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// SetWebSession sets the session token and role cookies.
func (c *CookieManager) SetWebSession(w http.ResponseWriter, token string, role string, expires time.Time) {
	c.set(w, WebTokenCookie, token, expires)
	c.set(w, WebRoleCookie, role, expires)
}

// ClearWebSession clears the web session cookies.
func (c *CookieManager) ClearWebSession(w http.ResponseWriter) {
	c.clear(w, WebTokenCookie)
	c.clear(w, WebRoleCookie)
}

// SetMobileTokens sets the fallback-transport cookies for a mobile token
// pair. clientID is only set for client-role sessions.
func (c *CookieManager) SetMobileTokens(w http.ResponseWriter, pair *TokenPair, role string, clientID string, accessExpires, refreshExpires time.Time) {
	c.set(w, MobileAccessCookie, pair.AccessToken, accessExpires)
	c.set(w, MobileRefreshCookie, pair.RefreshToken, refreshExpires)
	c.set(w, MobileRoleCookie, role, refreshExpires)
	if clientID != "" {
		c.set(w, MobileClientIDCookie, clientID, refreshExpires)
	}
}

// SetMobileAccessToken refreshes only the access-token cookie.
func (c *CookieManager) SetMobileAccessToken(w http.ResponseWriter, token string, expires time.Time) {
	c.set(w, MobileAccessCookie, token, expires)
}

// ClearMobileTokens clears all four mobile cookies.
func (c *CookieManager) ClearMobileTokens(w http.ResponseWriter) {
	c.clear(w, MobileAccessCookie)
	c.clear(w, MobileRefreshCookie)
	c.clear(w, MobileRoleCookie)
	c.clear(w, MobileClientIDCookie)
}
