package session

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/account"
)

// MobileService manages bearer-token pairs for native apps, with a cookie
// fallback transport for web-embedded mobile contexts.
type MobileService struct {
	repo    Repository
	cookies *CookieManager
	cfg     Config
	now     func() time.Time
}

// NewMobileService creates a mobile session service
func NewMobileService(repo Repository, cookies *CookieManager, cfg Config) *MobileService {
	return &MobileService{
		repo:    repo,
		cookies: cookies,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Create mints an access/refresh token pair as two independent rows. When
// a response writer is given, the pair is also set as fallback cookies;
// clientID is included for client-role sessions only.
func (m *MobileService) Create(ctx context.Context, w http.ResponseWriter, identity Identity) (*TokenPair, error) {
	accessToken, err := NewToken()
	if err != nil {
		return nil, err
	}
	refreshToken, err := NewToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	access := Session{
		Token:          accessToken,
		AccountID:      identity.AccountID,
		Email:          identity.Email,
		Role:           identity.Role,
		Channel:        ChannelMobile,
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.cfg.MobileAccessLifetime),
		LastActivityAt: now,
	}
	refresh := Session{
		Token:          refreshToken,
		AccountID:      identity.AccountID,
		Email:          identity.Email,
		Role:           identity.Role,
		Channel:        ChannelMobileRefresh,
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.cfg.MobileRefreshLifetime),
		LastActivityAt: now,
	}

	if err := m.repo.Create(ctx, access); err != nil {
		return nil, err
	}
	if err := m.repo.Create(ctx, refresh); err != nil {
		return nil, err
	}

	pair := &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}

	if w != nil {
		clientID := ""
		if identity.Role == account.RoleClient {
			clientID = identity.AccountID.String()
		}
		m.cookies.SetMobileTokens(w, pair, string(identity.Role), clientID, access.ExpiresAt, refresh.ExpiresAt)
	}

	slog.Info("Mobile session created", "account_id", identity.AccountID, "role", identity.Role)
	return pair, nil
}

// Verify resolves the identity carried by the request: Authorization
// bearer header first (native path), mobile cookies second (embedded
// path). Cookie-borne identities must also pass the role cookie check.
func (m *MobileService) Verify(ctx context.Context, r *http.Request) (*Identity, error) {
	token, fromCookie := resolveToken(r, MobileAccessCookie)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	cookieRole := ""
	if fromCookie {
		if roleCookie, err := r.Cookie(MobileRoleCookie); err == nil {
			cookieRole = roleCookie.Value
		}
	}

	return m.verifyToken(ctx, token, cookieRole)
}

func (m *MobileService) verifyToken(ctx context.Context, token, cookieRole string) (*Identity, error) {
	if !ValidTokenFormat(token) {
		return nil, ErrUnauthenticated
	}

	// Access and refresh tokens share one collection; the lookup does not
	// care which kind this is.
	sess, err := m.repo.GetByToken(ctx, token)
	if err != nil {
		if err != ErrSessionNotFound {
			slog.Error("Mobile session lookup failed", "error", err)
		}
		return nil, ErrUnauthenticated
	}

	now := m.now()
	if !m.valid(sess, now) {
		if err := m.repo.Delete(ctx, token); err != nil {
			slog.Error("Failed to delete stale mobile session", "error", err)
		}
		return nil, ErrUnauthenticated
	}

	// The role cookie is never the source of truth; it must agree with the
	// stored role or the cookie has been tampered with independent of the
	// bearer token.
	if cookieRole != "" && cookieRole != string(sess.Role) {
		slog.Warn("Mobile role cookie mismatch", "account_id", sess.AccountID,
			"cookie_role", cookieRole, "stored_role", sess.Role)
		return nil, ErrUnauthenticated
	}

	if err := m.repo.UpdateActivity(ctx, token, now); err != nil {
		slog.Error("Failed to refresh mobile session activity", "error", err)
		return nil, ErrUnauthenticated
	}

	return &Identity{
		AccountID: sess.AccountID,
		Email:     sess.Email,
		Role:      sess.Role,
	}, nil
}

func (m *MobileService) valid(sess *Session, now time.Time) bool {
	if !now.Before(sess.ExpiresAt) {
		return false
	}
	if sess.SubjectToInactivity() && now.Sub(sess.LastActivityAt) >= m.cfg.InactivityTimeout {
		return false
	}
	return true
}

// Refresh validates the refresh token and mints a brand-new access row.
// Old access tokens are not invalidated; they age out on their own. The
// refresh token's own expiry is untouched.
func (m *MobileService) Refresh(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, *Identity, error) {
	token, _ := resolveToken(r, MobileRefreshCookie)
	if !ValidTokenFormat(token) {
		return "", nil, ErrUnauthenticated
	}

	sess, err := m.repo.GetByToken(ctx, token)
	if err != nil {
		if err != ErrSessionNotFound {
			slog.Error("Refresh token lookup failed", "error", err)
		}
		return "", nil, ErrUnauthenticated
	}

	now := m.now()
	if sess.Channel != ChannelMobileRefresh || !now.Before(sess.ExpiresAt) {
		if !now.Before(sess.ExpiresAt) {
			if err := m.repo.Delete(ctx, token); err != nil {
				slog.Error("Failed to delete expired refresh token", "error", err)
			}
		}
		return "", nil, ErrUnauthenticated
	}

	accessToken, err := NewToken()
	if err != nil {
		return "", nil, err
	}

	access := Session{
		Token:          accessToken,
		AccountID:      sess.AccountID,
		Email:          sess.Email,
		Role:           sess.Role,
		Channel:        ChannelMobile,
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.cfg.MobileAccessLifetime),
		LastActivityAt: now,
	}
	if err := m.repo.Create(ctx, access); err != nil {
		return "", nil, err
	}

	if w != nil {
		m.cookies.SetMobileAccessToken(w, accessToken, access.ExpiresAt)
	}

	identity := &Identity{AccountID: sess.AccountID, Email: sess.Email, Role: sess.Role}
	slog.Info("Mobile access token refreshed", "account_id", sess.AccountID)
	return accessToken, identity, nil
}

// Destroy deletes every token resolvable from the request (bearer header
// plus access and refresh cookies) and clears all mobile cookies.
func (m *MobileService) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	seen := make(map[string]bool)
	candidates := []string{bearerToken(r)}
	if c, err := r.Cookie(MobileAccessCookie); err == nil {
		candidates = append(candidates, c.Value)
	}
	if c, err := r.Cookie(MobileRefreshCookie); err == nil {
		candidates = append(candidates, c.Value)
	}

	for _, token := range candidates {
		if token == "" || seen[token] || !ValidTokenFormat(token) {
			continue
		}
		seen[token] = true
		if err := m.repo.Delete(ctx, token); err != nil {
			return err
		}
	}

	if w != nil {
		m.cookies.ClearMobileTokens(w)
	}
	return nil
}

// CleanupExpired sweeps stale mobile rows together with web rows; both
// channels share the repository, so this delegates to the same sweep.
func (m *MobileService) CleanupExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.now(), m.cfg.InactivityTimeout)
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// resolveToken implements the header-first, cookie-fallback transport
// resolution. It reports whether the token came from a cookie.
func resolveToken(r *http.Request, cookieName string) (token string, fromCookie bool) {
	if t := bearerToken(r); t != "" {
		return t, false
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value, true
	}
	return "", false
}
