package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/config"
	autherrors "github.com/alpgraphic/alpgraphics-sub003/pkg/errors"
)

// Config holds the session lifetime knobs shared by both channels.
type Config struct {
	WebLifetime           time.Duration
	InactivityTimeout     time.Duration
	MobileAccessLifetime  time.Duration
	MobileRefreshLifetime time.Duration
}

// DefaultConfig returns the standard lifetimes: 7-day web sessions with a
// 2-hour inactivity timeout, 15-minute access tokens, 7-day refresh tokens.
func DefaultConfig() Config {
	return Config{
		WebLifetime:           7 * 24 * time.Hour,
		InactivityTimeout:     2 * time.Hour,
		MobileAccessLifetime:  15 * time.Minute,
		MobileRefreshLifetime: 7 * 24 * time.Hour,
	}
}

// ConfigFromEnv converts the env-loaded settings into a session Config.
func ConfigFromEnv(cfg config.SessionConfig) Config {
	return Config{
		WebLifetime:           cfg.WebLifetime,
		InactivityTimeout:     cfg.InactivityTimeout,
		MobileAccessLifetime:  cfg.MobileAccessLifetime,
		MobileRefreshLifetime: cfg.MobileRefreshLifetime,
	}
}

// ErrUnauthenticated is the uniform rejection for every verification
// failure. The reason is logged, never returned, so responses do not leak
// which check failed.
var ErrUnauthenticated = autherrors.New(autherrors.ErrCodeUnauthenticated, "authentication required")

// Service manages cookie-bound web sessions.
type Service struct {
	repo    Repository
	cookies *CookieManager
	cfg     Config
	now     func() time.Time
}

// NewService creates a web session service
func NewService(repo Repository, cookies *CookieManager, cfg Config) *Service {
	return &Service{
		repo:    repo,
		cookies: cookies,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Create mints a web session for the identity, stores it and sets the
// session cookies. Returns the opaque token.
func (s *Service) Create(ctx context.Context, w http.ResponseWriter, identity Identity, ip, userAgent string) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	sess := Session{
		Token:          token,
		AccountID:      identity.AccountID,
		Email:          identity.Email,
		Role:           identity.Role,
		Channel:        ChannelWeb,
		IPAddress:      ip,
		UserAgent:      userAgent,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.WebLifetime),
		LastActivityAt: now,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}

	if w != nil {
		s.cookies.SetWebSession(w, token, string(identity.Role), sess.ExpiresAt)
	}

	slog.Info("Web session created", "account_id", identity.AccountID, "role", identity.Role)
	return token, nil
}

// Verify resolves the identity bound to the request's session cookies.
// Malformed tokens are rejected before any datastore lookup; stale rows
// are deleted on read; a role cookie disagreeing with the stored role is
// treated as tampering and destroys the session.
func (s *Service) Verify(ctx context.Context, r *http.Request) (*Identity, error) {
	tokenCookie, err := r.Cookie(WebTokenCookie)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	cookieRole := ""
	if roleCookie, err := r.Cookie(WebRoleCookie); err == nil {
		cookieRole = roleCookie.Value
	}

	return s.verifyToken(ctx, tokenCookie.Value, cookieRole)
}

// VerifyToken checks a raw token (plus the role cookie value, empty if
// absent) and returns the bound identity.
func (s *Service) verifyToken(ctx context.Context, token, cookieRole string) (*Identity, error) {
	if !ValidTokenFormat(token) {
		return nil, ErrUnauthenticated
	}

	sess, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if err != ErrSessionNotFound {
			slog.Error("Session lookup failed", "error", err)
		}
		return nil, ErrUnauthenticated
	}

	now := s.now()
	if !s.valid(sess, now) {
		// Lazy GC: delete the stale row before reporting unauthenticated.
		if err := s.repo.Delete(ctx, token); err != nil {
			slog.Error("Failed to delete stale session", "error", err)
		}
		return nil, ErrUnauthenticated
	}

	if cookieRole != "" && cookieRole != string(sess.Role) {
		// Role cookie tampering: destroy the session outright.
		slog.Warn("Session role cookie mismatch, destroying session",
			"account_id", sess.AccountID, "cookie_role", cookieRole, "stored_role", sess.Role)
		if err := s.repo.Delete(ctx, token); err != nil {
			slog.Error("Failed to delete tampered session", "error", err)
		}
		return nil, ErrUnauthenticated
	}

	if err := s.repo.UpdateActivity(ctx, token, now); err != nil {
		slog.Error("Failed to refresh session activity", "error", err)
		return nil, ErrUnauthenticated
	}

	return &Identity{
		AccountID: sess.AccountID,
		Email:     sess.Email,
		Role:      sess.Role,
	}, nil
}

func (s *Service) valid(sess *Session, now time.Time) bool {
	if !now.Before(sess.ExpiresAt) {
		return false
	}
	if sess.SubjectToInactivity() && now.Sub(sess.LastActivityAt) >= s.cfg.InactivityTimeout {
		return false
	}
	return true
}

// Destroy deletes the current session row and clears the cookies.
func (s *Service) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if tokenCookie, err := r.Cookie(WebTokenCookie); err == nil && ValidTokenFormat(tokenCookie.Value) {
		if err := s.repo.Delete(ctx, tokenCookie.Value); err != nil {
			return err
		}
	}
	if w != nil {
		s.cookies.ClearWebSession(w)
	}
	return nil
}

// DestroyAllForAccount force-logs-out every session bound to the account,
// across both channels. Used on password change and account deletion.
func (s *Service) DestroyAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	return s.repo.DeleteByAccount(ctx, accountID)
}

// ListForAccount returns the live sessions bound to an account.
func (s *Service) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]Session, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

// CleanupExpired sweeps rows past absolute or inactivity expiry. The sweep
// is idempotent and safe to run concurrently with live traffic: a
// concurrent verification rewrites last_activity_at to its own now, which
// only moves the row further from any stale cutoff.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now(), s.cfg.InactivityTimeout)
}
