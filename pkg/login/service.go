package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/account"
	autherrors "github.com/alpgraphic/alpgraphics-sub003/pkg/errors"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/password"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/session"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/totp"
)

// ErrInvalidCredentials is the single rejection for unknown identifier and
// wrong password alike, so responses cannot be used to probe which
// accounts exist.
var ErrInvalidCredentials = autherrors.New(autherrors.ErrCodeInvalidCredentials, "invalid username or password")

// Result is the outcome of a login step. When Requires2FA is set no
// session has been minted yet; the caller must complete the TOTP step.
type Result struct {
	Requires2FA  bool               `json:"requires_2fa,omitempty"`
	Identity     *session.Identity  `json:"identity,omitempty"`
	SessionToken string             `json:"-"`
	MobileTokens *session.TokenPair `json:"mobile_tokens,omitempty"`
}

// Service implements credential verification and login-time 2FA.
type Service struct {
	accounts account.Repository
	hasher   password.Hasher
	web      *session.Service
	mobile   *session.MobileService
}

// NewService creates a login service
func NewService(accounts account.Repository, hasher password.Hasher, web *session.Service, mobile *session.MobileService) *Service {
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		web:      web,
		mobile:   mobile,
	}
}

// Login verifies credentials. Admin accounts with TOTP enrolled get
// Requires2FA instead of a session; other accounts get a web session plus
// a mobile token pair.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, identifier, pass, ip, userAgent string) (*Result, error) {
	acct, err := s.accounts.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			// Burn a comparable bcrypt comparison so the response time does
			// not reveal whether the account exists.
			_, _ = s.hasher.Verify(pass, password.DummyHash)
			return nil, ErrInvalidCredentials
		}
		slog.Error("Account lookup failed during login", "error", err)
		return nil, autherrors.Wrap(err, autherrors.ErrCodeInternal, "login failed")
	}

	ok, err := s.hasher.Verify(pass, acct.PasswordHash)
	if err != nil {
		slog.Error("Password verification failed", "error", err)
		return nil, autherrors.Wrap(err, autherrors.ErrCodeInternal, "login failed")
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if acct.Role == account.RoleAdmin && acct.TotpSecret != "" {
		slog.Info("Login requires 2FA", "account_id", acct.ID)
		return &Result{Requires2FA: true}, nil
	}

	return s.mintSessions(ctx, w, acct, ip, userAgent)
}

// VerifyTotp completes an admin login with a six digit passcode. Success
// mints a web session and a mobile pair in one step, so the same login
// unlocks both channels.
func (s *Service) VerifyTotp(ctx context.Context, w http.ResponseWriter, identifier, code, ip, userAgent string) (*Result, error) {
	acct, err := s.accounts.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		slog.Error("Account lookup failed during 2FA", "error", err)
		return nil, autherrors.Wrap(err, autherrors.ErrCodeInternal, "verification failed")
	}

	if acct.Role != account.RoleAdmin || acct.TotpSecret == "" {
		return nil, ErrInvalidCredentials
	}

	if !totp.Validate(acct.TotpSecret, code) {
		slog.Warn("Invalid TOTP passcode", "account_id", acct.ID)
		return nil, autherrors.New(autherrors.ErrCode2FAInvalid, "invalid verification code")
	}

	return s.mintSessions(ctx, w, acct, ip, userAgent)
}

func (s *Service) mintSessions(ctx context.Context, w http.ResponseWriter, acct *account.Account, ip, userAgent string) (*Result, error) {
	identity := session.Identity{
		AccountID: acct.ID,
		Email:     acct.Email,
		Role:      acct.Role,
	}

	token, err := s.web.Create(ctx, w, identity, ip, userAgent)
	if err != nil {
		return nil, autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to create session")
	}

	pair, err := s.mobile.Create(ctx, w, identity)
	if err != nil {
		return nil, autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to create mobile session")
	}

	return &Result{
		Identity:     &identity,
		SessionToken: token,
		MobileTokens: pair,
	}, nil
}

// ChangePassword verifies the current password, applies the policy to the
// new one, rehashes, and force-logs-out every session for the account.
func (s *Service) ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string) error {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to load account")
	}

	ok, err := s.hasher.Verify(currentPassword, acct.PasswordHash)
	if err != nil {
		return autherrors.Wrap(err, autherrors.ErrCodeInternal, "password verification failed")
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if res := password.Validate(newPassword, acct.Email); !res.Valid {
		return autherrors.New(autherrors.ErrCodePasswordComplexity, "password does not meet requirements").
			WithDetail("errors", res.Errors).
			WithDetail("suggestions", res.Suggestions)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to hash password")
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		return autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to update password")
	}

	// Cascade: a changed password invalidates every live session.
	if err := s.web.DestroyAllForAccount(ctx, accountID); err != nil {
		slog.Error("Failed to destroy sessions after password change", "account_id", accountID, "error", err)
		return autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to invalidate sessions")
	}

	slog.Info("Password changed, sessions invalidated", "account_id", accountID)
	return nil
}
