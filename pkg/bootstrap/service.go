// Package bootstrap implements the two-step creation of the single admin
// identity, coupled to TOTP enrollment. Both steps are reachable only
// while no admin account exists.
package bootstrap

import (
	"context"
	"log/slog"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/account"
	autherrors "github.com/alpgraphic/alpgraphics-sub003/pkg/errors"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/password"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/totp"
)

// ErrAlreadyConfigured is the deliberate, operationally necessary signal
// that an admin account already exists.
var ErrAlreadyConfigured = autherrors.New(autherrors.ErrCodeBootstrapConflict, "admin account already configured")

// InitResult carries the fresh secret and its provisioning URI (the QR
// payload). Nothing is persisted until Verify succeeds; the secret is
// never returned again after this step.
type InitResult struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// Service runs the admin bootstrap flow.
type Service struct {
	accounts account.Repository
	hasher   password.Hasher
}

// NewService creates a bootstrap service
func NewService(accounts account.Repository, hasher password.Hasher) *Service {
	return &Service{
		accounts: accounts,
		hasher:   hasher,
	}
}

// Init generates a TOTP secret bound to the given email. Concurrent inits
// are harmless: no account exists until a verify succeeds.
func (s *Service) Init(ctx context.Context, email string) (*InitResult, error) {
	if err := s.requireNoAdmin(ctx); err != nil {
		return nil, err
	}

	key, err := totp.GenerateSecret(email)
	if err != nil {
		return nil, autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to generate secret")
	}

	slog.Info("Admin bootstrap initialized", "email", email)
	return &InitResult{Secret: key.Secret, ProvisioningURI: key.URI}, nil
}

// Verify validates the password and the live passcode, then creates the
// admin with a single conditional write. The post-condition re-read
// resolves the race between concurrent bootstrap attempts: if the stored
// admin's email differs from the one submitted here, another attempt won
// and this one failed, even though its own write "succeeded" as a no-op.
func (s *Service) Verify(ctx context.Context, email, username, pass, secret, code string) (*account.Account, error) {
	if err := s.requireNoAdmin(ctx); err != nil {
		return nil, err
	}

	if res := password.Validate(pass, email); !res.Valid {
		return nil, autherrors.New(autherrors.ErrCodePasswordComplexity, "password does not meet requirements").
			WithDetail("errors", res.Errors).
			WithDetail("suggestions", res.Suggestions)
	}

	if !totp.Validate(secret, code) {
		return nil, autherrors.New(autherrors.ErrCode2FAInvalid, "invalid verification code")
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return nil, autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to hash password")
	}

	created, err := s.accounts.CreateAdminIfAbsent(ctx, account.CreateAccountRequest{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		TotpSecret:   secret,
		Role:         account.RoleAdmin,
	})
	if err != nil {
		return nil, autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to create admin account")
	}

	admin, err := s.accounts.FindAdmin(ctx)
	if err != nil {
		return nil, autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to confirm admin account")
	}

	if admin.Email != email {
		slog.Warn("Admin bootstrap race lost", "winner_email", admin.Email)
		return nil, ErrAlreadyConfigured
	}

	slog.Info("Admin account created", "account_id", admin.ID, "created_by_this_attempt", created)
	return admin, nil
}

func (s *Service) requireNoAdmin(ctx context.Context) error {
	count, err := s.accounts.CountAdmins(ctx)
	if err != nil {
		return autherrors.Wrap(err, autherrors.ErrCodeInternal, "failed to check admin accounts")
	}
	if count > 0 {
		return ErrAlreadyConfigured
	}
	return nil
}
