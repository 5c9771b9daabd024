package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAccountNotFound is returned when no account matches the lookup.
var ErrAccountNotFound = errors.New("account not found")

// Repository defines storage operations for accounts. Session rows are
// owned elsewhere; this store only supplies the identity being bound.
type Repository interface {
	Create(ctx context.Context, req CreateAccountRequest) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// FindByUsernameOrEmail resolves a login identifier against both the
	// username and email columns.
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*Account, error)
	FindAdmin(ctx context.Context) (*Account, error)
	// CreateAdminIfAbsent atomically inserts the admin account only if no
	// admin exists yet. It must be a single conditional write, not a
	// check-then-insert. Returns true if the insert took effect.
	CreateAdminIfAbsent(ctx context.Context, req CreateAccountRequest) (bool, error)
	CountAdmins(ctx context.Context) (int, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
