package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage.
// Intended for tests and local development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]Account
}

// NewInMemoryRepository creates a new in-memory account repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts: make(map[uuid.UUID]Account),
	}
}

// Create creates a new account
func (r *InMemoryRepository) Create(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account := r.newAccount(req)
	r.accounts[account.ID] = account
	return &account, nil
}

// GetByID retrieves an account by its ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

// FindByUsernameOrEmail resolves a login identifier against both fields
func (r *InMemoryRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if identifier == "" {
		return nil, ErrAccountNotFound
	}
	for _, account := range r.accounts {
		if account.Username == identifier || account.Email == identifier {
			a := account
			return &a, nil
		}
	}
	return nil, ErrAccountNotFound
}

// FindAdmin returns the single admin account if one exists
func (r *InMemoryRepository) FindAdmin(ctx context.Context) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.Role == RoleAdmin {
			a := account
			return &a, nil
		}
	}
	return nil, ErrAccountNotFound
}

// CreateAdminIfAbsent inserts the admin account only if none exists.
// The single mutex makes the check-and-insert atomic, mirroring the
// conditional-write semantics of the SQL implementation.
func (r *InMemoryRepository) CreateAdminIfAbsent(ctx context.Context, req CreateAccountRequest) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if account.Role == RoleAdmin {
			return false, nil
		}
	}

	req.Role = RoleAdmin
	account := r.newAccount(req)
	r.accounts[account.ID] = account
	return true, nil
}

// CountAdmins counts accounts with the admin role
func (r *InMemoryRepository) CountAdmins(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, account := range r.accounts {
		if account.Role == RoleAdmin {
			count++
		}
	}
	return count, nil
}

// UpdatePassword replaces the stored password hash
func (r *InMemoryRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = time.Now()
	r.accounts[id] = account
	return nil
}

func (r *InMemoryRepository) newAccount(req CreateAccountRequest) Account {
	now := time.Now()
	return Account{
		ID:           uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: req.PasswordHash,
		TotpSecret:   req.TotpSecret,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
