package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL account repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const accountColumns = `id, email, username, password_hash, totp_secret, role, created_at, updated_at`

// Create creates a new account
func (r *PostgresRepository) Create(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	query := `
		INSERT INTO accounts (email, username, password_hash, totp_secret, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountColumns

	account := &Account{}
	err := r.pool.QueryRow(ctx, query,
		req.Email,
		req.Username,
		req.PasswordHash,
		req.TotpSecret,
		req.Role,
	).Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&account.TotpSecret,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// GetByID retrieves an account by its ID
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// FindByUsernameOrEmail resolves a login identifier against both columns
func (r *PostgresRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE username = $1 OR email = $1
		LIMIT 1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, identifier))
}

// FindAdmin returns the single admin account if one exists
func (r *PostgresRepository) FindAdmin(ctx context.Context) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role = 'admin' LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, query))
}

// CreateAdminIfAbsent inserts the admin account with a single conditional
// write. The partial unique index on role='admin' makes two concurrent
// inserts collide; the loser's insert becomes a no-op.
func (r *PostgresRepository) CreateAdminIfAbsent(ctx context.Context, req CreateAccountRequest) (bool, error) {
	query := `
		INSERT INTO accounts (email, username, password_hash, totp_secret, role)
		VALUES ($1, $2, $3, $4, 'admin')
		ON CONFLICT (role) WHERE role = 'admin' DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		req.Email,
		req.Username,
		req.PasswordHash,
		req.TotpSecret,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create admin account: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// CountAdmins counts accounts with the admin role
func (r *PostgresRepository) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE role = 'admin'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count admin accounts: %w", err)
	}
	return count, nil
}

// UpdatePassword replaces the stored password hash
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&account.TotpSecret,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}
