package account

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role snapshot carried by accounts and sessions.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// Account is an identity record. PasswordHash is a bcrypt hash, never
// plaintext. TotpSecret is set only for the admin account, during
// bootstrap, and never rotated here.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email,omitempty"`
	Username     string    `json:"username,omitempty"`
	PasswordHash string    `json:"-"`
	TotpSecret   string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateAccountRequest carries the fields needed to persist a new account.
type CreateAccountRequest struct {
	Email        string
	Username     string
	PasswordHash string
	TotpSecret   string
	Role         Role
}
