package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher abstracts password hashing so services can be tested with a
// cheaper implementation.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hashedPassword string) (bool, error)
}

// BcryptHasher implements Hasher with bcrypt at the default cost.
type BcryptHasher struct{}

// Hash implements Hasher.Hash
func (h BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// Verify implements Hasher.Verify
func (h BcryptHasher) Verify(password, hashedPassword string) (bool, error) {
	if password == "" || hashedPassword == "" {
		return false, errors.New("password and hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil // Password doesn't match, but not an error
		}
		return false, err
	}

	return true, nil
}

// DummyHash is a valid bcrypt hash of a random throwaway value. Login runs
// a comparison against it when no account matches, so the response time
// does not reveal whether the account exists.
const DummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
