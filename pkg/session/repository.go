package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when no session row matches the token.
var ErrSessionNotFound = errors.New("session not found")

// Repository persists session rows for both channels. Correctness relies
// on the datastore's atomic single-row operations; there is no in-process
// locking above this interface.
type Repository interface {
	Create(ctx context.Context, session Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	// UpdateActivity rewrites last_activity_at; last-write-wins between
	// concurrent verifications is acceptable.
	UpdateActivity(ctx context.Context, token string, at time.Time) error
	Delete(ctx context.Context, token string) error
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
	// DeleteExpired removes rows past absolute expiry and, for channels
	// subject to inactivity decay, rows idle longer than the timeout.
	// Returns the number of deleted rows; idempotent.
	DeleteExpired(ctx context.Context, now time.Time, inactivityTimeout time.Duration) (int64, error)
	// ListByAccount returns the live sessions bound to an account.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Session, error)
}
