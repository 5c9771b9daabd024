package session

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
	sessions map[string]Session
}

// NewInMemoryRepository creates a new in-memory session repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]Session),
	}
}

// Create persists a new session row
func (r *InMemoryRepository) Create(ctx context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.Token] = session
	return nil
}

// GetByToken retrieves a session row by its token
func (r *InMemoryRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// UpdateActivity rewrites the last activity timestamp
func (r *InMemoryRepository) UpdateActivity(ctx context.Context, token string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[token]
	if !ok {
		return ErrSessionNotFound
	}
	session.LastActivityAt = at
	r.sessions[token] = session
	return nil
}

// Delete removes a session row by token
func (r *InMemoryRepository) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, token)
	return nil
}

// DeleteByAccount removes all session rows bound to an account
func (r *InMemoryRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, session := range r.sessions {
		if session.AccountID == accountID {
			delete(r.sessions, token)
		}
	}
	return nil
}

// DeleteExpired removes rows past absolute or inactivity expiry
func (r *InMemoryRepository) DeleteExpired(ctx context.Context, now time.Time, inactivityTimeout time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	cutoff := now.Add(-inactivityTimeout)
	for token, session := range r.sessions {
		if !session.ExpiresAt.After(now) ||
			(session.SubjectToInactivity() && !session.LastActivityAt.After(cutoff)) {
			delete(r.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

// ListByAccount returns the live sessions bound to an account
func (r *InMemoryRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []Session
	now := time.Now()
	for _, session := range r.sessions {
		if session.AccountID == accountID && session.ExpiresAt.After(now) {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

// Len reports the number of stored rows. Test helper.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
