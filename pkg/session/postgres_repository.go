package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL session repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const sessionColumns = `token, account_id, email, role, channel, ip_address, user_agent, created_at, expires_at, last_activity_at`

// Create persists a new session row
func (r *PostgresRepository) Create(ctx context.Context, session Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		session.Token,
		session.AccountID,
		session.Email,
		session.Role,
		session.Channel,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.ExpiresAt,
		session.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByToken retrieves a session row by its token
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE token = $1`

	session := &Session{}
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&session.Token,
		&session.AccountID,
		&session.Email,
		&session.Role,
		&session.Channel,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// UpdateActivity rewrites the last activity timestamp
func (r *PostgresRepository) UpdateActivity(ctx context.Context, token string, at time.Time) error {
	query := `
		UPDATE sessions
		SET last_activity_at = $2
		WHERE token = $1
	`

	_, err := r.pool.Exec(ctx, query, token, at)
	if err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}

	return nil
}

// Delete removes a session row by token
func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByAccount removes all session rows bound to an account
func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes rows past absolute or inactivity expiry. Refresh
// tokens are exempt from inactivity decay.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time, inactivityTimeout time.Duration) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE expires_at <= $1
		   OR (channel <> 'mobile-refresh' AND last_activity_at <= $2)
	`

	result, err := r.pool.Exec(ctx, query, now, now.Add(-inactivityTimeout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListByAccount returns the live sessions bound to an account
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE account_id = $1
		  AND expires_at > NOW()
		ORDER BY last_activity_at DESC
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		err := rows.Scan(
			&session.Token,
			&session.AccountID,
			&session.Email,
			&session.Role,
			&session.Channel,
			&session.IPAddress,
			&session.UserAgent,
			&session.CreatedAt,
			&session.ExpiresAt,
			&session.LastActivityAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", rows.Err())
	}

	return sessions, nil
}
