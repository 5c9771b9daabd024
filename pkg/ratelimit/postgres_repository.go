package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL rate-limit repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Increment bumps the counter for (clientKey, endpoint) in one statement.
// An expired window is restarted in the same upsert, so two concurrent
// hits can never both observe the old window and both reset it.
func (r *PostgresRepository) Increment(ctx context.Context, clientKey, endpoint string, window time.Duration) (Counter, error) {
	query := `
		INSERT INTO rate_limits (client_key, endpoint, count, window_start, reset_at)
		VALUES ($1, $2, 1, NOW(), NOW() + make_interval(secs => $3))
		ON CONFLICT (client_key, endpoint) DO UPDATE SET
			count = CASE WHEN rate_limits.reset_at <= NOW() THEN 1 ELSE rate_limits.count + 1 END,
			window_start = CASE WHEN rate_limits.reset_at <= NOW() THEN NOW() ELSE rate_limits.window_start END,
			reset_at = CASE WHEN rate_limits.reset_at <= NOW() THEN NOW() + make_interval(secs => $3) ELSE rate_limits.reset_at END
		RETURNING count, window_start, reset_at
	`

	var counter Counter
	err := r.pool.QueryRow(ctx, query, clientKey, endpoint, window.Seconds()).Scan(
		&counter.Count,
		&counter.WindowStart,
		&counter.ResetAt,
	)
	if err != nil {
		return Counter{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	return counter, nil
}

// DeleteExpired removes windows past their reset time
func (r *PostgresRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM rate_limits WHERE reset_at <= NOW()`

	_, err := r.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to delete expired rate limit windows: %w", err)
	}

	return nil
}
