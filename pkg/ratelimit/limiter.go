package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// ErrorPolicy decides what a limiter does when its datastore fails.
// Security-critical callers use PolicyDeny (fail closed); PolicyDegrade is
// the explicit, audit-visible opt-out for convenience features.
type ErrorPolicy string

const (
	PolicyDeny    ErrorPolicy = "deny"
	PolicyDegrade ErrorPolicy = "degrade"
)

// Result is the outcome of one rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests in fixed windows keyed by (client, endpoint).
// Windows do not slide: a client bursting at the seam between two windows
// can reach up to twice the nominal rate. Documented behavior, not a bug.
type Limiter struct {
	repo   Repository
	tiers  Tiers
	policy ErrorPolicy
	now    func() time.Time
}

// NewLimiter creates a limiter over the given repository. A nil tier table
// gets the defaults; the error policy defaults to deny.
func NewLimiter(repo Repository, tiers Tiers, policy ErrorPolicy) *Limiter {
	if tiers == nil {
		tiers = DefaultTiers()
	}
	if policy == "" {
		policy = PolicyDeny
	}
	return &Limiter{
		repo:   repo,
		tiers:  tiers,
		policy: policy,
		now:    time.Now,
	}
}

// Check records one hit for (clientKey, endpoint) under the tier and
// reports whether the request may proceed. Each allowed request persists
// an incremented counter, so callers must check at most once per logical
// request.
func (l *Limiter) Check(ctx context.Context, clientKey, endpoint string, tier Tier) Result {
	limit, ok := l.tiers[tier]
	if !ok {
		slog.Warn("Unknown rate limit tier, using auth tier", "tier", tier)
		limit = l.tiers[TierAuth]
	}

	counter, err := l.repo.Increment(ctx, clientKey, endpoint, limit.Window)
	if err != nil {
		slog.Error("Rate limit store failure", "client", clientKey, "endpoint", endpoint, "policy", l.policy, "error", err)
		if l.policy == PolicyDegrade {
			return Result{Allowed: true, Remaining: limit.MaxRequests, ResetAt: l.now().Add(limit.Window)}
		}
		// Fail closed: availability is sacrificed for safety.
		return Result{Allowed: false, Remaining: 0, ResetAt: l.now().Add(limit.Window)}
	}

	remaining := limit.MaxRequests - counter.Count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   counter.Count <= limit.MaxRequests,
		Remaining: remaining,
		ResetAt:   counter.ResetAt,
	}
}

// Cleanup removes expired windows. Safe to run concurrently with checks.
func (l *Limiter) Cleanup(ctx context.Context) error {
	return l.repo.DeleteExpired(ctx)
}
