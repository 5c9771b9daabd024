package ratelimit

import (
	"time"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/config"
)

// Tier names a pre-declared (window, max requests) pair. Every rate-limited
// endpoint is checked under exactly one tier.
type Tier string

const (
	// TierAuth guards credential-bearing endpoints against brute force.
	TierAuth Tier = "auth"
	// TierAPI is the default for authenticated traffic.
	TierAPI Tier = "api"
	// TierHeavy covers expensive operations.
	TierHeavy Tier = "heavy"
	// TierPublic is the lenient default for unauthenticated reads.
	TierPublic Tier = "public"
)

// TierLimit is the fixed window configuration for a tier.
type TierLimit struct {
	Window      time.Duration
	MaxRequests int
}

// Tiers maps tier names to their limits.
type Tiers map[Tier]TierLimit

// DefaultTiers returns the standard tier table.
func DefaultTiers() Tiers {
	return Tiers{
		TierAuth:   {Window: 15 * time.Minute, MaxRequests: 10},
		TierAPI:    {Window: time.Minute, MaxRequests: 60},
		TierHeavy:  {Window: time.Minute, MaxRequests: 10},
		TierPublic: {Window: time.Minute, MaxRequests: 100},
	}
}

// TiersFromConfig builds the tier table from environment configuration.
func TiersFromConfig(cfg config.RateLimitConfig) Tiers {
	return Tiers{
		TierAuth:   {Window: cfg.AuthWindow, MaxRequests: cfg.AuthMaxRequests},
		TierAPI:    {Window: cfg.APIWindow, MaxRequests: cfg.APIMaxRequests},
		TierHeavy:  {Window: cfg.HeavyWindow, MaxRequests: cfg.HeavyMaxRequests},
		TierPublic: {Window: cfg.PublicWindow, MaxRequests: cfg.PublicMaxRequests},
	}
}
