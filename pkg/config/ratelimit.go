package config

import "time"

// RateLimitConfig contains per-tier window sizes and request caps.
// Defaults match the documented tier table; override via env when a
// deployment needs different limits.
type RateLimitConfig struct {
	AuthWindow      time.Duration `env:"RATELIMIT_AUTH_WINDOW" env-default:"15m"`
	AuthMaxRequests int           `env:"RATELIMIT_AUTH_MAX" env-default:"10"`

	APIWindow      time.Duration `env:"RATELIMIT_API_WINDOW" env-default:"1m"`
	APIMaxRequests int           `env:"RATELIMIT_API_MAX" env-default:"60"`

	HeavyWindow      time.Duration `env:"RATELIMIT_HEAVY_WINDOW" env-default:"1m"`
	HeavyMaxRequests int           `env:"RATELIMIT_HEAVY_MAX" env-default:"10"`

	PublicWindow      time.Duration `env:"RATELIMIT_PUBLIC_WINDOW" env-default:"1m"`
	PublicMaxRequests int           `env:"RATELIMIT_PUBLIC_MAX" env-default:"100"`

	// IncludeHeaders controls whether rate limit headers are included on
	// allowed responses as well as rejections.
	IncludeHeaders bool `env:"RATELIMIT_INCLUDE_HEADERS" env-default:"true"`
}
