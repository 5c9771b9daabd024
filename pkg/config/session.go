package config

import "time"

// SessionConfig contains session lifetime and cookie settings.
type SessionConfig struct {
	// Web sessions: absolute lifetime and inactivity timeout.
	WebLifetime       time.Duration `env:"SESSION_WEB_LIFETIME" env-default:"168h"`
	InactivityTimeout time.Duration `env:"SESSION_INACTIVITY_TIMEOUT" env-default:"2h"`

	// Mobile tokens: short-lived access, long-lived refresh.
	MobileAccessLifetime  time.Duration `env:"SESSION_MOBILE_ACCESS_LIFETIME" env-default:"15m"`
	MobileRefreshLifetime time.Duration `env:"SESSION_MOBILE_REFRESH_LIFETIME" env-default:"168h"`

	CookieHTTPOnly bool `env:"COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure   bool `env:"COOKIE_SECURE" env-default:"true"`
}
