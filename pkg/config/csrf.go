package config

// CSRFConfig contains settings for the CSRF/origin guard.
type CSRFConfig struct {
	// ExemptPrefixes lists path prefixes excluded from CSRF checks.
	// Bearer-token mobile routes and public webhooks belong here: they do
	// not ride on ambient cookie credentials.
	ExemptPrefixes []string `env:"CSRF_EXEMPT_PREFIXES" env-separator:"," env-default:"/api/mobile,/webhooks,/health"`

	CookieHTTPOnly bool `env:"CSRF_COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure   bool `env:"CSRF_COOKIE_SECURE" env-default:"true"`
}
