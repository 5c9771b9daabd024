package config

import "fmt"

// AppConfig contains HTTP server settings.
type AppConfig struct {
	Host string `env:"APP_HOST" env-default:"localhost"`
	Port uint16 `env:"APP_PORT" env-default:"8080"`
	// Env toggles production behavior (secure cookies, strict origin checks).
	Env string `env:"APP_ENV" env-default:"development"`
}

// IsProduction reports whether the app runs with production hardening.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `env:"AUTH_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUTH_PG_PORT" env-default:"5432"`
	Database string `env:"AUTH_PG_DATABASE" env-default:"auth_db"`
	User     string `env:"AUTH_PG_USER" env-default:"auth"`
	Password string `env:"AUTH_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"AUTH_PG_SCHEMA" env-default:"public"`
}

// DatabaseURL builds a postgres connection string for pgx and migrate.
func (d DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// RedisConfig contains settings for the optional Redis rate-limit store.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" env-default:"false"`
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}
