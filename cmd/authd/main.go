package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/alpgraphic/alpgraphics-sub003/migrations"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/account"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/bootstrap"
	bootstrapapi "github.com/alpgraphic/alpgraphics-sub003/pkg/bootstrap/api"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/config"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/csrf"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/login"
	loginapi "github.com/alpgraphic/alpgraphics-sub003/pkg/login/api"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/password"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/ratelimit"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/router"
	"github.com/alpgraphic/alpgraphics-sub003/pkg/session"
	sessionapi "github.com/alpgraphic/alpgraphics-sub003/pkg/session/api"
)

type Config struct {
	AppConfig       config.AppConfig
	DatabaseConfig  config.DatabaseConfig
	RedisConfig     config.RedisConfig
	SessionConfig   config.SessionConfig
	RateLimitConfig config.RateLimitConfig
	CSRFConfig      config.CSRFConfig

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" env-default:"10m"`
}

func main() {
	// Optional .env for local development; env vars win.
	_ = godotenv.Load()

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed reading config from env", "err", err)
		os.Exit(-1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbURL := cfg.DatabaseConfig.DatabaseURL()
	if err := runMigrations(dbURL); err != nil {
		slog.Error("Failed running migrations", "err", err)
		os.Exit(-1)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", cfg.DatabaseConfig.Database, "host", cfg.DatabaseConfig.Host, "err", err)
		os.Exit(-1)
	}
	defer pool.Close()

	accountRepo := account.NewPostgresRepository(pool)
	sessionRepo := session.NewPostgresRepository(pool)

	var limitRepo ratelimit.Repository
	if cfg.RedisConfig.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer client.Close()
		limitRepo = ratelimit.NewRedisRepository(client)
		slog.Info("Rate limiting backed by redis", "addr", cfg.RedisConfig.Addr)
	} else {
		limitRepo = ratelimit.NewPostgresRepository(pool)
	}

	cookies := session.NewCookieManager(cfg.SessionConfig.CookieHTTPOnly, cfg.SessionConfig.CookieSecure)
	sessionCfg := session.ConfigFromEnv(cfg.SessionConfig)
	webSessions := session.NewService(sessionRepo, cookies, sessionCfg)
	mobileSessions := session.NewMobileService(sessionRepo, cookies, sessionCfg)

	hasher := password.BcryptHasher{}
	loginService := login.NewService(accountRepo, hasher, webSessions, mobileSessions)
	bootstrapService := bootstrap.NewService(accountRepo, hasher)

	limiter := ratelimit.NewLimiter(limitRepo, ratelimit.TiersFromConfig(cfg.RateLimitConfig), ratelimit.PolicyDeny)
	guard := csrf.NewGuard(cfg.CSRFConfig.ExemptPrefixes, cfg.AppConfig.IsProduction(), cfg.CSRFConfig.CookieSecure)

	r := router.New(router.Config{
		LoginHandle: loginapi.NewHandle(
			loginapi.WithLoginService(loginService),
			loginapi.WithSessionService(webSessions),
			loginapi.WithMobileService(mobileSessions),
		),
		BootstrapHandle: bootstrapapi.NewHandle(bootstrapapi.WithService(bootstrapService)),
		SessionHandle: sessionapi.NewHandle(
			sessionapi.WithSessionService(webSessions),
			sessionapi.WithMobileService(mobileSessions),
		),
		WebSessions:    webSessions,
		MobileSessions: mobileSessions,
		Limiter:        limiter,
		IncludeHeaders: cfg.RateLimitConfig.IncludeHeaders,
		CSRFGuard:      guard,
	})

	go sweep(ctx, cfg.SweepInterval, webSessions, limiter)

	addr := fmt.Sprintf("%s:%d", cfg.AppConfig.Host, cfg.AppConfig.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed shutting down server", "err", err)
		}
	}()

	slog.Info("Starting auth server", "addr", addr, "env", cfg.AppConfig.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server exited", "err", err)
		os.Exit(-1)
	}
}

// runMigrations applies the embedded schema migrations. A database that
// is already at the latest version is not an error.
func runMigrations(dbURL string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dbURL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// sweep periodically deletes expired sessions and stale rate-limit rows.
// Best effort: verification paths do not depend on the sweeper running.
func sweep(ctx context.Context, interval time.Duration, sessions *session.Service, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := sessions.CleanupExpired(ctx)
			if err != nil {
				slog.Error("Failed sweeping sessions", "err", err)
			} else if deleted > 0 {
				slog.Info("Swept expired sessions", "deleted", deleted)
			}
			if err := limiter.Cleanup(ctx); err != nil {
				slog.Error("Failed sweeping rate limits", "err", err)
			}
		}
	}
}
