// Package app wires the smsfd runtime: cache, account store, session
// layer, HTTP routes and the background sweeper.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/accounts"
	"github.com/MrEthical07/goSession/fallback"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/httpapi"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/metrics/export/otel"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/verification"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	otelglobal "go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const meterName = "github.com/MrEthical07/goSession"

// App owns every long-lived dependency of the server.
type App struct {
	cfg config.Config
	log *slog.Logger

	redis    *redis.Client
	pool     *pgxpool.Pool
	accounts accounts.Store
	hasher   *password.PBKDF2
	fallback fallback.Store

	Manager  *goSession.Manager
	Auth     *goSession.Authenticator
	limiter  *rate.Limiter
	codes    *verification.Store
	exporter *otel.Exporter
}

// New connects to the cache and the account store and builds the session
// layer. An unreachable cache does not fail New; an unreachable database does.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	hasher, err := password.NewPBKDF2(password.DefaultConfig())
	if err != nil {
		return nil, err
	}
	a.hasher = hasher

	a.redis = redis.NewClient(cfg.RedisOptions())

	if err := a.openAccounts(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if a.fallback, err = newFallback(cfg); err != nil {
		a.Close()
		return nil, err
	}

	b := goSession.New().
		WithConfig(cfg.Session()).
		WithRedis(a.redis).
		WithLogger(log)
	if cfg.AuditLog {
		b.WithAuditSink(goSession.NewSlogSink(log.With(slog.String("component", "audit"))))
	}
	if a.Manager, err = b.Build(); err != nil {
		a.Close()
		return nil, fmt.Errorf("session manager: %w", err)
	}

	sess := cfg.Session()
	a.limiter = rate.New(a.redis, rate.Config{
		EnableIPThrottle: sess.Login.EnableIPThrottle,
		MaxLoginAttempts: sess.Login.MaxAttempts,
		LoginCooldown:    sess.Login.Cooldown,
		MaxSends:         cfg.VerificationSends,
		SendWindow:       cfg.VerificationWindow,
	})
	a.codes = verification.NewStore(a.redis, verification.Config{TTL: cfg.VerificationTTL})
	a.Auth = goSession.NewAuthenticator(a.Manager, a.accounts, a.fallback, a.limiter)

	if cfg.OTelMetrics {
		a.exporter, err = otel.NewExporter(otelglobal.GetMeterProvider().Meter(meterName), a.Manager)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("otel exporter: %w", err)
		}
	}

	return a, nil
}

// openAccounts picks Postgres when a database URL is configured and an
// in-memory store otherwise.
func (a *App) openAccounts(ctx context.Context) error {
	if a.cfg.DatabaseURL == "" {
		a.log.Warn("db.disabled.inmemory_accounts")
		a.accounts = accounts.NewMemory(a.hasher)
		return nil
	}

	pool, err := accounts.NewPool(ctx, accounts.PoolConfig{
		DatabaseURL: a.cfg.DatabaseURL,
		MaxConns:    a.cfg.DBMaxConns,
		MinConns:    a.cfg.DBMinConns,
	})
	if err != nil {
		return err
	}
	a.pool = pool

	store, err := accounts.NewPostgres(pool, a.hasher, accounts.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.accounts = store
	a.log.Info("db.enabled.postgres_accounts")
	return nil
}

func newFallback(cfg config.Config) (fallback.Store, error) {
	switch cfg.FallbackMode {
	case config.FallbackNone:
		return nil, nil
	case config.FallbackSigned:
		m, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.SessionTTL,
			SigningMethod: jwt.MethodHS256,
			PrivateKey:    []byte(cfg.FallbackSecret),
			Issuer:        "smsf",
			Leeway:        30 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("fallback signer: %w", err)
		}
		return fallback.NewSigned(m), nil
	default:
		return fallback.NewMemory(cfg.SessionTTL, 0), nil
	}
}

// EnsureSchema creates the accounts table when Postgres is in use.
func (a *App) EnsureSchema(ctx context.Context) error {
	pg, ok := a.accounts.(*accounts.Postgres)
	if !ok {
		return errors.New("no database configured")
	}
	return pg.EnsureSchema(ctx)
}

// Handler returns the full HTTP handler.
func (a *App) Handler() http.Handler {
	return httpapi.NewRouter(httpapi.Dependencies{
		Auth:     a.Auth,
		Accounts: a.accounts,
		Hasher:   a.hasher,
		Codes:    a.codes,
		Mailer:   verification.LogMailer{Logger: a.log},
		Limiter:  a.limiter,
		Cookie: middleware.CookieConfig{
			Name:   middleware.DefaultCookieName,
			Path:   "/",
			Secure: a.cfg.CookieSecure,
		},
		Logger:          a.log,
		Metrics:         promexport.Handler(a.Manager),
		CORSOrigins:     a.cfg.CORSOrigins,
		EnableOTelHTTP:  a.cfg.OTelMetrics,
		FallbackEnabled: a.fallback != nil,
	})
}

// Run serves HTTP and sweeps expired sessions until ctx is cancelled or
// the listener fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("server.start", slog.String("addr", a.cfg.HTTPAddr), slog.Bool("db_enabled", a.pool != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", slog.Any("error", err))
			return err
		}
		a.log.Info("server.stopped")
		return nil
	})

	g.Go(func() error {
		return goSession.NewSweeper(a.Manager, 0).Run(gctx)
	})

	return g.Wait()
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() {
	if a.exporter != nil {
		if err := a.exporter.Close(); err != nil {
			a.log.Warn("otel exporter close failed", slog.Any("error", err))
		}
	}
	if a.Manager != nil {
		a.Manager.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
