package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/fallback"
	"github.com/MrEthical07/goSession/internal/rate"
)

// CredentialChecker verifies an account's password.
type CredentialChecker interface {
	Authenticate(ctx context.Context, account, password string) (bool, error)
}

// Identity is the resolved owner of a request's token.
type Identity struct {
	Account string
	Token   string
	// Degraded is true when the token came from the fallback mechanism.
	Degraded bool
}

// LoginResult describes an issued session.
type LoginResult struct {
	Account string
	Token   string
	TTL     time.Duration
	// Degraded is true when the cache was unavailable and a fallback token was issued.
	Degraded bool
}

// Authenticator combines credential checks, the session Manager and a
// fallback store into the login flow.
type Authenticator struct {
	manager     *Manager
	credentials CredentialChecker
	fallback    fallback.Store
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewAuthenticator wires an Authenticator. fb and limiter may be nil: with
// no fallback a cache outage fails logins; with no limiter attempts are
// unlimited.
func NewAuthenticator(m *Manager, credentials CredentialChecker, fb fallback.Store, limiter *rate.Limiter) *Authenticator {
	return &Authenticator{
		manager:     m,
		credentials: credentials,
		fallback:    fb,
		limiter:     limiter,
		logger:      m.logger.With(slog.String("component", "auth")),
	}
}

// Manager returns the underlying session manager.
func (a *Authenticator) Manager() *Manager {
	return a.manager
}

// Login checks credentials and issues a session. A cache outage does not
// fail the login when a fallback store is configured; the result is then
// marked Degraded.
func (a *Authenticator) Login(ctx context.Context, account, password string) (LoginResult, error) {
	account = strings.TrimSpace(account)
	if account == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	ip := clientIPFromContext(ctx)

	if a.limiter != nil {
		if err := a.limiter.CheckLogin(ctx, account, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				a.manager.metrics.Inc(MetricLoginRateLimited)
				return LoginResult{}, ErrLoginRateLimited
			}
			// Limiter shares the cache; an outage must not block logins.
			a.logger.WarnContext(ctx, "login limiter unavailable", slog.Any("error", err))
		}
	}

	ok, err := a.credentials.Authenticate(ctx, account, password)
	if err != nil {
		a.logger.ErrorContext(ctx, "credential check failed", slog.String("account", account), slog.Any("error", err))
		return LoginResult{}, fmt.Errorf("%w: %v", ErrCredentialBackend, err)
	}
	if !ok {
		a.manager.metrics.Inc(MetricLoginFailure)
		a.manager.emitAudit(ctx, auditEventLoginFailure, false, account, "", ErrInvalidCredentials, nil)
		if a.limiter != nil {
			if err := a.limiter.IncrementLogin(ctx, account, ip); err != nil {
				a.logger.WarnContext(ctx, "login limiter unavailable", slog.Any("error", err))
			}
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	if a.limiter != nil {
		if err := a.limiter.ResetLogin(ctx, account); err != nil {
			a.logger.WarnContext(ctx, "login limiter reset failed", slog.String("account", account), slog.Any("error", err))
		}
	}
	a.manager.metrics.Inc(MetricLoginSuccess)

	ttl := a.manager.config.Session.DefaultTTL
	token, err := a.manager.Create(ctx, account, ttl)
	if err == nil {
		a.manager.emitAudit(ctx, auditEventLoginSuccess, true, account, token, nil, nil)
		return LoginResult{Account: account, Token: token, TTL: ttl}, nil
	}
	if a.fallback == nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrNoSessionBackend, err)
	}

	fallbackTTL := a.manager.config.Login.FallbackTTL
	token, fbErr := a.fallback.Issue(ctx, account, fallbackTTL)
	if fbErr != nil {
		a.logger.ErrorContext(ctx, "fallback session issue failed", slog.String("account", account), slog.Any("error", fbErr))
		return LoginResult{}, fmt.Errorf("%w: %v", ErrNoSessionBackend, errors.Join(err, fbErr))
	}

	a.manager.metrics.Inc(MetricFallbackIssued)
	a.manager.emitAudit(ctx, auditEventLoginFallback, true, account, "", nil, nil)
	a.logger.WarnContext(ctx, "session cache unavailable; issued fallback session", slog.String("account", account))
	return LoginResult{Account: account, Token: token, TTL: fallbackTTL, Degraded: true}, nil
}

// Resolve maps a token to its identity. Cache sessions are renewed on
// access; tokens unknown to the cache are tried against the fallback store.
func (a *Authenticator) Resolve(ctx context.Context, token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}

	if info, ok := a.manager.Get(ctx, token); ok {
		a.manager.Renew(ctx, token, 0)
		return Identity{Account: info.UserAccount, Token: token}, true
	}

	if a.fallback == nil {
		return Identity{}, false
	}
	account, ok := a.fallback.Resolve(ctx, token)
	if !ok {
		return Identity{}, false
	}
	a.manager.metrics.Inc(MetricFallbackResolved)
	return Identity{Account: account, Token: token, Degraded: true}, true
}

// Logout ends the session behind token. It reports whether a cache session
// was deleted; fallback tokens are revoked where possible.
func (a *Authenticator) Logout(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	deleted := a.manager.Delete(ctx, token)
	if !deleted && a.fallback != nil {
		a.fallback.Revoke(ctx, token)
	}
	return deleted
}

// ForceLogout removes every cache session of account. Fallback sessions
// are not tracked per account and survive.
func (a *Authenticator) ForceLogout(ctx context.Context, account string) int {
	return a.manager.DeleteAll(ctx, account)
}
