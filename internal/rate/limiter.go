package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter budgets. A budget <= 0 disables that limit.
type Config struct {
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginCooldown    time.Duration
	MaxSends         int
	SendWindow       time.Duration
}

// Limiter enforces per-identifier and per-IP budgets with Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func loginKey(account string) string { return "smsf_rl:login:" + account }
func loginIPKey(ip string) string    { return "smsf_rl:login_ip:" + ip }
func sendKey(email string) string    { return "smsf_rl:send:" + email }
func sendIPKey(ip string) string     { return "smsf_rl:send_ip:" + ip }

// CheckLogin reports ErrRateLimited when account or ip already spent its
// failed-login budget.
func (l *Limiter) CheckLogin(ctx context.Context, account, ip string) error {
	if l.config.MaxLoginAttempts <= 0 {
		return nil
	}
	if err := l.checkCounter(ctx, loginKey(account), l.config.MaxLoginAttempts); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, loginIPKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}
	return nil
}

// IncrementLogin records a failed login.
func (l *Limiter) IncrementLogin(ctx context.Context, account, ip string) error {
	if l.config.MaxLoginAttempts <= 0 {
		return nil
	}
	if _, err := l.incrementWithTTL(ctx, loginKey(account), l.config.LoginCooldown); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if _, err := l.incrementWithTTL(ctx, loginIPKey(ip), l.config.LoginCooldown); err != nil {
			return err
		}
	}
	return nil
}

// ResetLogin clears the account counter after a successful login. The IP
// counter is left alone.
func (l *Limiter) ResetLogin(ctx context.Context, account string) error {
	if err := l.redis.Del(ctx, loginKey(account)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// AllowSend counts one verification send for email and ip and reports
// ErrRateLimited once either exceeds its budget in the window.
func (l *Limiter) AllowSend(ctx context.Context, email, ip string) error {
	if l.config.MaxSends <= 0 {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, sendKey(email), l.config.SendWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSends) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, sendIPKey(ip), l.config.SendWindow)
		if err != nil {
			return err
		}
		// IP budget is four times the per-email budget.
		if count > int64(l.config.MaxSends*4) {
			return ErrRateLimited
		}
	}
	return nil
}

// LoginAttempts returns the failed-login counter for account.
func (l *Limiter) LoginAttempts(ctx context.Context, account string) (int, error) {
	count, err := l.redis.Get(ctx, loginKey(account)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: TTL only on the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
