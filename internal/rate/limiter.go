package rate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces throttle keys when Config.Prefix is empty.
const DefaultPrefix = "gwr"

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix                string
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// Limiter enforces per-login and per-IP budgets for failed logins using
// Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns [ErrRateLimited] when the login (scoped to application)
// or the client IP has exhausted its failure budget.
func (l *Limiter) CheckLogin(ctx context.Context, application, login, ip string) error {
	if err := l.checkCounter(ctx, l.loginKey(application, login), l.config.MaxLoginAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, l.ipKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLogin records a failed attempt. It returns [ErrRateLimited] once
// the attempt that crossed the budget has been counted.
func (l *Limiter) IncrementLogin(ctx context.Context, application, login, ip string) error {
	count, err := l.incrementWithTTL(ctx, l.loginKey(application, login), l.config.LoginCooldownDuration)
	if err != nil {
		return err
	}
	limited := count > int64(l.config.MaxLoginAttempts)

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, l.ipKey(ip), l.config.LoginCooldownDuration)
		if err != nil {
			return err
		}
		limited = limited || count > int64(l.config.MaxLoginAttempts)
	}

	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the per-login counter after a successful login. The IP
// counter is left alone so one valid account cannot launder an IP's budget.
func (l *Limiter) ResetLogin(ctx context.Context, application, login string) error {
	if err := l.redis.Del(ctx, l.loginKey(application, login)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginAttempts returns the current failure count for a login.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) LoginAttempts(ctx context.Context, application, login string) (int, error) {
	count, err := l.redis.Get(ctx, l.loginKey(application, login)).Int64()
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

func (l *Limiter) loginKey(application, login string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(login))))
	return l.config.Prefix + ":l:" + application + ":" + hex.EncodeToString(sum[:16])
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.Prefix + ":i:" + ip
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
