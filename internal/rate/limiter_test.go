package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, ipThrottle bool) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return New(rdb, Config{
		EnableIPThrottle:      ipThrottle,
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	}), mr
}

func TestLoginBudgetExhaustion(t *testing.T) {
	l, _ := newLimiterTest(t, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.IncrementLogin(ctx, "app", "alice", ""); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if err := l.CheckLogin(ctx, "app", "alice", ""); err != nil {
			t.Fatalf("check after %d failures: %v", i+1, err)
		}
	}
	if err := l.IncrementLogin(ctx, "app", "alice", ""); err != nil {
		t.Fatalf("third increment should still be within budget: %v", err)
	}
	if err := l.CheckLogin(ctx, "app", "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited after budget, got %v", err)
	}
	if err := l.IncrementLogin(ctx, "app", "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited past budget, got %v", err)
	}

	if err := l.CheckLogin(ctx, "other-app", "alice", ""); err != nil {
		t.Fatalf("expected other application to be independent, got %v", err)
	}
}

func TestLoginKeyIsCaseInsensitiveAndHashed(t *testing.T) {
	l, mr := newLimiterTest(t, false)
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "app", "Alice@Example.com", "")
	n, err := l.LoginAttempts(ctx, "app", "alice@example.com ")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 attempt for normalized login, got %d err=%v", n, err)
	}
	for _, k := range mr.Keys() {
		if k == "gwr:l:app:alice@example.com" {
			t.Fatal("expected raw login not to appear in redis keys")
		}
	}
}

func TestCooldownExpiresWindow(t *testing.T) {
	l, mr := newLimiterTest(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.IncrementLogin(ctx, "app", "bob", "")
	}
	if err := l.CheckLogin(ctx, "app", "bob", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limited, got %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := l.CheckLogin(ctx, "app", "bob", ""); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}

func TestIPThrottleSurvivesLoginReset(t *testing.T) {
	l, _ := newLimiterTest(t, true)
	ctx := context.Background()

	for _, login := range []string{"a", "b", "c"} {
		_ = l.IncrementLogin(ctx, "app", login, "10.0.0.1")
	}
	if err := l.CheckLogin(ctx, "app", "d", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP budget exhausted, got %v", err)
	}
	if err := l.ResetLogin(ctx, "app", "d"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.CheckLogin(ctx, "app", "d", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP budget to survive login reset, got %v", err)
	}
	if err := l.CheckLogin(ctx, "app", "d", "10.0.0.2"); err != nil {
		t.Fatalf("expected other IP unaffected, got %v", err)
	}
}

func TestResetClearsLoginCounter(t *testing.T) {
	l, _ := newLimiterTest(t, false)
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "app", "carol", "")
	if err := l.ResetLogin(ctx, "app", "carol"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := l.LoginAttempts(ctx, "app", "carol"); n != 0 {
		t.Fatalf("expected counter cleared, got %d", n)
	}
}

func TestRedisUnavailable(t *testing.T) {
	l, mr := newLimiterTest(t, false)
	mr.Close()
	if err := l.CheckLogin(context.Background(), "app", "x", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
