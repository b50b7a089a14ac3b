package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T, sliding bool) (*Store, *miniredis.Miniredis) {
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
	return NewStore(rdb, "gws", time.Minute, sliding, false, 0), mr
}

func TestCreateLoadAttributes(t *testing.T) {
	store, mr := newSessionStoreTest(t, false)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("gws:" + sess.ID()) {
		t.Fatal("expected session hash to exist")
	}
	if ttl := mr.TTL("gws:" + sess.ID()); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	if _, ok, err := sess.Attribute(ctx, "csrfToken"); err != nil || ok {
		t.Fatalf("expected absent attribute, ok=%v err=%v", ok, err)
	}
	if err := sess.SetAttribute(ctx, "csrfToken", "abc"); err != nil {
		t.Fatalf("set attribute: %v", err)
	}

	loaded, err := store.Load(ctx, sess.ID())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v, ok, err := loaded.Attribute(ctx, "csrfToken")
	if err != nil || !ok || v != "abc" {
		t.Fatalf("unexpected attribute v=%q ok=%v err=%v", v, ok, err)
	}

	if err := loaded.RemoveAttribute(ctx, "csrfToken"); err != nil {
		t.Fatalf("remove attribute: %v", err)
	}
	if _, ok, _ := loaded.Attribute(ctx, "csrfToken"); ok {
		t.Fatal("expected attribute removed")
	}
	if err := loaded.RemoveAttribute(ctx, "csrfToken"); err != nil {
		t.Fatalf("expected idempotent remove, got %v", err)
	}
}

func TestLoadUnknownOrMalformedID(t *testing.T) {
	store, _ := newSessionStoreTest(t, false)
	ctx := context.Background()

	if _, err := store.Load(ctx, "not-a-uuid"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for malformed id, got %v", err)
	}
	if _, err := store.Load(ctx, "2c1a8f8e-4a5b-4c7d-9e3f-0a1b2c3d4e5f"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for unknown id, got %v", err)
	}
}

func TestSlidingExpirationRenewsTTL(t *testing.T) {
	store, mr := newSessionStoreTest(t, true)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	key := "gws:" + sess.ID()

	mr.FastForward(40 * time.Second)
	if _, err := store.Load(ctx, sess.ID()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected ttl renewed to 1m, got %v", ttl)
	}
}

func TestExpiredSessionIsNotResurrected(t *testing.T) {
	store, mr := newSessionStoreTest(t, false)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if err := sess.SetAttribute(ctx, "k", "v"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after expiry, got %v", err)
	}
	if mr.Exists("gws:" + sess.ID()) {
		t.Fatal("expected expired session to stay deleted")
	}
	if _, err := store.Load(ctx, sess.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on load, got %v", err)
	}
}

func TestInvalidateDeletesAndBlocksFurtherUse(t *testing.T) {
	store, mr := newSessionStoreTest(t, false)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sess.SetAttribute(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := sess.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("gws:" + sess.ID()) {
		t.Fatal("expected session hash deleted")
	}
	if err := sess.Invalidate(ctx); err != nil {
		t.Fatalf("expected repeated invalidate to be a no-op, got %v", err)
	}
	if _, _, err := sess.Attribute(ctx, "k"); !errors.Is(err, ErrSessionInvalidated) {
		t.Fatalf("expected ErrSessionInvalidated, got %v", err)
	}
	if err := sess.SetAttribute(ctx, "k", "v"); !errors.Is(err, ErrSessionInvalidated) {
		t.Fatalf("expected ErrSessionInvalidated, got %v", err)
	}
}

func TestEmptyAttributeNameRejected(t *testing.T) {
	store, _ := newSessionStoreTest(t, false)
	sess, err := store.Create(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sess.SetAttribute(context.Background(), "", "v"); !errors.Is(err, ErrInvalidAttributeName) {
		t.Fatalf("expected ErrInvalidAttributeName, got %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	store, mr := newSessionStoreTest(t, false)
	mr.Close()

	if _, err := store.Create(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from ping, got %v", err)
	}
}

func TestRandomJitterBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		j, err := randomJitter(time.Second)
		if err != nil {
			t.Fatalf("jitter: %v", err)
		}
		if j < -time.Second || j > time.Second {
			t.Fatalf("jitter out of range: %v", j)
		}
	}
	if j, _ := randomJitter(0); j != 0 {
		t.Fatalf("expected zero jitter, got %v", j)
	}
}

func TestRegenerateMovesAttributesAndRetiresOldID(t *testing.T) {
	store, mr := newSessionStoreTest(t, false)
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sess.SetAttribute(ctx, "csrfToken", "abc"); err != nil {
		t.Fatalf("set attribute: %v", err)
	}
	oldID := sess.ID()

	if err := sess.Regenerate(ctx); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if sess.ID() == oldID {
		t.Fatal("expected a new session id")
	}
	if mr.Exists("gws:" + oldID) {
		t.Fatal("expected old session key removed")
	}
	if ttl := mr.TTL("gws:" + sess.ID()); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl carried over, got %v", ttl)
	}
	if v, ok, err := sess.Attribute(ctx, "csrfToken"); err != nil || !ok || v != "abc" {
		t.Fatalf("expected attribute to move, got %q ok=%v err=%v", v, ok, err)
	}
	if _, err := store.Load(ctx, oldID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected old id to stop resolving, got %v", err)
	}

	if err := sess.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := sess.Regenerate(ctx); !errors.Is(err, ErrSessionInvalidated) {
		t.Fatalf("expected ErrSessionInvalidated, got %v", err)
	}
}

func TestRotateUnknownSession(t *testing.T) {
	store, _ := newSessionStoreTest(t, false)
	if _, err := store.Rotate(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
