package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultPrefix is the Redis key namespace used when none is configured.
	DefaultPrefix = "gws"
	// DefaultTTL is the idle lifetime of a session.
	DefaultTTL = 30 * time.Minute

	minSessionTTL = time.Second

	createdField   = "meta:created"
	attributeScope = "attr:"
)

const setAttributeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`

var setAttributeLua = redis.NewScript(setAttributeScript)

const renameSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("RENAME", KEYS[1], KEYS[2])
return 1
`

var renameSessionLua = redis.NewScript(renameSessionScript)

// Store is a Redis-backed session store. Each session is one hash:
//
//	<prefix>:<uuid>  meta:created=<unix>  attr:<name>=<value> ...
type Store struct {
	redis         redis.UniversalClient
	prefix        string
	ttl           time.Duration
	sliding       bool
	jitterEnabled bool
	jitterRange   time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; ttl is the idle lifetime; sliding,
// jitterEnabled and jitterRange control expiration renewal on load.
func NewStore(
	rdb redis.UniversalClient,
	prefix string,
	ttl time.Duration,
	sliding bool,
	jitterEnabled bool,
	jitterRange time.Duration,
) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		redis:         rdb,
		prefix:        prefix,
		ttl:           ttl,
		sliding:       sliding,
		jitterEnabled: jitterEnabled,
		jitterRange:   jitterRange,
	}
}

// TTL returns the configured idle lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Create allocates a new empty session.
//
//	Performance: 1 MULTI/EXEC (HSET + PEXPIRE).
func (s *Store) Create(ctx context.Context) (*RedisSession, error) {
	id := uuid.NewString()
	key := s.key(id)

	ttl, err := s.nextTTL()
	if err != nil {
		return nil, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, createdField, strconv.FormatInt(time.Now().Unix(), 10))
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return &RedisSession{store: s, id: id}, nil
}

// Load returns the session for id, renewing its TTL when sliding expiration
// is enabled. Unknown or expired ids yield [ErrSessionNotFound].
func (s *Store) Load(ctx context.Context, sessionID string) (*RedisSession, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrSessionNotFound
	}
	key := s.key(sessionID)

	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if n == 0 {
		return nil, ErrSessionNotFound
	}

	if s.sliding {
		ttl, err := s.nextTTL()
		if err != nil {
			return nil, err
		}
		ok, err := s.redis.PExpire(ctx, key, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if !ok {
			return nil, ErrSessionNotFound
		}
	}

	return &RedisSession{store: s, id: sessionID}, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Rotate moves the session stored under sessionID to a fresh id. Attributes
// and the remaining TTL carry over; the old id stops resolving.
//
//	Performance: 1 EVALSHA (EXISTS + RENAME).
func (s *Store) Rotate(ctx context.Context, sessionID string) (string, error) {
	next := uuid.NewString()
	res, err := renameSessionLua.Run(ctx, s.redis, []string{s.key(sessionID), s.key(next)}).Int64()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return "", ErrSessionNotFound
	}
	return next, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) nextTTL() (time.Duration, error) {
	next := s.ttl
	if s.jitterEnabled && s.jitterRange > 0 {
		jitter, err := randomJitter(s.jitterRange)
		if err != nil {
			return 0, err
		}
		next += jitter
	}
	if next < minSessionTTL {
		next = minSessionTTL
	}
	return next, nil
}

func randomJitter(jitterRange time.Duration) (time.Duration, error) {
	if jitterRange <= 0 {
		return 0, nil
	}

	max := jitterRange.Nanoseconds()
	if max > (math.MaxInt64-1)/2 {
		return 0, errors.New("jitter range too large")
	}
	span := max*2 + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}

	return time.Duration(n.Int64() - max), nil
}

// RedisSession is a [Session] stored in a Redis hash.
type RedisSession struct {
	store       *Store
	mu          sync.RWMutex
	id          string
	invalidated atomic.Bool
}

// ID returns the session identifier.
func (rs *RedisSession) ID() string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.id
}

// Attribute reads one attribute.
func (rs *RedisSession) Attribute(ctx context.Context, name string) (string, bool, error) {
	if rs.invalidated.Load() {
		return "", false, ErrSessionInvalidated
	}
	if err := validAttributeName(name); err != nil {
		return "", false, err
	}

	v, err := rs.store.redis.HGet(ctx, rs.store.key(rs.ID()), attributeScope+name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, true, nil
}

// SetAttribute writes one attribute. It fails with [ErrSessionNotFound] if
// the session expired between load and write rather than resurrecting it.
func (rs *RedisSession) SetAttribute(ctx context.Context, name, value string) error {
	if rs.invalidated.Load() {
		return ErrSessionInvalidated
	}
	if err := validAttributeName(name); err != nil {
		return err
	}

	res, err := setAttributeLua.Run(ctx, rs.store.redis, []string{rs.store.key(rs.ID())}, attributeScope+name, value).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RemoveAttribute deletes one attribute; removing an absent attribute is a no-op.
func (rs *RedisSession) RemoveAttribute(ctx context.Context, name string) error {
	if rs.invalidated.Load() {
		return ErrSessionInvalidated
	}
	if err := validAttributeName(name); err != nil {
		return err
	}

	if err := rs.store.redis.HDel(ctx, rs.store.key(rs.ID()), attributeScope+name).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Invalidate deletes the session and all of its attributes.
func (rs *RedisSession) Invalidate(ctx context.Context) error {
	if rs.invalidated.Load() {
		return nil
	}
	if err := rs.store.Delete(ctx, rs.ID()); err != nil {
		return err
	}
	rs.invalidated.Store(true)
	return nil
}

// Regenerate gives the session a new id, keeping its attributes.
func (rs *RedisSession) Regenerate(ctx context.Context) error {
	if rs.invalidated.Load() {
		return ErrSessionInvalidated
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	next, err := rs.store.Rotate(ctx, rs.id)
	if err != nil {
		return err
	}
	rs.id = next
	return nil
}
