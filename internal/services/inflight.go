package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrJoinInProgress is returned when another request holds the guard.
var ErrJoinInProgress = errors.New("join already in progress")

// InFlightGuard is a short-lived lock keyed by an arbitrary string.
type InFlightGuard interface {
	// Acquire returns a token when the key was free. ok is false while
	// another holder owns the key.
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	// Release frees key only if token still owns it.
	Release(ctx context.Context, key, token string) error
}

const guardKeyPrefix = "creatorclub:join"

func joinGuardKey(userID, communityID string) string {
	return guardKeyPrefix + ":" + userID + ":" + communityID
}

// RedisGuard shares the guard across replicas.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

func (g *RedisGuard) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, g.rdb, []string{key}, token).Err()
}

// LocalGuard is the single-process fallback when Redis is disabled.
type LocalGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	held map[string]localHold
	now  func() time.Time
}

type localHold struct {
	token     string
	expiresAt time.Time
}

func NewLocalGuard(ttl time.Duration) *LocalGuard {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &LocalGuard{ttl: ttl, held: make(map[string]localHold), now: time.Now}
}

func (g *LocalGuard) Acquire(_ context.Context, key string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if len(g.held) > 1024 {
		for k, h := range g.held {
			if !now.Before(h.expiresAt) {
				delete(g.held, k)
			}
		}
	}
	if h, ok := g.held[key]; ok && now.Before(h.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	g.held[key] = localHold{token: token, expiresAt: now.Add(g.ttl)}
	return token, true, nil
}

func (g *LocalGuard) Release(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if h, ok := g.held[key]; ok && h.token == token {
		delete(g.held, key)
	}
	return nil
}
