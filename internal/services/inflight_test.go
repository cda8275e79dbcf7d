package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisGuard(t *testing.T) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisGuard(rdb, 10*time.Second), mr
}

func TestRedisGuard(t *testing.T) {
	g, mr := newRedisGuard(t)
	ctx := context.Background()
	key := joinGuardKey("u1", "c2")

	token, ok, err := g.Acquire(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Acquire() = (%v, %v)", ok, err)
	}
	if _, ok, _ := g.Acquire(ctx, key); ok {
		t.Error("second Acquire() succeeded while key is held")
	}

	// a stale token must not free the key
	if err := g.Release(ctx, key, "not-the-token"); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists(key) {
		t.Error("Release() with wrong token deleted the key")
	}

	if err := g.Release(ctx, key, token); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := g.Acquire(ctx, key); !ok {
		t.Error("Acquire() after Release() failed")
	}
}

func TestRedisGuard_Expiry(t *testing.T) {
	g, mr := newRedisGuard(t)
	ctx := context.Background()

	if _, ok, _ := g.Acquire(ctx, "k"); !ok {
		t.Fatal("Acquire() failed")
	}
	mr.FastForward(11 * time.Second)
	if _, ok, _ := g.Acquire(ctx, "k"); !ok {
		t.Error("Acquire() after ttl failed")
	}
}

func TestRedisGuard_Unreachable(t *testing.T) {
	g, mr := newRedisGuard(t)
	mr.Close()

	if _, _, err := g.Acquire(context.Background(), "k"); err == nil {
		t.Error("Acquire() against a closed server returned nil error")
	}
}

func TestLocalGuard(t *testing.T) {
	g := NewLocalGuard(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	token, ok, _ := g.Acquire(ctx, "k")
	if !ok {
		t.Fatal("Acquire() failed")
	}
	if _, ok, _ := g.Acquire(ctx, "k"); ok {
		t.Error("second Acquire() succeeded while key is held")
	}

	g.Release(ctx, "k", "stale")
	if _, ok, _ := g.Acquire(ctx, "k"); ok {
		t.Error("Release() with wrong token freed the key")
	}

	g.Release(ctx, "k", token)
	if _, ok, _ := g.Acquire(ctx, "k"); !ok {
		t.Error("Acquire() after Release() failed")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := g.Acquire(ctx, "k"); !ok {
		t.Error("Acquire() after expiry failed")
	}
}
