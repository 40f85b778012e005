package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), &redis.Options{Addr: mr.Addr()}, time.Minute, "test:")
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	type item struct {
		Name string `json:"name"`
	}
	if err := c.Set(ctx, "a", item{Name: "x"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("test:a") {
		t.Error("expected prefixed key in redis")
	}
	if ttl := mr.TTL("test:a"); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}

	var got item
	if err := c.Get(ctx, "a", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "x" {
		t.Errorf("got %+v", got)
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.Get(ctx, "a", &got); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after delete error = %v, want ErrMiss", err)
	}
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedisCache(context.Background(), &redis.Options{Addr: addr}, time.Minute, ""); err == nil {
		t.Error("expected error for unreachable redis")
	}
}
