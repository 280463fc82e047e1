package cache

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(time.Minute)
	mc.now = func() time.Time { return now }

	if err := mc.Set(ctx, "hash", "pi-01"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := mc.Get(ctx, "hash")
	if err != nil || !ok || got != "pi-01" {
		t.Fatalf("Get: want=pi-01 got=%q ok=%v err=%v", got, ok, err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := mc.Get(ctx, "hash"); ok {
		t.Fatalf("Get after ttl: want miss")
	}
	if n := mc.Stats()["entries"].(int); n != 0 {
		t.Fatalf("expired entry should be evicted on read, entries=%d", n)
	}
}

func TestMemoryCacheDeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(time.Second)
	mc.now = func() time.Time { return now }

	_ = mc.Set(ctx, "a", "dev-a")
	_ = mc.Set(ctx, "b", "dev-b")
	_ = mc.Delete(ctx, "a")
	if _, ok, _ := mc.Get(ctx, "a"); ok {
		t.Fatalf("deleted key still present")
	}

	now = now.Add(5 * time.Second)
	if removed := mc.Purge(); removed != 1 {
		t.Fatalf("Purge: want=1 got=%d", removed)
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	defer client.Close()

	rc := NewRedisCache(client, time.Minute)
	key := "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	ctx = context.Background()

	if _, ok, err := rc.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get before Set: ok=%v err=%v", ok, err)
	}
	if err := rc.Set(ctx, key, "pi-01"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := rc.Get(ctx, key)
	if err != nil || !ok || got != "pi-01" {
		t.Fatalf("Get: want=pi-01 got=%q ok=%v err=%v", got, ok, err)
	}
	if err := rc.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
