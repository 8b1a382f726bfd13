package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

// newTestRedis creates a go-redis client backed by miniredis.
func newTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mini
}

func TestRedis_SaveFetchDelete(t *testing.T) {
	client, mini := newTestRedis(t)
	c := NewRedis(client, "sdk:")
	ctx := context.Background()

	if _, ok, err := c.Fetch(ctx, "token"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if err := c.Save(ctx, "token", []byte("abc"), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !mini.Exists("sdk:token") {
		t.Fatal("expected prefixed key in redis")
	}
	if ttl := mini.TTL("sdk:token"); ttl != time.Minute {
		t.Errorf("expected 1m ttl, got %v", ttl)
	}

	got, ok, err := c.Fetch(ctx, "token")
	if err != nil || !ok || string(got) != "abc" {
		t.Fatalf("expected hit abc, got %q ok=%v err=%v", got, ok, err)
	}
	if has, _ := c.Contains(ctx, "token"); !has {
		t.Error("expected Contains=true")
	}
	if err := c.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if has, _ := c.Contains(ctx, "token"); has {
		t.Error("expected key removed")
	}
}

func TestRedis_Expiry(t *testing.T) {
	client, mini := newTestRedis(t)
	c := NewRedis(client, "")
	ctx := context.Background()

	_ = c.Save(ctx, "k", []byte("v"), time.Second)
	mini.FastForward(2 * time.Second)
	if _, ok, _ := c.Fetch(ctx, "k"); ok {
		t.Error("expected expired key to miss")
	}
}

func TestRedis_FlushPrefixOnly(t *testing.T) {
	client, mini := newTestRedis(t)
	c := NewRedis(client, "sdk:")
	ctx := context.Background()

	_ = c.Save(ctx, "a", []byte("1"), 0)
	_ = c.Save(ctx, "b", []byte("2"), 0)
	_ = mini.Set("other", "keep")

	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if mini.Exists("sdk:a") || mini.Exists("sdk:b") {
		t.Error("expected prefixed keys removed")
	}
	if !mini.Exists("other") {
		t.Error("expected foreign key to survive")
	}
}

func TestParseInfo(t *testing.T) {
	info := "# Server\r\nuptime_in_seconds:120\r\n\r\n# Memory\r\nused_memory:2048\r\nmaxmemory:0\r\n# Stats\r\nkeyspace_hits:7\r\nkeyspace_misses:3\r\n"
	stats := parseInfo(info)
	if stats.Hits != 7 || stats.Misses != 3 {
		t.Errorf("unexpected hits/misses %+v", stats)
	}
	if stats.Uptime != 2*time.Minute || stats.MemoryUsage != 2048 {
		t.Errorf("unexpected uptime/memory %+v", stats)
	}
}
