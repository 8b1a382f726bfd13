package cache

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/foundation/errors"
	"github.com/kbukum/foundation/provider"
)

// RedisOptions configures the redis driver when no client handle is
// supplied.
type RedisOptions struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Prefix       string        `mapstructure:"prefix"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Redis stores entries as plain redis string keys.
type Redis struct {
	client  goredis.Cmdable
	prefix  string
	started time.Time
	owned   *goredis.Client
}

// NewRedis wraps an existing go-redis handle. Keys are prefixed with
// prefix as-is.
func NewRedis(client goredis.Cmdable, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix, started: time.Now()}
}

// redisFactory uses cache.client when present. Without one, cache.addr
// dials a client the cache owns and closes.
func redisFactory(_ provider.Host, cfg provider.DriverConfig) (any, error) {
	var opts RedisOptions
	raw := cfg.Value("client", nil)
	if err := cfg.Decode(&opts); err != nil && raw == nil {
		return nil, err
	}
	if raw != nil {
		client, ok := raw.(goredis.Cmdable)
		if !ok {
			return nil, errors.MissingDependency(Concern, "client", "go-redis client")
		}
		return NewRedis(client, cfg.String("prefix", "")), nil
	}
	if opts.Addr == "" {
		return nil, errors.MissingDependency(Concern, "client", "go-redis client")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	c := NewRedis(rdb, opts.Prefix)
	c.owned = rdb
	return c, nil
}

func (c *Redis) key(id string) string { return c.prefix + id }

// Fetch implements Cache.
func (c *Redis) Fetch(ctx context.Context, id string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if stderrors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache: fetch %s: %w", id, err)
	}
	return data, true, nil
}

// Contains implements Cache.
func (c *Redis) Contains(ctx context.Context, id string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis cache: contains %s: %w", id, err)
	}
	return n > 0, nil
}

// Save implements Cache.
func (c *Redis) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: save %s: %w", id, err)
	}
	return nil
}

// Delete implements Cache.
func (c *Redis) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("redis cache: delete %s: %w", id, err)
	}
	return nil
}

// Flush implements Cache. With a prefix only matching keys are removed;
// without one the whole database is flushed.
func (c *Redis) Flush(ctx context.Context) error {
	if c.prefix == "" {
		return c.client.FlushDB(ctx).Err()
	}
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis cache: flush: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Stats implements Cache from the server's INFO report.
func (c *Redis) Stats(ctx context.Context) (Stats, error) {
	info, err := c.client.Info(ctx).Result()
	if err != nil {
		return Stats{Uptime: time.Since(c.started)}, fmt.Errorf("redis cache: stats: %w", err)
	}
	return parseInfo(info), nil
}

// Close closes the client when the cache dialed it itself.
func (c *Redis) Close() error {
	if c.owned == nil {
		return nil
	}
	return c.owned.Close()
}

func parseInfo(info string) Stats {
	fields := make(map[string]int64)
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok || strings.HasPrefix(k, "#") {
			continue
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			fields[k] = n
		}
	}
	return Stats{
		Hits:            fields["keyspace_hits"],
		Misses:          fields["keyspace_misses"],
		Uptime:          time.Duration(fields["uptime_in_seconds"]) * time.Second,
		MemoryUsage:     fields["used_memory"],
		MemoryAvailable: fields["maxmemory"],
	}
}
