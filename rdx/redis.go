package rdx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Connect returns a client for addr, or nil when Redis is unreachable.
// Callers treat a nil client as "no cache, no events".
func Connect(ctx context.Context, addr, password string, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable; caching and live events disabled", "addr", addr, "err", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Cache stores JSON values under string keys. A Cache with a nil client
// misses every lookup and drops every write.
type Cache struct {
	conn redis.Cmdable
}

func NewCache(client *redis.Client) *Cache {
	if client == nil {
		return &Cache{}
	}
	return &Cache{conn: client}
}

func (c *Cache) enabled() bool {
	return c != nil && c.conn != nil
}

// GetJSON decodes the value at key into dst and reports whether it was found.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	raw, err := c.conn.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.enabled() || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.conn.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() {
		return nil
	}
	return c.conn.Del(ctx, keys...).Err()
}

// unlockScript deletes the lock only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lock takes key for ttl with SET NX and returns the token that owns it.
// Without a client every lock succeeds.
func (c *Cache) Lock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if !c.enabled() {
		return "", true, nil
	}
	token := uuid.NewString()
	ok, err := c.conn.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Unlock releases key if token still owns it. A lock that expired and was
// taken by someone else is left alone.
func (c *Cache) Unlock(ctx context.Context, key, token string) {
	if !c.enabled() {
		return
	}
	if err := unlockScript.Run(ctx, c.conn, []string{key}, token).Err(); err != nil {
		slog.Warn("redis unlock failed", "key", key, "err", err)
	}
}
