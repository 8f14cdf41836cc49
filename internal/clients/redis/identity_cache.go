package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/anuragind003/cdp-backend/internal/logger"
)

// IdentityCache maps identifier values (mobile/pan/...) to customer ids so
// the dedup hot path can skip the OR-query for repeat identifiers. Purely a
// cache: misses and failures fall through to the database.
type IdentityCache interface {
	Get(ctx context.Context, field, value string) (uuid.UUID, bool)
	Set(ctx context.Context, field, value string, customerID uuid.UUID)
	Invalidate(ctx context.Context, field, value string)
	Close() error
}

type identityCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewIdentityCache(log *logger.Logger) (IdentityCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_KEY_PREFIX"))
	if prefix == "" {
		prefix = "cdp:ident"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &identityCache{
		log:    log.With("service", "RedisIdentityCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    24 * time.Hour,
	}, nil
}

func (c *identityCache) key(field, value string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, field, value)
}

func (c *identityCache) Get(ctx context.Context, field, value string) (uuid.UUID, bool) {
	if value == "" {
		return uuid.Nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key(field, value)).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.Debug("cache get failed", "field", field, "error", err)
		}
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *identityCache) Set(ctx context.Context, field, value string, customerID uuid.UUID) {
	if value == "" || customerID == uuid.Nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(field, value), customerID.String(), c.ttl).Err(); err != nil {
		c.log.Debug("cache set failed", "field", field, "error", err)
	}
}

func (c *identityCache) Invalidate(ctx context.Context, field, value string) {
	if value == "" {
		return
	}
	if err := c.rdb.Del(ctx, c.key(field, value)).Err(); err != nil {
		c.log.Debug("cache invalidate failed", "field", field, "error", err)
	}
}

func (c *identityCache) Close() error {
	return c.rdb.Close()
}
