package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/openshelf/library-system/internal/core/ports"
)

const (
	catalogPageTTL = 5 * time.Minute
	catalogGenKey  = "catalog:gen"
)

// CatalogCache caches paginated catalog listings in Redis. Every key
// embeds a generation counter; bumping the counter on any catalog
// mutation orphans all cached pages at once, no key scan needed.
// Cache failures degrade to a repository read, never to an error.
type CatalogCache struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewCatalogCache creates a CatalogCache wrapping the given Redis client.
func NewCatalogCache(client *redis.Client, log zerolog.Logger) *CatalogCache {
	return &CatalogCache{client: client, log: log}
}

// GetPage looks up a cached listing for the given filter.
func (c *CatalogCache) GetPage(ctx context.Context, filter ports.BookFilter) (*ports.BookPage, bool) {
	key, err := c.key(ctx, filter)
	if err != nil {
		c.log.Warn().Err(err).Msg("catalog cache key")
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Msg("catalog cache get")
		}
		return nil, false
	}

	var page ports.BookPage
	if err := json.Unmarshal(raw, &page); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("catalog cache decode")
		return nil, false
	}
	return &page, true
}

// SetPage stores a listing under the current generation with a short TTL.
func (c *CatalogCache) SetPage(ctx context.Context, filter ports.BookFilter, page *ports.BookPage) {
	key, err := c.key(ctx, filter)
	if err != nil {
		c.log.Warn().Err(err).Msg("catalog cache key")
		return
	}

	raw, err := json.Marshal(page)
	if err != nil {
		c.log.Warn().Err(err).Msg("catalog cache encode")
		return
	}

	if err := c.client.Set(ctx, key, raw, catalogPageTTL).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("catalog cache set")
	}
}

// Invalidate bumps the generation counter, orphaning all cached pages.
// Orphans expire on their own TTL.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, catalogGenKey).Err(); err != nil {
		c.log.Warn().Err(err).Msg("catalog cache invalidate")
	}
}

func (c *CatalogCache) key(ctx context.Context, f ports.BookFilter) (string, error) {
	gen, err := c.client.Get(ctx, catalogGenKey).Int64()
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("catalog generation: %w", err)
	}

	minPrice, maxPrice := -1.0, -1.0
	if f.MinPrice != nil {
		minPrice = *f.MinPrice
	}
	if f.MaxPrice != nil {
		maxPrice = *f.MaxPrice
	}
	return fmt.Sprintf("catalog:%d:%s:%s:%g:%g:%d:%d",
		gen, f.Author, f.Category, minPrice, maxPrice, f.Page, f.Limit), nil
}
