package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// GoCache is an unbounded in-process cache with a background janitor.
type GoCache struct {
	c *gocache.Cache
}

func NewGoCache(cfg LocalConfig) *GoCache {
	return &GoCache{c: gocache.New(cfg.TTL, cfg.CleanupInterval)}
}

func (g *GoCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := g.c.Get(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (g *GoCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	g.c.Set(key, value, ttl)
	return nil
}

func (g *GoCache) Len() int { return g.c.ItemCount() }

// Close drops the entries. The janitor goroutine stops once the cache is
// garbage collected.
func (g *GoCache) Close() error {
	g.c.Flush()
	return nil
}
