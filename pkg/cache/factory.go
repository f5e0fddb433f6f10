package cache

import (
	"fmt"
	"strings"
)

// NewCache builds the backend named by cfg.Type.
func NewCache(cfg Config) (Cache, error) {
	switch kind := strings.ToLower(strings.TrimSpace(cfg.Type)); kind {
	case "", "local", "lru":
		return NewLRU(cfg.Local), nil
	case "gocache":
		return NewGoCache(cfg.Local), nil
	case "redis":
		return NewRedis(cfg.Redis)
	default:
		return nil, fmt.Errorf("cache: unknown CACHE_TYPE %q", kind)
	}
}
