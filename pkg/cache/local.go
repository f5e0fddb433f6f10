package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type lruEntry struct {
	value   string
	expires time.Time
}

// LRU is a size-bounded in-process cache. The expirable LRU has a single
// TTL, so shorter per-entry TTLs are checked on read.
type LRU struct {
	entries *expirable.LRU[string, lruEntry]
	ttl     time.Duration
	now     func() time.Time
}

func NewLRU(cfg LocalConfig) *LRU {
	size := cfg.MaxEntries
	if size <= 0 {
		size = 1000
	}
	return &LRU{
		entries: expirable.NewLRU[string, lruEntry](size, nil, cfg.TTL),
		ttl:     cfg.TTL,
		now:     time.Now,
	}
}

func (l *LRU) Get(_ context.Context, key string) (string, bool, error) {
	e, ok := l.entries.Get(key)
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && l.now().After(e.expires) {
		l.entries.Remove(key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (l *LRU) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := lruEntry{value: value}
	if ttl > 0 && (l.ttl <= 0 || ttl < l.ttl) {
		e.expires = l.now().Add(ttl)
	}
	l.entries.Add(key, e)
	return nil
}

func (l *LRU) Len() int { return l.entries.Len() }

func (l *LRU) Close() error {
	l.entries.Purge()
	return nil
}
