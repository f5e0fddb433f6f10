package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GuardianPath/internal/models"
	"GuardianPath/pkg/cache"
)

const geoCacheName = "geo"

// CacheObserver is implemented by *metrics.Metrics.
type CacheObserver interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
}

// CachedGeo memoizes geo lookups for nearby coordinates. Cache failures fall
// through to the wrapped locator; errors are never cached.
type CachedGeo struct {
	next     GeoLocator
	cache    cache.Cache
	ttl      time.Duration
	observer CacheObserver
}

func NewCachedGeo(next GeoLocator, c cache.Cache, ttl time.Duration, observer CacheObserver) *CachedGeo {
	return &CachedGeo{next: next, cache: c, ttl: ttl, observer: observer}
}

func (g *CachedGeo) FindNearbyPlaces(ctx context.Context, loc models.Location, category string) ([]PlaceCandidate, error) {
	key := geoKey("nearby:"+category, loc)
	var places []PlaceCandidate
	if g.lookup(ctx, key, &places) {
		return places, nil
	}
	places, err := g.next.FindNearbyPlaces(ctx, loc, category)
	if err != nil {
		return nil, err
	}
	g.store(ctx, key, places)
	return places, nil
}

func (g *CachedGeo) ReverseGeocode(ctx context.Context, loc models.Location) (*AddressCandidate, error) {
	key := geoKey("reverse", loc)
	var addr *AddressCandidate
	if g.lookup(ctx, key, &addr) {
		return addr, nil
	}
	addr, err := g.next.ReverseGeocode(ctx, loc)
	if err != nil {
		return nil, err
	}
	g.store(ctx, key, addr)
	return addr, nil
}

func (g *CachedGeo) lookup(ctx context.Context, key string, out any) bool {
	v, found, err := g.cache.Get(ctx, key)
	if err == nil && found && json.Unmarshal([]byte(v), out) == nil {
		g.hit()
		return true
	}
	g.miss()
	return false
}

func (g *CachedGeo) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = g.cache.Set(ctx, key, string(b), g.ttl)
}

func (g *CachedGeo) hit() {
	if g.observer != nil {
		g.observer.RecordCacheHit(geoCacheName)
	}
}

func (g *CachedGeo) miss() {
	if g.observer != nil {
		g.observer.RecordCacheMiss(geoCacheName)
	}
}

// geoKey rounds to 4 decimals, roughly 11 m.
func geoKey(kind string, loc models.Location) string {
	return fmt.Sprintf("geo:%s:%.4f,%.4f", kind, loc.Lat, loc.Lng)
}
