package cache

import (
	"context"
	"time"
)

// Cache keeps encoded lookup results (JSON documents) by key. Get reports a
// backend failure separately from a miss so callers can fall through.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value for ttl; ttl <= 0 uses the backend default.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// "local", "gocache" or "redis"
	Type string `env:"CACHE_TYPE" envDefault:"local"`

	Redis RedisConfig
	Local LocalConfig
}

type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// KeyPrefix namespaces every key this process writes.
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"guardianpath:"`
}

type LocalConfig struct {
	MaxEntries int           `env:"LOCAL_CACHE_MAX_ENTRIES" envDefault:"1000"`
	TTL        time.Duration `env:"LOCAL_CACHE_TTL" envDefault:"15m"`

	// go-cache janitor interval
	CleanupInterval time.Duration `env:"LOCAL_CACHE_CLEANUP_INTERVAL" envDefault:"10m"`
}
