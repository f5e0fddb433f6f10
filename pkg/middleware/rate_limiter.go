package middleware

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const defaultRate = "10-M"

// RateLimiterConfig
//
// Rate uses the limiter format: "10-M", "100-H". Identifier "user" keys on
// the authenticated user and falls back to the client IP; "ip" always uses
// the IP.
type RateLimiterConfig struct {
	Rate        string
	Identifier  string
	AddHeaders  bool
	DenyMessage string
}

// MetricsObserver receives allow/deny decisions, e.g. *metrics.Metrics.
type MetricsObserver interface {
	OnAllow(route string, key string)
	OnDeny(route string, key string)
}

type RateLimiter struct {
	cfg      RateLimiterConfig
	lim      *limiter.Limiter
	observer atomic.Pointer[MetricsObserver]
}

// NewRateLimiter falls back to 10 per minute when cfg.Rate does not parse.
// A nil store uses an in-process one.
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) *RateLimiter {
	if store == nil {
		store = memory.NewStore()
	}
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		rate, _ = limiter.NewRateFromFormatted(defaultRate)
	}
	return &RateLimiter{cfg: cfg, lim: limiter.New(store, rate)}
}

func (l *RateLimiter) WithObserver(observer MetricsObserver) *RateLimiter {
	l.observer.Store(&observer)
	return l
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := l.key(c)
		state, err := l.lim.Get(c, key)
		if err != nil {
			// store outage must not block an emergency request
			c.Next()
			return
		}
		if l.cfg.AddHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
		}
		if !state.Reached {
			l.report(c, key, true)
			c.Next()
			return
		}

		l.report(c, key, false)
		c.Header("Retry-After", strconv.Itoa(secondsUntil(state.Reset)))
		msg := l.cfg.DenyMessage
		if msg == "" {
			msg = "Too many panic triggers, please wait before retrying"
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests", "message": msg})
	}
}

func (l *RateLimiter) key(c *gin.Context) string {
	if l.cfg.Identifier == "user" {
		if v, ok := c.Get(UserIDKey); ok {
			if id := cast.ToUint64(v); id != 0 {
				return "user:" + strconv.FormatUint(id, 10)
			}
		}
	}
	return "ip:" + c.ClientIP()
}

func (l *RateLimiter) report(c *gin.Context, key string, allowed bool) {
	p := l.observer.Load()
	if p == nil || *p == nil {
		return
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	if allowed {
		(*p).OnAllow(route, key)
	} else {
		(*p).OnDeny(route, key)
	}
}

func secondsUntil(unix int64) int {
	s := int(time.Until(time.Unix(unix, 0)).Seconds())
	if s < 0 {
		return 0
	}
	return s
}
