package handlers

import (
	"context"

	"GuardianPath/internal/emergency"
	"GuardianPath/internal/models"
	"GuardianPath/pkg/i18n"
	"GuardianPath/pkg/metrics"
	"GuardianPath/pkg/middleware"
	"GuardianPath/pkg/sse"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Trigger interface {
	HandleTrigger(ctx context.Context, id emergency.Identity, req emergency.TriggerRequest) (*emergency.PanicResponse, error)
}

type EventHistory interface {
	RecentEvents(ctx context.Context, userID uint, limit int) ([]models.PanicEvent, error)
}

type Options struct {
	APIPrefix     string
	MetricsPath   string
	MaxPhotoBytes int64

	Hub         *sse.Hub
	Metrics     *metrics.Metrics
	I18n        *i18n.I18nSupport
	RateLimiter *middleware.RateLimiter

	// Auth defaults to models.AuthRequired.
	Auth gin.HandlerFunc
}

type Handlers struct {
	db      *gorm.DB
	trigger Trigger
	history EventHistory
	opts    Options
}

func NewHandlers(db *gorm.DB, trigger Trigger, history EventHistory, opts Options) *Handlers {
	if opts.Auth == nil {
		opts.Auth = models.AuthRequired
	}
	return &Handlers{
		db:      db,
		trigger: trigger,
		history: history,
		opts:    opts,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	engine.Use(Recovery())
	if h.opts.Metrics != nil {
		engine.Use(metrics.MonitorMiddleware(h.opts.Metrics))
		if h.opts.MetricsPath != "" {
			engine.GET(h.opts.MetricsPath, gin.WrapH(h.opts.Metrics.Handler()))
		}
	}

	r := engine.Group(h.opts.APIPrefix)
	r.Use(models.InjectDB(h.db))
	if h.opts.I18n != nil {
		r.Use(middleware.LanguageMiddleware(h.opts.I18n))
	}

	// Register System Module Routes
	h.registerSystemRoutes(r)

	// Register Panic Module Routes
	h.registerPanicRoutes(r)
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)
	}
}

func (h *Handlers) registerPanicRoutes(r *gin.RouterGroup) {
	trigger := []gin.HandlerFunc{h.opts.Auth}
	if h.opts.RateLimiter != nil {
		trigger = append(trigger, h.opts.RateLimiter.Middleware())
	}
	r.POST("/panic", append(trigger, h.handlePanicTrigger)...)

	r.GET("/panic/stream", h.opts.Auth, h.handlePanicStream)

	r.GET("/panic-events", h.opts.Auth, h.handleListPanicEvents)
}
