package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GuardianPath/internal/dispatch"
	"GuardianPath/internal/emergency"
	handlers "GuardianPath/internal/handler"
	"GuardianPath/internal/listeners"
	"GuardianPath/internal/models"
	"GuardianPath/internal/providers"
	"GuardianPath/pkg/cache"
	"GuardianPath/pkg/config"
	"GuardianPath/pkg/i18n"
	"GuardianPath/pkg/logger"
	"GuardianPath/pkg/metrics"
	"GuardianPath/pkg/middleware"
	"GuardianPath/pkg/notification"
	"GuardianPath/pkg/scheduler"
	"GuardianPath/pkg/sse"
	"GuardianPath/pkg/storage"
	"GuardianPath/pkg/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

const (
	sseKeepAlive     = 30 * time.Second
	systemSampleSpec = "@every 15s"
	shutdownTimeout  = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "guardianpath: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log, cfg.Mode); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	gin.SetMode(cfg.Mode)

	db, err := util.InitDatabase(logger.Writer(), cfg.DBDriver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store := models.NewGormStore(db)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	geoCache, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer geoCache.Close()

	translator, err := i18n.NewI18nSupport(cfg.Language)
	if err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	deps := emergency.Deps{
		Contacts: store,
		Events:   store,
		Notifier: dispatch.NewDispatcher(notification.NewTransport(cfg.Mail, logger.Lg), store, logger.Lg),
		Vision:   newVision(cfg),
		Geo: providers.NewCachedGeo(
			providers.NewAzureMaps(cfg.Maps.Key, cfg.Maps.Endpoint, cfg.Maps.Radius, cfg.ProviderTimeout),
			geoCache, cfg.GeoCacheTTL, m),
		Translator: translator,
		Logger:     logger.Lg,
	}
	if cfg.Minio.Configured() {
		photos, err := storage.NewMinioStore(cfg.Minio)
		if err != nil {
			return fmt.Errorf("init photo storage: %w", err)
		}
		deps.Photos = photos
	} else {
		logger.Info("photo storage not configured, photos are discarded after analysis")
	}
	orchestrator, err := emergency.New(deps)
	if err != nil {
		return err
	}

	broadcaster, err := notification.NewBroadcaster(cfg.AlertBroadcastURLs, cfg.ProviderTimeout, logger.Lg)
	if err != nil {
		logger.Warn("ops broadcast disabled", zap.Error(err))
	}
	hub := sse.NewHub(sseKeepAlive)
	listener := listeners.InitPanicListeners(orchestrator, hub, m, broadcaster, logger.Lg)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:       cfg.PanicRateLimit,
		Identifier: "user",
		AddHeaders: true,
	}, memory.NewStore()).WithObserver(m)

	engine := gin.New()
	engine.Use(gin.Logger(), sessions.Sessions("guardianpath", cookie.NewStore([]byte(cfg.SessionSecret))))
	handlers.NewHandlers(db, orchestrator, store, handlers.Options{
		APIPrefix:     cfg.APIPrefix,
		MetricsPath:   cfg.MetricsPath,
		MaxPhotoBytes: cfg.MaxPhotoBytes,
		Hub:           hub,
		Metrics:       m,
		I18n:          translator,
		RateLimiter:   limiter,
	}).Register(engine)

	cron := scheduler.NewCron(time.Local, logger.Lg)
	if _, err := cron.Add(cfg.StaleSweepSchedule, &emergency.Sweeper{
		Source: store,
		Gauge:  m,
		MaxAge: cfg.StaleAfter,
		Logger: logger.Lg,
	}); err != nil {
		return fmt.Errorf("schedule stale sweep: %w", err)
	}
	if _, err := cron.Add(systemSampleSpec, scheduler.FuncJob(func(ctx context.Context) {
		if err := m.SampleSystem(ctx); err != nil {
			logger.Debug("sample system metrics", zap.Error(err))
		}
	})); err != nil {
		return fmt.Errorf("schedule system sampler: %w", err)
	}
	cron.Start()
	defer cron.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	listener.Wait()
	return nil
}

// newVision picks the configured analyzer. Missing credentials surface as
// ErrNotConfigured on each call.
func newVision(cfg *config.Config) providers.VisionAnalyzer {
	v := cfg.Vision
	switch v.Provider {
	case "openai":
		lg := logrus.New()
		lg.SetOutput(logger.Writer())
		return providers.NewOpenAIVision(v.OpenAIKey, v.OpenAIBaseURL, v.OpenAIModel, cfg.ProviderTimeout, lg)
	default:
		return providers.NewAzureVision(v.AzureEndpoint, v.AzureKey, cfg.ProviderTimeout)
	}
}
