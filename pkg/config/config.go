package config

import (
	"log"
	"os"
	"time"

	"GuardianPath/pkg/cache"
	"GuardianPath/pkg/logger"
	"GuardianPath/pkg/notification"
	"GuardianPath/pkg/storage"
	"GuardianPath/pkg/util"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr          string `env:"ADDR" envDefault:":8080"`
	Mode          string `env:"MODE" envDefault:"debug"`
	APIPrefix     string `env:"API_PREFIX" envDefault:"/api"`
	DBDriver      string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN           string `env:"DSN" envDefault:"file:guardianpath.db"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"change-me"`
	Language      string `env:"DEFAULT_LANGUAGE" envDefault:"en"`

	Log    logger.LogConfig
	Mail   notification.MailConfig
	Cache  cache.Config
	Minio  storage.MinioConfig
	Maps   MapsConfig
	Vision VisionConfig

	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
	GeoCacheTTL        time.Duration `env:"GEO_CACHE_TTL" envDefault:"15m"`
	AlertBroadcastURLs []string      `env:"ALERT_BROADCAST_URLS" envSeparator:","`
	PanicRateLimit     string        `env:"PANIC_RATE_LIMIT" envDefault:"10-M"`
	MetricsPath        string        `env:"METRICS_PATH" envDefault:"/metrics"`
	StaleSweepSchedule string        `env:"STALE_SWEEP_SCHEDULE" envDefault:"@every 5m"`
	StaleAfter         time.Duration `env:"STALE_AFTER" envDefault:"10m"`
	MaxPhotoBytes      int64         `env:"MAX_PHOTO_BYTES" envDefault:"10485760"`
}

type MapsConfig struct {
	Key      string `env:"AZURE_MAPS_KEY"`
	Endpoint string `env:"AZURE_MAPS_ENDPOINT" envDefault:"https://atlas.microsoft.com"`
	Radius   int    `env:"AZURE_MAPS_RADIUS" envDefault:"5000"`
}

type VisionConfig struct {
	Provider      string `env:"VISION_PROVIDER" envDefault:"azure"`
	AzureEndpoint string `env:"AZURE_VISION_ENDPOINT"`
	AzureKey      string `env:"AZURE_VISION_KEY"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_VISION_MODEL" envDefault:"gpt-4o-mini"`
}

// GlobalConfig is set by Load for the process entrypoint. Library code takes
// its settings through constructors instead.
var GlobalConfig *Config

func Load() (*Config, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development"
	}
	if err := util.LoadEnv(appEnv); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	GlobalConfig = &cfg
	return &cfg, nil
}
