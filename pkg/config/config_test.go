package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test-none")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "10-M", cfg.PanicRateLimit)
	assert.Equal(t, "azure", cfg.Vision.Provider)
	assert.Equal(t, "https://atlas.microsoft.com", cfg.Maps.Endpoint)
	assert.Equal(t, "local", cfg.Cache.Type)
	assert.False(t, cfg.Mail.Configured())
	assert.Same(t, cfg, GlobalConfig)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "test-none")
	t.Setenv("ADDR", ":9999")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("ALERT_BROADCAST_URLS", "generic+https://hooks.example.com/a,generic+https://hooks.example.com/b")
	t.Setenv("AZURE_MAPS_KEY", "maps-key")
	t.Setenv("MAIL_HOST", "smtp.example.com")
	t.Setenv("MAIL_USERNAME", "alerts")
	t.Setenv("MAIL_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.Len(t, cfg.AlertBroadcastURLs, 2)
	assert.Equal(t, "maps-key", cfg.Maps.Key)
	assert.True(t, cfg.Mail.Configured())
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("APP_ENV", "test-none")
	t.Setenv("STALE_AFTER", "soon")
	_, err := Load()
	assert.Error(t, err)
}
