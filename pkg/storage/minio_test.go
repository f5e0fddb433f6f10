package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicURL(t *testing.T) {
	cfg := MinioConfig{Endpoint: "minio:9000", Bucket: "panic-photos"}
	assert.Equal(t, "http://minio:9000/panic-photos/panic/p1/a.jpg", PublicURL(cfg, "panic/p1/a.jpg"))

	cfg.UseSSL = true
	assert.Equal(t, "https://minio:9000/panic-photos/k", PublicURL(cfg, "k"))

	cfg.BaseURL = "https://cdn.example.com/"
	assert.Equal(t, "https://cdn.example.com/k", PublicURL(cfg, "k"))
}

func TestNewMinioStoreRequiresCredentials(t *testing.T) {
	_, err := NewMinioStore(MinioConfig{Endpoint: "minio:9000"})
	assert.Error(t, err)

	s, err := NewMinioStore(MinioConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b", Bucket: "x"})
	assert.NoError(t, err)
	assert.NotNil(t, s)
}
