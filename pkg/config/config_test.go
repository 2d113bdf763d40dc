package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstats/databank/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "filesystem", cfg.Storage.Type)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("DATABANK_PORT", "8081")
	t.Setenv("DATABANK_STORAGE_TYPE", "postgres")
	t.Setenv("DATABANK_POSTGRES_URL", "postgres://localhost/databank")
	t.Setenv("DATABANK_S3_BUCKET", "databank-artifacts")
	t.Setenv("DATABANK_REDIS_URL", "redis://localhost:6379")
	t.Setenv("DATABANK_LOG_LEVEL", "debug")
	t.Setenv("DATABANK_READ_TIMEOUT", "5s")
	t.Setenv("DATABANK_CORS_ALLOWED_ORIGINS", "https://stats.example.org, https://admin.example.org")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "postgres://localhost/databank", cfg.Storage.PostgresURL)
	assert.Equal(t, "databank-artifacts", cfg.Storage.S3Bucket)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t,
		[]string{"https://stats.example.org", "https://admin.example.org"},
		cfg.Server.CORSAllowedOrigins)
}

func TestValidate_PortsMustDiffer(t *testing.T) {
	t.Setenv("DATABANK_PORT", "9090")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "must be different")
}

func TestValidate_PostgresRequiresURL(t *testing.T) {
	t.Setenv("DATABANK_STORAGE_TYPE", "postgres")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "postgres URL is required")
}

func TestValidate_PostgresRequiresS3Bucket(t *testing.T) {
	t.Setenv("DATABANK_STORAGE_TYPE", "postgres")
	t.Setenv("DATABANK_POSTGRES_URL", "postgres://localhost/databank")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "S3 bucket is required")
}

func TestValidate_UnknownStorageType(t *testing.T) {
	t.Setenv("DATABANK_STORAGE_TYPE", "etcd")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "invalid storage type")
}
