//go:build integration

package postgres

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openstats/databank/pkg/storage"
)

// setupMinIO creates a MinIO testcontainer and returns an S3Client configured to use it
func setupMinIO(t *testing.T) *S3Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start MinIO container")
	t.Cleanup(func() { minioContainer.Terminate(ctx) })

	host, err := minioContainer.Host(ctx)
	require.NoError(t, err)

	port, err := minioContainer.MappedPort(ctx, "9000")
	require.NoError(t, err)

	cfg := storage.DefaultConfig()
	cfg.S3Endpoint = "http://" + host + ":" + port.Port()
	cfg.S3AccessKey = "minioadmin"
	cfg.S3SecretKey = "minioadmin"
	cfg.S3Bucket = "databank-test"
	cfg.S3Region = "us-east-1"
	cfg.S3UsePathStyle = true

	client, err := NewS3Client(cfg)
	require.NoError(t, err, "Failed to create S3 client against MinIO")

	return client
}

func TestS3CsvArtifactRoundTrip(t *testing.T) {
	client := setupMinIO(t)
	ctx := context.Background()

	csv := []byte("time_period,geographic_level,sess_overall_percent\n2023/24,country,6.9\n")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(csv)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	key := csvObjectKey("v-2")
	require.NoError(t, client.PutObject(ctx, key, &buf, "text/csv"))

	exists, err := client.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	body, err := client.GetObject(ctx, key)
	require.NoError(t, err)
	defer body.Close()

	gr, err := gzip.NewReader(body)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, csv, decompressed)
}

func TestS3GetObject_NotFound(t *testing.T) {
	client := setupMinIO(t)

	_, err := client.GetObject(context.Background(), csvObjectKey("absent"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestS3DeleteObject(t *testing.T) {
	client := setupMinIO(t)
	ctx := context.Background()

	key := csvObjectKey("v-del")
	require.NoError(t, client.PutObject(ctx, key, bytes.NewReader([]byte("x")), "text/csv"))
	require.NoError(t, client.DeleteObject(ctx, key))

	exists, err := client.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3HealthCheck(t *testing.T) {
	client := setupMinIO(t)
	assert.NoError(t, client.HealthCheck(context.Background()))
}
