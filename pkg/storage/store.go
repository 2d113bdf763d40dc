// Package storage defines the backing-store contract for published data
// sets, their versions, catalog metadata, preview tokens and CSV artifacts.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/openstats/databank/pkg/model"
)

// ErrNotFound is returned for any record or artifact that does not exist.
// The read path maps it to a 404; a missing CSV artifact is indistinguishable
// from one not yet produced, so it is not a server error.
var ErrNotFound = errors.New("not found")

// Store is the read-side contract the API serves from. Writes exist only so
// the ingestion workflow (and tests) can seed a store; the read operations
// never mutate records.
type Store interface {
	// Data sets
	GetDataSet(ctx context.Context, id string) (*model.DataSet, error)
	ListDataSets(ctx context.Context) ([]*model.DataSet, error)

	// Versions
	GetDataSetVersionByID(ctx context.Context, id string) (*model.DataSetVersion, error)
	ListDataSetVersions(ctx context.Context, dataSetID string) ([]*model.DataSetVersion, error)

	// Preview tokens
	GetPreviewToken(ctx context.Context, id string) (*model.PreviewToken, error)

	// Catalog metadata
	GetVersionMeta(ctx context.Context, versionID string) (*model.VersionMeta, error)

	// OpenCsv streams the gzip-compressed CSV artifact for a version. The
	// artifact is written once at publish time and immutable thereafter.
	OpenCsv(ctx context.Context, versionID string) (io.ReadCloser, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

// Config selects and configures a storage backend.
type Config struct {
	Type string // "filesystem" or "postgres"

	// Filesystem config
	FilesystemRoot string

	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// S3 config (CSV artifacts)
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// Redis config (read-through cache)
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// Cache config
	CacheEnabled bool
	CacheTTL     map[string]time.Duration
	L1CacheSize  int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             "filesystem",
		FilesystemRoot:   "/tmp/databank",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		CacheEnabled:     true,
		CacheTTL: map[string]time.Duration{
			"data_set":     1 * time.Hour,
			"version":      1 * time.Hour,
			"version_list": 5 * time.Minute,
			"meta":         30 * time.Minute,
		},
		L1CacheSize: 1024, // entries
	}
}
