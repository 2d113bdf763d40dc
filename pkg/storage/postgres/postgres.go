// Package postgres implements the storage contract on PostgreSQL, with CSV
// artifacts in S3-compatible object storage and a two-tier (in-process LRU
// plus Redis) read cache for hot records.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.opentelemetry.io/otel"

	"github.com/openstats/databank/pkg/model"
	"github.com/openstats/databank/pkg/storage"
)

var tracer = otel.Tracer("github.com/openstats/databank/pkg/storage/postgres")

// PostgresStore implements storage.Store using PostgreSQL + S3 + Redis
type PostgresStore struct {
	db          *sql.DB
	s3Client    *S3Client
	redisClient *RedisClient
	l1          *l1Cache
	config      storage.Config
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(config storage.Config) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(config.PostgresMaxConns)
	db.SetMaxIdleConns(config.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), config.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var s3Client *S3Client
	if config.S3Bucket != "" {
		s3Client, err = NewS3Client(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
	}

	var redisClient *RedisClient
	if config.CacheEnabled && config.RedisURL != "" {
		redisClient, err = NewRedisClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
	}

	var l1 *l1Cache
	if config.CacheEnabled {
		l1 = newL1Cache(config.L1CacheSize, config.CacheTTL["data_set"])
	}

	return &PostgresStore{
		db:          db,
		s3Client:    s3Client,
		redisClient: redisClient,
		l1:          l1,
		config:      config,
	}, nil
}

// GetDataSet implements storage.Store.GetDataSet. Lookups go through the
// in-process LRU, then Redis, then PostgreSQL; both caches are filled on the
// way back out.
func (s *PostgresStore) GetDataSet(ctx context.Context, id string) (*model.DataSet, error) {
	if s.l1 != nil {
		if ds, ok := s.l1.getDataSet(id); ok {
			return ds, nil
		}
	}
	if s.redisClient != nil {
		if ds, err := s.redisClient.GetDataSet(ctx, id); err == nil && ds != nil {
			if s.l1 != nil {
				s.l1.setDataSet(ds)
			}
			return ds, nil
		}
	}

	query := `
		SELECT id, title, summary, status,
		       COALESCE(superseded_by_id, ''),
		       COALESCE(latest_live_version_id, ''),
		       COALESCE(latest_draft_version_id, ''),
		       created, updated
		FROM data_sets
		WHERE id = $1
	`

	var ds model.DataSet
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ds.ID,
		&ds.Title,
		&ds.Summary,
		&ds.Status,
		&ds.SupersededByID,
		&ds.LatestLiveVersionID,
		&ds.LatestDraftVersionID,
		&ds.Created,
		&ds.Updated,
	)

	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get data set: %w", err)
	}

	if s.redisClient != nil {
		s.redisClient.SetDataSet(ctx, &ds)
	}
	if s.l1 != nil {
		s.l1.setDataSet(&ds)
	}

	return &ds, nil
}

// ListDataSets implements storage.Store.ListDataSets
func (s *PostgresStore) ListDataSets(ctx context.Context) ([]*model.DataSet, error) {
	query := `
		SELECT id, title, summary, status,
		       COALESCE(superseded_by_id, ''),
		       COALESCE(latest_live_version_id, ''),
		       COALESCE(latest_draft_version_id, ''),
		       created, updated
		FROM data_sets
		ORDER BY title
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sets: %w", err)
	}
	defer rows.Close()

	var dataSets []*model.DataSet
	for rows.Next() {
		var ds model.DataSet
		err := rows.Scan(
			&ds.ID, &ds.Title, &ds.Summary, &ds.Status,
			&ds.SupersededByID, &ds.LatestLiveVersionID, &ds.LatestDraftVersionID,
			&ds.Created, &ds.Updated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data set: %w", err)
		}
		dataSets = append(dataSets, &ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data sets: %w", err)
	}

	return dataSets, nil
}

// GetDataSetVersionByID implements storage.Store.GetDataSetVersionByID
func (s *PostgresStore) GetDataSetVersionByID(ctx context.Context, id string) (*model.DataSetVersion, error) {
	if s.redisClient != nil {
		if v, err := s.redisClient.GetVersion(ctx, id); err == nil && v != nil {
			return v, nil
		}
	}

	query := `
		SELECT id, data_set_id, major, minor, patch, status,
		       published, total_results, meta_summary, created
		FROM data_set_versions
		WHERE id = $1
	`

	v, err := scanVersion(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get data set version: %w", err)
	}

	if s.redisClient != nil {
		s.redisClient.SetVersion(ctx, v)
	}

	return v, nil
}

// ListDataSetVersions implements storage.Store.ListDataSetVersions
func (s *PostgresStore) ListDataSetVersions(ctx context.Context, dataSetID string) ([]*model.DataSetVersion, error) {
	query := `
		SELECT id, data_set_id, major, minor, patch, status,
		       published, total_results, meta_summary, created
		FROM data_set_versions
		WHERE data_set_id = $1
		ORDER BY major DESC, minor DESC, patch DESC
	`

	rows, err := s.db.QueryContext(ctx, query, dataSetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list data set versions: %w", err)
	}
	defer rows.Close()

	var versions []*model.DataSetVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data set version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data set versions: %w", err)
	}

	return versions, nil
}

// GetPreviewToken implements storage.Store.GetPreviewToken. Token lookups
// deliberately bypass the caches so expiry checks always see the stored row.
func (s *PostgresStore) GetPreviewToken(ctx context.Context, id string) (*model.PreviewToken, error) {
	query := `
		SELECT id, data_set_version_id, COALESCE(label, ''), created, expiry
		FROM preview_tokens
		WHERE id = $1
	`

	var t model.PreviewToken
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.DataSetVersionID,
		&t.Label,
		&t.Created,
		&t.Expiry,
	)

	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get preview token: %w", err)
	}

	return &t, nil
}

// GetVersionMeta implements storage.Store.GetVersionMeta. The catalog is
// assembled from one query per collection.
func (s *PostgresStore) GetVersionMeta(ctx context.Context, versionID string) (*model.VersionMeta, error) {
	if s.redisClient != nil {
		if m, err := s.redisClient.GetVersionMeta(ctx, versionID); err == nil && m != nil {
			return m, nil
		}
	}

	// The version row anchors existence: an unknown version is not-found
	// rather than an empty catalog.
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM data_set_versions WHERE id = $1)", versionID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check version: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	meta := &model.VersionMeta{DataSetVersionID: versionID}

	if meta.Filters, err = s.queryFilters(ctx, versionID); err != nil {
		return nil, err
	}
	if meta.Locations, err = s.queryLocations(ctx, versionID); err != nil {
		return nil, err
	}
	if meta.Indicators, err = s.queryIndicators(ctx, versionID); err != nil {
		return nil, err
	}
	if meta.TimePeriods, err = s.queryTimePeriods(ctx, versionID); err != nil {
		return nil, err
	}
	if meta.GeographicLevels, err = s.queryGeographicLevels(ctx, versionID); err != nil {
		return nil, err
	}

	if s.redisClient != nil {
		s.redisClient.SetVersionMeta(ctx, meta)
	}

	return meta, nil
}

func (s *PostgresStore) queryFilters(ctx context.Context, versionID string) ([]model.FilterMeta, error) {
	query := `
		SELECT f.id, f.column_name, f.label, COALESCE(f.hint, ''),
		       o.id, o.label, o.is_aggregate
		FROM filter_metas f
		JOIN filter_options o ON o.filter_id = f.id
		WHERE f.data_set_version_id = $1
		ORDER BY f.label, o.ord
	`

	rows, err := s.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query filters: %w", err)
	}
	defer rows.Close()

	var filters []model.FilterMeta
	index := make(map[string]int)
	for rows.Next() {
		var f model.FilterMeta
		var o model.FilterOption
		if err := rows.Scan(&f.ID, &f.Column, &f.Label, &f.Hint, &o.ID, &o.Label, &o.IsAggregate); err != nil {
			return nil, fmt.Errorf("failed to scan filter: %w", err)
		}
		i, ok := index[f.ID]
		if !ok {
			i = len(filters)
			index[f.ID] = i
			filters = append(filters, f)
		}
		filters[i].Options = append(filters[i].Options, o)
	}
	return filters, rows.Err()
}

func (s *PostgresStore) queryLocations(ctx context.Context, versionID string) ([]model.LocationMeta, error) {
	query := `
		SELECT level, id, label, COALESCE(code, '')
		FROM location_options
		WHERE data_set_version_id = $1
		ORDER BY level, label
	`

	rows, err := s.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []model.LocationMeta
	index := make(map[string]int)
	for rows.Next() {
		var level string
		var o model.LocationOption
		if err := rows.Scan(&level, &o.ID, &o.Label, &o.Code); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		i, ok := index[level]
		if !ok {
			i = len(locations)
			index[level] = i
			locations = append(locations, model.LocationMeta{Level: level})
		}
		locations[i].Options = append(locations[i].Options, o)
	}
	return locations, rows.Err()
}

func (s *PostgresStore) queryIndicators(ctx context.Context, versionID string) ([]model.IndicatorMeta, error) {
	query := `
		SELECT id, column_name, label, COALESCE(unit, ''), decimal_places
		FROM indicator_metas
		WHERE data_set_version_id = $1
		ORDER BY label
	`

	rows, err := s.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicators: %w", err)
	}
	defer rows.Close()

	var indicators []model.IndicatorMeta
	for rows.Next() {
		var ind model.IndicatorMeta
		var dp sql.NullInt64
		if err := rows.Scan(&ind.ID, &ind.Column, &ind.Label, &ind.Unit, &dp); err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		if dp.Valid {
			n := int(dp.Int64)
			ind.DecimalPlaces = &n
		}
		indicators = append(indicators, ind)
	}
	return indicators, rows.Err()
}

func (s *PostgresStore) queryTimePeriods(ctx context.Context, versionID string) ([]model.TimePeriodMeta, error) {
	query := `
		SELECT code, period, COALESCE(label, '')
		FROM time_period_metas
		WHERE data_set_version_id = $1
		ORDER BY period, code
	`

	rows, err := s.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query time periods: %w", err)
	}
	defer rows.Close()

	var periods []model.TimePeriodMeta
	for rows.Next() {
		var p model.TimePeriodMeta
		if err := rows.Scan(&p.Code, &p.Period, &p.Label); err != nil {
			return nil, fmt.Errorf("failed to scan time period: %w", err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (s *PostgresStore) queryGeographicLevels(ctx context.Context, versionID string) ([]string, error) {
	query := `
		SELECT level
		FROM geographic_level_metas
		WHERE data_set_version_id = $1
		ORDER BY level
	`

	rows, err := s.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query geographic levels: %w", err)
	}
	defer rows.Close()

	var levels []string
	for rows.Next() {
		var level string
		if err := rows.Scan(&level); err != nil {
			return nil, fmt.Errorf("failed to scan geographic level: %w", err)
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

// OpenCsv implements storage.Store.OpenCsv by streaming the version's gzip
// artifact straight from object storage.
func (s *PostgresStore) OpenCsv(ctx context.Context, versionID string) (io.ReadCloser, error) {
	if s.s3Client == nil {
		return nil, fmt.Errorf("s3 client not initialized")
	}
	return s.s3Client.GetObject(ctx, csvObjectKey(versionID))
}

// PutCsv uploads a version's gzip-compressed CSV artifact. Used by ingestion
// tooling; the read path never writes.
func (s *PostgresStore) PutCsv(ctx context.Context, versionID string, gzipped io.Reader) error {
	if s.s3Client == nil {
		return fmt.Errorf("s3 client not initialized")
	}
	return s.s3Client.PutObject(ctx, csvObjectKey(versionID), gzipped, "text/csv")
}

func csvObjectKey(versionID string) string {
	return fmt.Sprintf("csv/%s.csv.gz", versionID)
}

// HealthCheck implements storage.Store.HealthCheck
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres unhealthy: %w", err)
	}
	if s.s3Client != nil {
		if err := s.s3Client.HealthCheck(ctx); err != nil {
			return fmt.Errorf("s3 unhealthy: %w", err)
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}
	return nil
}

// GetDB returns the database connection for health checks and analytics
func (s *PostgresStore) GetDB() *sql.DB {
	return s.db
}

// GetRedis returns the Redis client (may be nil if caching is disabled)
func (s *PostgresStore) GetRedis() *RedisClient {
	return s.redisClient
}

// Close closes all connections
func (s *PostgresStore) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(row rowScanner) (*model.DataSetVersion, error) {
	var v model.DataSetVersion
	var published sql.NullTime
	var metaSummary []byte

	err := row.Scan(
		&v.ID,
		&v.DataSetID,
		&v.Number.Major,
		&v.Number.Minor,
		&v.Number.Patch,
		&v.Status,
		&published,
		&v.TotalResults,
		&metaSummary,
		&v.Created,
	)
	if err != nil {
		return nil, err
	}

	if published.Valid {
		t := published.Time
		v.Published = &t
	}
	if len(metaSummary) > 0 {
		if err := json.Unmarshal(metaSummary, &v.MetaSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meta summary: %w", err)
		}
	}

	return &v, nil
}
