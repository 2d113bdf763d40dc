package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one versioned schema change
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the full schema as ordered migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create data_sets and data_set_versions tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS data_sets (
					id VARCHAR(64) PRIMARY KEY,
					title TEXT NOT NULL,
					summary TEXT NOT NULL DEFAULT '',
					status VARCHAR(20) NOT NULL,
					superseded_by_id VARCHAR(64) REFERENCES data_sets(id),
					latest_live_version_id VARCHAR(64),
					latest_draft_version_id VARCHAR(64),
					created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_data_sets_status ON data_sets(status);

				CREATE TABLE IF NOT EXISTS data_set_versions (
					id VARCHAR(64) PRIMARY KEY,
					data_set_id VARCHAR(64) NOT NULL REFERENCES data_sets(id) ON DELETE CASCADE,
					major INT NOT NULL,
					minor INT NOT NULL,
					patch INT NOT NULL DEFAULT 0,
					status VARCHAR(20) NOT NULL,
					published TIMESTAMPTZ,
					total_results BIGINT NOT NULL DEFAULT 0,
					meta_summary JSONB NOT NULL DEFAULT '{}',
					created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(data_set_id, major, minor, patch)
				);

				CREATE INDEX idx_data_set_versions_data_set_id ON data_set_versions(data_set_id);
			`,
		},
		{
			Version:     2,
			Description: "Create preview_tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS preview_tokens (
					id VARCHAR(64) PRIMARY KEY,
					data_set_version_id VARCHAR(64) NOT NULL REFERENCES data_set_versions(id) ON DELETE CASCADE,
					label TEXT,
					created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					expiry TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX idx_preview_tokens_version_id ON preview_tokens(data_set_version_id);
				CREATE INDEX idx_preview_tokens_expiry ON preview_tokens(expiry);
			`,
		},
		{
			Version:     3,
			Description: "Create catalog metadata tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS filter_metas (
					id VARCHAR(64) PRIMARY KEY,
					data_set_version_id VARCHAR(64) NOT NULL REFERENCES data_set_versions(id) ON DELETE CASCADE,
					column_name VARCHAR(255) NOT NULL,
					label TEXT NOT NULL,
					hint TEXT
				);

				CREATE INDEX idx_filter_metas_version_id ON filter_metas(data_set_version_id);

				CREATE TABLE IF NOT EXISTS filter_options (
					id VARCHAR(64) PRIMARY KEY,
					filter_id VARCHAR(64) NOT NULL REFERENCES filter_metas(id) ON DELETE CASCADE,
					label TEXT NOT NULL,
					is_aggregate BOOLEAN NOT NULL DEFAULT FALSE,
					ord INT NOT NULL DEFAULT 0
				);

				CREATE INDEX idx_filter_options_filter_id ON filter_options(filter_id);

				CREATE TABLE IF NOT EXISTS location_options (
					id VARCHAR(64) PRIMARY KEY,
					data_set_version_id VARCHAR(64) NOT NULL REFERENCES data_set_versions(id) ON DELETE CASCADE,
					level VARCHAR(64) NOT NULL,
					label TEXT NOT NULL,
					code VARCHAR(64)
				);

				CREATE INDEX idx_location_options_version_id ON location_options(data_set_version_id);

				CREATE TABLE IF NOT EXISTS indicator_metas (
					id VARCHAR(64) PRIMARY KEY,
					data_set_version_id VARCHAR(64) NOT NULL REFERENCES data_set_versions(id) ON DELETE CASCADE,
					column_name VARCHAR(255) NOT NULL,
					label TEXT NOT NULL,
					unit VARCHAR(32),
					decimal_places INT
				);

				CREATE INDEX idx_indicator_metas_version_id ON indicator_metas(data_set_version_id);

				CREATE TABLE IF NOT EXISTS time_period_metas (
					data_set_version_id VARCHAR(64) NOT NULL REFERENCES data_set_versions(id) ON DELETE CASCADE,
					code VARCHAR(32) NOT NULL,
					period VARCHAR(32) NOT NULL,
					label TEXT,
					PRIMARY KEY (data_set_version_id, code, period)
				);

				CREATE TABLE IF NOT EXISTS geographic_level_metas (
					data_set_version_id VARCHAR(64) NOT NULL REFERENCES data_set_versions(id) ON DELETE CASCADE,
					level VARCHAR(64) NOT NULL,
					PRIMARY KEY (data_set_version_id, level)
				);
			`,
		},
		{
			Version:     4,
			Description: "Create analytics event tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS csv_download_events (
					id BIGSERIAL PRIMARY KEY,
					data_set_id VARCHAR(64) NOT NULL,
					data_set_title TEXT NOT NULL,
					data_set_version_id VARCHAR(64) NOT NULL,
					data_set_version VARCHAR(32) NOT NULL,
					requested_version VARCHAR(32),
					start_time TIMESTAMPTZ NOT NULL,
					preview_token_label TEXT,
					preview_token_version VARCHAR(32),
					preview_token_created TIMESTAMPTZ,
					preview_token_expiry TIMESTAMPTZ
				);

				CREATE INDEX idx_csv_download_events_start_time ON csv_download_events(start_time);
				CREATE INDEX idx_csv_download_events_data_set_id ON csv_download_events(data_set_id);

				CREATE TABLE IF NOT EXISTS data_set_call_events (
					id BIGSERIAL PRIMARY KEY,
					data_set_id VARCHAR(64) NOT NULL,
					data_set_version_id VARCHAR(64),
					requested_version VARCHAR(32),
					endpoint VARCHAR(16) NOT NULL,
					start_time TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX idx_data_set_call_events_start_time ON data_set_call_events(start_time);
			`,
		},
		{
			Version:     5,
			Description: "Create daily rollup tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS csv_download_daily (
					data_set_id VARCHAR(64) NOT NULL,
					data_set_version_id VARCHAR(64) NOT NULL,
					date DATE NOT NULL,
					download_count BIGINT NOT NULL DEFAULT 0,
					preview_download_count BIGINT NOT NULL DEFAULT 0,
					PRIMARY KEY (data_set_id, data_set_version_id, date)
				);

				CREATE TABLE IF NOT EXISTS data_set_call_daily (
					data_set_id VARCHAR(64) NOT NULL,
					date DATE NOT NULL,
					endpoint VARCHAR(16) NOT NULL,
					call_count BIGINT NOT NULL DEFAULT 0,
					PRIMARY KEY (data_set_id, date, endpoint)
				);
			`,
		},
	}
}

// RunMigrations applies all pending migrations in order
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS databank_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM databank_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO databank_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}
	return nil
}
