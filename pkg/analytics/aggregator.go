package analytics

import (
	"context"
	"database/sql"
	"time"
)

// Aggregator rolls raw events up into daily statistics tables. Rollups are
// idempotent: re-running a day overwrites that day's rows.
type Aggregator struct {
	db *sql.DB
}

// NewAggregator creates a new aggregator
func NewAggregator(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

// AggregateDownloadsDaily computes per-data-set download counts for one day
func (a *Aggregator) AggregateDownloadsDaily(ctx context.Context, date time.Time) error {
	query := `
		INSERT INTO csv_download_daily (
			data_set_id, data_set_version_id, date,
			download_count, preview_download_count
		)
		SELECT
			data_set_id,
			data_set_version_id,
			$1::date AS date,
			COUNT(*) AS download_count,
			COUNT(*) FILTER (WHERE preview_token_label IS NOT NULL) AS preview_download_count
		FROM csv_download_events
		WHERE start_time >= $1::date
		  AND start_time < $1::date + INTERVAL '1 day'
		GROUP BY data_set_id, data_set_version_id
		ON CONFLICT (data_set_id, data_set_version_id, date) DO UPDATE SET
			download_count = EXCLUDED.download_count,
			preview_download_count = EXCLUDED.preview_download_count
	`
	_, err := a.db.ExecContext(ctx, query, date)
	return err
}

// AggregateCallsDaily computes per-data-set API call counts for one day
func (a *Aggregator) AggregateCallsDaily(ctx context.Context, date time.Time) error {
	query := `
		INSERT INTO data_set_call_daily (
			data_set_id, date, endpoint, call_count
		)
		SELECT
			data_set_id,
			$1::date AS date,
			endpoint,
			COUNT(*) AS call_count
		FROM data_set_call_events
		WHERE start_time >= $1::date
		  AND start_time < $1::date + INTERVAL '1 day'
		GROUP BY data_set_id, endpoint
		ON CONFLICT (data_set_id, date, endpoint) DO UPDATE SET
			call_count = EXCLUDED.call_count
	`
	_, err := a.db.ExecContext(ctx, query, date)
	return err
}

// DeleteExpiredPreviewTokens removes preview tokens whose expiry has passed.
// Returns the number of tokens removed.
func (a *Aggregator) DeleteExpiredPreviewTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := a.db.ExecContext(ctx,
		"DELETE FROM preview_tokens WHERE expiry <= $1", now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// AggregateAll runs all daily rollups for a given date
func (a *Aggregator) AggregateAll(ctx context.Context, date time.Time) error {
	if err := a.AggregateDownloadsDaily(ctx, date); err != nil {
		return err
	}
	return a.AggregateCallsDaily(ctx, date)
}
