// Package analytics records API usage events and rolls them up into daily
// statistics. Event capture is fire-and-forget: handlers enqueue events off
// the request path and a capture failure never fails the request.
package analytics

import (
	"context"
	"database/sql"
	"time"
)

// EventTracker handles analytics event collection
type EventTracker struct {
	db *sql.DB
}

// NewEventTracker creates a new event tracker
func NewEventTracker(db *sql.DB) *EventTracker {
	return &EventTracker{db: db}
}

// CsvDownloadEvent records one CSV download. RequestedVersion is the version
// string the caller sent, before resolution; DataSetVersion is what it
// resolved to. Preview token fields are set only when a token authorized the
// download.
type CsvDownloadEvent struct {
	DataSetID           string
	DataSetTitle        string
	DataSetVersionID    string
	DataSetVersion      string
	RequestedVersion    string
	StartTime           time.Time
	PreviewTokenLabel   string
	PreviewTokenVersion string
	PreviewTokenCreated *time.Time
	PreviewTokenExpiry  *time.Time
}

// TrackCsvDownload records a CSV download event
func (t *EventTracker) TrackCsvDownload(ctx context.Context, event CsvDownloadEvent) error {
	query := `
		INSERT INTO csv_download_events (
			data_set_id, data_set_title, data_set_version_id, data_set_version,
			requested_version, start_time,
			preview_token_label, preview_token_version,
			preview_token_created, preview_token_expiry
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := t.db.ExecContext(ctx, query,
		event.DataSetID, event.DataSetTitle, event.DataSetVersionID,
		event.DataSetVersion, nullString(event.RequestedVersion), event.StartTime,
		nullString(event.PreviewTokenLabel), nullString(event.PreviewTokenVersion),
		event.PreviewTokenCreated, event.PreviewTokenExpiry,
	)
	return err
}

// DataSetCallEvent records one read against the data set API
type DataSetCallEvent struct {
	DataSetID        string
	DataSetVersionID string
	RequestedVersion string
	Endpoint         string // 'get', 'meta'
	StartTime        time.Time
}

// TrackDataSetCall records a data set read event
func (t *EventTracker) TrackDataSetCall(ctx context.Context, event DataSetCallEvent) error {
	query := `
		INSERT INTO data_set_call_events (
			data_set_id, data_set_version_id, requested_version, endpoint, start_time
		) VALUES ($1, $2, $3, $4, $5)
	`
	_, err := t.db.ExecContext(ctx, query,
		event.DataSetID, nullString(event.DataSetVersionID),
		nullString(event.RequestedVersion), event.Endpoint, event.StartTime,
	)
	return err
}

// Helper function to convert empty strings to NULL
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
