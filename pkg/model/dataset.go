// Package model defines the published-data domain entities shared by the
// API, access-control, storage and analytics layers.
package model

import "time"

// DataSetStatus is the public lifecycle state of a data set.
type DataSetStatus string

const (
	DataSetStatusDraft      DataSetStatus = "Draft"
	DataSetStatusPublished  DataSetStatus = "Published"
	DataSetStatusWithdrawn  DataSetStatus = "Withdrawn"
	DataSetStatusDeprecated DataSetStatus = "Deprecated"
)

// VersionStatus is the lifecycle state of a single data set version.
type VersionStatus string

const (
	VersionStatusDraft      VersionStatus = "Draft"
	VersionStatusProcessing VersionStatus = "Processing"
	VersionStatusFailed     VersionStatus = "Failed"
	VersionStatusPublished  VersionStatus = "Published"
	VersionStatusWithdrawn  VersionStatus = "Withdrawn"
	VersionStatusDeprecated VersionStatus = "Deprecated"
)

// DataSet is a named, independently-lifecycled collection of statistical
// releases. Versions are owned by the ingestion workflow; the read path never
// mutates them.
type DataSet struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Summary string        `json:"summary"`
	Status  DataSetStatus `json:"status"`

	// SupersededByID points at the replacement data set when Status is
	// Deprecated. Empty otherwise.
	SupersededByID string `json:"superseded_by_id,omitempty"`

	// LatestLiveVersionID references the most recently published version.
	// It stays set even when a newer draft exists, and is empty for data
	// sets that have never published.
	LatestLiveVersionID string `json:"latest_live_version_id,omitempty"`

	// LatestDraftVersionID references the most recent unpublished version,
	// if any.
	LatestDraftVersionID string `json:"latest_draft_version_id,omitempty"`

	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// DataSetVersion is one semantically-versioned release of a data set's rows
// and catalog metadata.
type DataSetVersion struct {
	ID        string        `json:"id"`
	DataSetID string        `json:"data_set_id"`
	Number    Version       `json:"number"`
	Status    VersionStatus `json:"status"`

	// Published is set exactly once, when Status transitions to Published.
	Published *time.Time `json:"published,omitempty"`

	// TotalResults is the row count of the version's data file, computed at
	// publish time.
	TotalResults int64 `json:"total_results"`

	// MetaSummary is a snapshot of the version's catalog, computed at
	// publish time for list/detail views.
	MetaSummary MetaSummary `json:"meta_summary"`

	Created time.Time `json:"created"`
}

// MetaSummary condenses a version's catalog into the fields shown on data set
// detail views.
type MetaSummary struct {
	TimePeriodRange  TimePeriodRange `json:"time_period_range"`
	GeographicLevels []string        `json:"geographic_levels"`
	Filters          []string        `json:"filters"`
	Indicators       []string        `json:"indicators"`
}

// TimePeriodRange is the inclusive span of time periods covered by a version.
type TimePeriodRange struct {
	Start TimePeriodLabel `json:"start"`
	End   TimePeriodLabel `json:"end"`
}

// TimePeriodLabel pairs a machine-readable period code with its display label.
type TimePeriodLabel struct {
	Code   string `json:"code"`
	Period string `json:"period"`
	Label  string `json:"label,omitempty"`
}
