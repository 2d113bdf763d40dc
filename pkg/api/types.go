package api

import (
	"time"

	"github.com/openstats/databank/pkg/model"
)

// DataSetView is the public representation of a data set. It always describes
// the latest live version; draft versions are never surfaced here, even to
// preview-token holders.
type DataSetView struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Summary        string              `json:"summary"`
	Status         model.DataSetStatus `json:"status"`
	SupersededByID string              `json:"superseded_by_id,omitempty"`
	LatestVersion  *VersionView        `json:"latest_version"`
	Created        time.Time           `json:"created"`
	Updated        time.Time           `json:"updated"`
}

// VersionView summarizes one data set version for detail and list responses.
// The catalog fields come from the publish-time MetaSummary snapshot, not
// from a live catalog query.
type VersionView struct {
	ID               string                `json:"id"`
	Version          string                `json:"version"`
	Status           model.VersionStatus   `json:"status"`
	Published        *time.Time            `json:"published,omitempty"`
	TotalResults     int64                 `json:"total_results"`
	TimePeriodRange  model.TimePeriodRange `json:"time_period_range"`
	GeographicLevels []string              `json:"geographic_levels"`
	Filters          []string              `json:"filters"`
	Indicators       []string              `json:"indicators"`
}

// CatalogView is the response body of the meta endpoint. Sections the caller
// did not request are omitted entirely.
type CatalogView struct {
	DataSetVersionID string                 `json:"data_set_version_id"`
	Version          string                 `json:"version"`
	Filters          []model.FilterMeta     `json:"filters,omitempty"`
	Locations        []model.LocationMeta   `json:"locations,omitempty"`
	GeographicLevels []string               `json:"geographic_levels,omitempty"`
	Indicators       []model.IndicatorMeta  `json:"indicators,omitempty"`
	TimePeriods      []model.TimePeriodMeta `json:"time_periods,omitempty"`
}

// DataSetListView wraps the data set listing.
type DataSetListView struct {
	DataSets []DataSetView `json:"data_sets"`
	Total    int           `json:"total"`
}

func newDataSetView(ds *model.DataSet, latest *model.DataSetVersion) DataSetView {
	return DataSetView{
		ID:             ds.ID,
		Title:          ds.Title,
		Summary:        ds.Summary,
		Status:         ds.Status,
		SupersededByID: ds.SupersededByID,
		LatestVersion:  newVersionView(latest),
		Created:        ds.Created,
		Updated:        ds.Updated,
	}
}

func newVersionView(v *model.DataSetVersion) *VersionView {
	if v == nil {
		return nil
	}
	return &VersionView{
		ID:               v.ID,
		Version:          v.Number.String(),
		Status:           v.Status,
		Published:        v.Published,
		TotalResults:     v.TotalResults,
		TimePeriodRange:  v.MetaSummary.TimePeriodRange,
		GeographicLevels: v.MetaSummary.GeographicLevels,
		Filters:          v.MetaSummary.Filters,
		Indicators:       v.MetaSummary.Indicators,
	}
}

func newCatalogView(v *model.DataSetVersion, meta *model.VersionMeta, types MetaTypeSet) CatalogView {
	view := CatalogView{
		DataSetVersionID: v.ID,
		Version:          v.Number.String(),
	}
	if types.Contains(MetaTypeFilters) {
		view.Filters = meta.Filters
	}
	if types.Contains(MetaTypeLocations) {
		view.Locations = meta.Locations
		view.GeographicLevels = meta.GeographicLevels
	}
	if types.Contains(MetaTypeIndicators) {
		view.Indicators = meta.Indicators
	}
	if types.Contains(MetaTypeTimePeriods) {
		view.TimePeriods = meta.TimePeriods
	}
	return view
}
