package model

// VersionMeta bundles the catalog metadata attached to one data set version:
// the filters, locations, indicators and time periods that describe the shape
// of its CSV data. Option identifiers are stable public IDs, distinct from
// internal keys, so they survive option reuse across versions.
type VersionMeta struct {
	DataSetVersionID string           `json:"data_set_version_id"`
	Filters          []FilterMeta     `json:"filters"`
	Locations        []LocationMeta   `json:"locations"`
	Indicators       []IndicatorMeta  `json:"indicators"`
	TimePeriods      []TimePeriodMeta `json:"time_periods"`
	GeographicLevels []string         `json:"geographic_levels"`
}

// FilterMeta describes one filterable characteristic column.
type FilterMeta struct {
	ID      string         `json:"id"`
	Column  string         `json:"column"`
	Label   string         `json:"label"`
	Hint    string         `json:"hint,omitempty"`
	Options []FilterOption `json:"options"`
}

// FilterOption is one selectable value of a filter.
type FilterOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	IsAggregate bool   `json:"is_aggregate,omitempty"`
}

// LocationMeta groups the location options available at one geographic level.
type LocationMeta struct {
	Level   string           `json:"level"`
	Options []LocationOption `json:"options"`
}

// LocationOption is one location at a given geographic level. Code carries
// the official identifier for the level's code scheme when one exists.
type LocationOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Code  string `json:"code,omitempty"`
}

// IndicatorMeta describes one measured value column.
type IndicatorMeta struct {
	ID            string `json:"id"`
	Column        string `json:"column"`
	Label         string `json:"label"`
	Unit          string `json:"unit,omitempty"`
	DecimalPlaces *int   `json:"decimal_places,omitempty"`
}

// TimePeriodMeta is one time period present in the version's data.
type TimePeriodMeta struct {
	Code   string `json:"code"`
	Period string `json:"period"`
	Label  string `json:"label,omitempty"`
}
