package api

import (
	"errors"
	"fmt"
	"strings"
)

// MetaType names one section of a version's catalog metadata.
type MetaType string

const (
	MetaTypeFilters     MetaType = "Filters"
	MetaTypeLocations   MetaType = "Locations"
	MetaTypeIndicators  MetaType = "Indicators"
	MetaTypeTimePeriods MetaType = "TimePeriods"
)

// MetaTypeSet is the set of catalog sections a request asked for.
type MetaTypeSet map[MetaType]struct{}

// Contains reports whether t is in the set.
func (s MetaTypeSet) Contains(t MetaType) bool {
	_, ok := s[t]
	return ok
}

// AllMetaTypes returns a set holding every catalog section.
func AllMetaTypes() MetaTypeSet {
	return MetaTypeSet{
		MetaTypeFilters:     {},
		MetaTypeLocations:   {},
		MetaTypeIndicators:  {},
		MetaTypeTimePeriods: {},
	}
}

// ErrInvalidMetaTypes is the sentinel wrapped by metaTypes validation
// failures.
var ErrInvalidMetaTypes = errors.New("invalid types parameter")

// ParseMetaTypes interprets the raw values of the "types" query parameter.
// A nil slice means the parameter was omitted and selects every section.
// Values may be repeated parameters or comma-separated lists; duplicates
// collapse silently. Each unrecognized entry yields one detail keyed by its
// position in the flattened list, so the caller can point at every bad value
// at once.
func ParseMetaTypes(raw []string) (MetaTypeSet, map[string]string, error) {
	if raw == nil {
		return AllMetaTypes(), nil, nil
	}

	var entries []string
	for _, value := range raw {
		entries = append(entries, strings.Split(value, ",")...)
	}

	set := MetaTypeSet{}
	details := map[string]string{}
	for i, entry := range entries {
		switch t := MetaType(strings.TrimSpace(entry)); t {
		case MetaTypeFilters, MetaTypeLocations, MetaTypeIndicators, MetaTypeTimePeriods:
			set[t] = struct{}{}
		default:
			details[fmt.Sprintf("types[%d]", i)] = fmt.Sprintf("%q is not a valid meta type", entry)
		}
	}
	if len(details) > 0 {
		return nil, details, ErrInvalidMetaTypes
	}
	if len(set) == 0 {
		details["types"] = "at least one meta type is required"
		return nil, details, ErrInvalidMetaTypes
	}
	return set, nil, nil
}
