package version

import "github.com/openstats/databank/pkg/model"

// Match selects the single concrete version satisfying the specifier, or nil
// when nothing matches.
//
// Exact specifiers match any version with identical components regardless of
// its status: access control decides afterwards whether a draft may be shown.
// Wildcard specifiers only ever consider published versions, so a pattern
// whose only numeric matches are unpublished reports no match. Latest
// specifiers are not resolved here; the caller serves the data set's latest
// live version pointer directly.
func Match(spec Specifier, candidates []*model.DataSetVersion) *model.DataSetVersion {
	switch spec.Kind {
	case Exact:
		want := model.Version{Major: spec.Major, Minor: spec.Minor, Patch: spec.Patch}
		for _, c := range candidates {
			if c.Number.Equal(want) {
				return c
			}
		}
		return nil
	case WildcardAny, WildcardMinor, WildcardPatch:
		return highestPublished(spec, candidates)
	default:
		return nil
	}
}

func highestPublished(spec Specifier, candidates []*model.DataSetVersion) *model.DataSetVersion {
	var best *model.DataSetVersion
	for _, c := range candidates {
		if c.Status != model.VersionStatusPublished {
			continue
		}
		if !fixedComponentsMatch(spec, c.Number) {
			continue
		}
		if best == nil || c.Number.Compare(best.Number) > 0 {
			best = c
		}
	}
	return best
}

func fixedComponentsMatch(spec Specifier, n model.Version) bool {
	switch spec.Kind {
	case WildcardAny:
		return true
	case WildcardMinor:
		return n.Major == spec.Major
	case WildcardPatch:
		return n.Major == spec.Major && n.Minor == spec.Minor
	default:
		return false
	}
}
