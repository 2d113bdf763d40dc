// Package access decides whether a caller may see a resolved data set
// version: it combines the public availability policy, the preview token
// check and version resolution into a single Serve/Forbidden/NotFound
// verdict shared by every read operation.
package access

import "github.com/openstats/databank/pkg/model"

// The availability policy is a closed table over the two status enumerations
// rather than nested conditionals, so it can be audited and tested
// exhaustively. A status missing from its table is not public.

var publicDataSetStatuses = map[model.DataSetStatus]bool{
	model.DataSetStatusDraft:      false,
	model.DataSetStatusPublished:  true,
	model.DataSetStatusWithdrawn:  false,
	model.DataSetStatusDeprecated: false,
}

var publicVersionStatuses = map[model.VersionStatus]bool{
	model.VersionStatusDraft:      false,
	model.VersionStatusProcessing: false,
	model.VersionStatusFailed:     false,
	model.VersionStatusPublished:  true,
	model.VersionStatusWithdrawn:  false,
	model.VersionStatusDeprecated: false,
}

// PubliclyVisible reports whether an unauthenticated caller may see the given
// version. Both the data set and the specific version must be published: a
// published version under an unpublished data set is pre-release staging, not
// public data.
func PubliclyVisible(ds model.DataSetStatus, vs model.VersionStatus) bool {
	return publicDataSetStatuses[ds] && publicVersionStatuses[vs]
}

// PubliclyListed reports whether a data set appears in the public listing.
// Listing looks at the data set alone; per-version visibility is decided by
// PubliclyVisible when the version is actually requested.
func PubliclyListed(ds model.DataSetStatus) bool {
	return publicDataSetStatuses[ds]
}
