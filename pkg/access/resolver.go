package access

import (
	"context"
	"errors"

	"github.com/openstats/databank/pkg/model"
	"github.com/openstats/databank/pkg/observability"
	"github.com/openstats/databank/pkg/storage"
	"github.com/openstats/databank/pkg/version"
)

// ErrNoVersion signals that no concrete version satisfies the request. It
// covers absent versions, malformed specifiers and cross-data-set mismatches
// alike; callers surface all of them identically as not-found so existence
// never leaks across data sets.
var ErrNoVersion = errors.New("no data set version satisfies the request")

// VersionStore is the read surface the resolver needs from the backing store.
type VersionStore interface {
	GetDataSet(ctx context.Context, id string) (*model.DataSet, error)
	GetDataSetVersionByID(ctx context.Context, id string) (*model.DataSetVersion, error)
	ListDataSetVersions(ctx context.Context, dataSetID string) ([]*model.DataSetVersion, error)
}

// Resolver picks the concrete version of a data set satisfying a version
// specifier.
type Resolver struct {
	store  VersionStore
	logger *observability.Logger
}

// NewResolver creates a resolver over the given store. The logger may be nil.
func NewResolver(store VersionStore, logger *observability.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the version of ds matching the requested specifier, or
// ErrNoVersion. An empty specifier resolves through the data set's latest
// live version pointer; exact specifiers scan all versions regardless of
// status; wildcards delegate to the matcher, which only considers published
// versions. Store failures other than not-found propagate unchanged.
func (r *Resolver) Resolve(ctx context.Context, ds *model.DataSet, requested string) (*model.DataSetVersion, error) {
	spec, err := version.Parse(requested)
	if err != nil {
		// A malformed specifier is reported as not-found, not as a
		// validation error.
		r.debug(ds.ID, requested, "malformed version specifier")
		return nil, ErrNoVersion
	}

	var resolved *model.DataSetVersion
	if spec.Kind == version.Latest {
		if ds.LatestLiveVersionID == "" {
			return nil, ErrNoVersion
		}
		resolved, err = r.store.GetDataSetVersionByID(ctx, ds.LatestLiveVersionID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoVersion
		}
		if err != nil {
			return nil, err
		}
	} else {
		candidates, err := r.store.ListDataSetVersions(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		resolved = version.Match(spec, candidates)
		if resolved == nil {
			return nil, ErrNoVersion
		}
	}

	// A version fetched by id may belong to another data set. Report it as
	// absent so the request cannot confirm the version exists elsewhere;
	// the distinction is kept for logs only.
	if resolved.DataSetID != ds.ID {
		r.debug(ds.ID, requested, "resolved version belongs to a different data set")
		return nil, ErrNoVersion
	}

	return resolved, nil
}

func (r *Resolver) debug(dataSetID, requested, message string) {
	if r.logger == nil {
		return
	}
	r.logger.
		WithField("data_set_id", dataSetID).
		WithField("requested_version", requested).
		Debug(message)
}
