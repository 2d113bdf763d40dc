package access

import (
	"context"
	"errors"

	"github.com/openstats/databank/pkg/model"
	"github.com/openstats/databank/pkg/observability"
	"github.com/openstats/databank/pkg/storage"
)

// Outcome is the action a read operation must take for a request.
type Outcome int

const (
	OutcomeServe Outcome = iota
	OutcomeForbidden
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeServe:
		return "serve"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Decision carries the verdict for one request. DataSet and Version are only
// populated when the outcome is Serve, so handlers cannot accidentally
// serialize a record the caller was refused.
type Decision struct {
	Outcome Outcome
	DataSet *model.DataSet
	Version *model.DataSetVersion
}

// Store is the read surface the engine needs from the backing store.
type Store interface {
	VersionStore
	TokenStore
}

// Engine evaluates every read operation's resolution and authorization in
// one place, so metadata, catalog and CSV requests cannot drift apart in
// their 403-versus-404 classification.
type Engine struct {
	store    Store
	resolver *Resolver
	tokens   *TokenValidator
}

// NewEngine creates the access decision engine. The logger may be nil.
func NewEngine(store Store, logger *observability.Logger) *Engine {
	return &Engine{
		store:    store,
		resolver: NewResolver(store, logger),
		tokens:   NewTokenValidator(store),
	}
}

// Evaluate resolves the requested version and classifies the caller's access.
// The checks are ordered: resolution failure is NotFound; a publicly visible
// version is served without ever consulting the token, so a live version is
// servable even when the caller presents an irrelevant or expired token; a
// non-public version is served only to a holder of a token bound to exactly
// that version; everything else is Forbidden. Store failures other than
// not-found propagate as errors.
func (e *Engine) Evaluate(ctx context.Context, dataSetID, requestedVersion, previewTokenID string) (Decision, error) {
	ds, err := e.store.GetDataSet(ctx, dataSetID)
	if errors.Is(err, storage.ErrNotFound) {
		return Decision{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	v, err := e.resolver.Resolve(ctx, ds, requestedVersion)
	if errors.Is(err, ErrNoVersion) {
		return Decision{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	if PubliclyVisible(ds.Status, v.Status) {
		return Decision{Outcome: OutcomeServe, DataSet: ds, Version: v}, nil
	}

	if e.tokens.Grants(ctx, v, previewTokenID) {
		return Decision{Outcome: OutcomeServe, DataSet: ds, Version: v}, nil
	}

	return Decision{Outcome: OutcomeForbidden}, nil
}
