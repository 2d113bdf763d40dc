package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/openstats/databank/pkg/access"
	"github.com/openstats/databank/pkg/analytics"
	"github.com/openstats/databank/pkg/async"
	"github.com/openstats/databank/pkg/contextkeys"
	"github.com/openstats/databank/pkg/httputil"
	"github.com/openstats/databank/pkg/middleware"
	"github.com/openstats/databank/pkg/storage"
)

// analyticsTimeout bounds the fire-and-forget event inserts spawned off the
// request path.
const analyticsTimeout = 10 * time.Second

// listDataSets handles GET /v1/data-sets. Only published data sets with a
// live version are listed; preview tokens grant access to individual
// versions, never to the listing.
func (s *Server) listDataSets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dataSets, err := s.store.ListDataSets(ctx)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	views := make([]DataSetView, 0, len(dataSets))
	for _, ds := range dataSets {
		if !access.PubliclyListed(ds.Status) || ds.LatestLiveVersionID == "" {
			continue
		}
		latest, err := s.store.GetDataSetVersionByID(ctx, ds.LatestLiveVersionID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		views = append(views, newDataSetView(ds, latest))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Title < views[j].Title })

	httputil.WriteSuccess(w, DataSetListView{DataSets: views, Total: len(views)})
}

// getDataSet handles GET /v1/data-sets/{dataSetId}. It accepts no version
// specifier and always describes the latest live version. Draft versions are
// never surfaced, so token holders see exactly what the public sees.
func (s *Server) getDataSet(w http.ResponseWriter, r *http.Request) {
	dataSetID, ok := httputil.ParsePathStringOrError(w, r, "dataSetId")
	if !ok {
		return
	}

	decision, ok := s.evaluate(w, r, dataSetID, "")
	if !ok {
		return
	}

	s.trackCall(r.Context(), analytics.DataSetCallEvent{
		DataSetID:        decision.DataSet.ID,
		DataSetVersionID: decision.Version.ID,
		Endpoint:         "get",
		StartTime:        middleware.StartTime(r.Context()),
	})

	httputil.WriteSuccess(w, newDataSetView(decision.DataSet, decision.Version))
}

// getDataSetMeta handles GET /v1/data-sets/{dataSetId}/meta. The types
// parameter is validated before any resolution work so a malformed request
// never learns whether the data set exists.
func (s *Server) getDataSetMeta(w http.ResponseWriter, r *http.Request) {
	dataSetID, ok := httputil.ParsePathStringOrError(w, r, "dataSetId")
	if !ok {
		return
	}

	types, details, err := ParseMetaTypes(httputil.ParseQueryStrings(r, "types"))
	if err != nil {
		httputil.WriteDetailedError(w, http.StatusBadRequest, err, details)
		return
	}

	requestedVersion := httputil.ParseQueryString(r, "dataSetVersion", "")
	decision, ok := s.evaluate(w, r, dataSetID, requestedVersion)
	if !ok {
		return
	}

	meta, err := s.store.GetVersionMeta(r.Context(), decision.Version.ID)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "data set version not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	s.trackCall(r.Context(), analytics.DataSetCallEvent{
		DataSetID:        decision.DataSet.ID,
		DataSetVersionID: decision.Version.ID,
		RequestedVersion: requestedVersion,
		Endpoint:         "meta",
		StartTime:        middleware.StartTime(r.Context()),
	})

	httputil.WriteSuccess(w, newCatalogView(decision.Version, meta, types))
}

// downloadCsv handles GET /v1/data-sets/{dataSetId}/csv. The artifact is
// stored gzip-compressed and is passed through as-is; clients that cannot
// handle Content-Encoding themselves get transparent decompression from any
// standard HTTP library.
func (s *Server) downloadCsv(w http.ResponseWriter, r *http.Request) {
	dataSetID, ok := httputil.ParsePathStringOrError(w, r, "dataSetId")
	if !ok {
		return
	}

	requestedVersion := httputil.ParseQueryString(r, "dataSetVersion", "")
	decision, ok := s.evaluate(w, r, dataSetID, requestedVersion)
	if !ok {
		return
	}

	body, err := s.store.OpenCsv(r.Context(), decision.Version.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// An absent artifact is indistinguishable from one not yet
		// produced, so it is a 404 rather than a server error.
		httputil.WriteNotFoundError(w, "data set version not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	defer body.Close()

	filename := decision.DataSet.ID + "_v" + decision.Version.Number.String() + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	written, err := io.Copy(w, body)
	if s.metrics != nil {
		s.metrics.CSVDownloadsTotal.WithLabelValues(decision.DataSet.ID).Inc()
		s.metrics.CSVBytesStreamed.Add(float64(written))
	}
	if err != nil {
		// Headers are already out; all we can do is log the broken copy.
		if s.logger != nil {
			s.logger.WithError(err).
				WithField("data_set_id", decision.DataSet.ID).
				Warn("csv stream interrupted")
		}
		return
	}

	s.trackDownload(r.Context(), decision, requestedVersion)
}

// evaluate runs the access decision for one request and writes the refusal
// responses itself. It returns ok only when the request should be served.
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request, dataSetID, requestedVersion string) (access.Decision, bool) {
	ctx := r.Context()
	decision, err := s.engine.Evaluate(ctx, dataSetID, requestedVersion, contextkeys.GetPreviewToken(ctx))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return access.Decision{}, false
	}

	if s.metrics != nil {
		s.metrics.ResolutionOutcomes.WithLabelValues(decision.Outcome.String()).Inc()
	}

	switch decision.Outcome {
	case access.OutcomeServe:
		return decision, true
	case access.OutcomeForbidden:
		httputil.WriteForbidden(w, "access to this data set version is forbidden")
	default:
		httputil.WriteNotFoundError(w, "data set not found")
	}
	return access.Decision{}, false
}

func (s *Server) trackCall(ctx context.Context, event analytics.DataSetCallEvent) {
	if s.tracker == nil {
		return
	}
	async.SafeGo(ctx, analyticsTimeout, "track_data_set_call", func(ctx context.Context) error {
		return s.tracker.TrackDataSetCall(ctx, event)
	})
}

// trackDownload emits the download event off the request path. Token fields
// are filled only when a preview token actually authorized the download;
// tokens presented against a public version were never consulted and are not
// attributed.
func (s *Server) trackDownload(ctx context.Context, decision access.Decision, requestedVersion string) {
	if s.tracker == nil {
		return
	}

	event := analytics.CsvDownloadEvent{
		DataSetID:        decision.DataSet.ID,
		DataSetTitle:     decision.DataSet.Title,
		DataSetVersionID: decision.Version.ID,
		DataSetVersion:   decision.Version.Number.String(),
		RequestedVersion: requestedVersion,
		StartTime:        middleware.StartTime(ctx),
	}

	tokenID := contextkeys.GetPreviewToken(ctx)
	tokenUsed := tokenID != "" && !access.PubliclyVisible(decision.DataSet.Status, decision.Version.Status)

	async.SafeGo(ctx, analyticsTimeout, "track_csv_download", func(ctx context.Context) error {
		if tokenUsed {
			token, err := s.store.GetPreviewToken(ctx, tokenID)
			if err == nil {
				event.PreviewTokenLabel = token.Label
				event.PreviewTokenVersion = event.DataSetVersion
				event.PreviewTokenCreated = &token.Created
				event.PreviewTokenExpiry = &token.Expiry
			}
		}
		return s.tracker.TrackCsvDownload(ctx, event)
	})
}
