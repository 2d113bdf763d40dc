package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/openstats/databank/pkg/access"
	"github.com/openstats/databank/pkg/analytics"
	"github.com/openstats/databank/pkg/httputil"
	"github.com/openstats/databank/pkg/middleware"
	"github.com/openstats/databank/pkg/observability"
	"github.com/openstats/databank/pkg/storage"
)

// Server serves the public data API.
type Server struct {
	store   storage.Store
	router  *mux.Router
	engine  *access.Engine
	tracker *analytics.EventTracker
	metrics *observability.Metrics
	logger  *observability.Logger
}

// Options carries the optional server wiring.
type Options struct {
	// CORSAllowedOrigins restricts cross-origin browser access. Empty means
	// no CORS headers are emitted.
	CORSAllowedOrigins []string

	// Metrics, when set, records request and access-decision metrics.
	Metrics *observability.Metrics

	// Logger, when set, receives request-scoped structured logs.
	Logger *observability.Logger
}

// NewServer creates the API server. db is the analytics sink and may be nil,
// in which case usage events are not recorded.
func NewServer(store storage.Store, db *sql.DB, opts Options) *Server {
	s := &Server{
		store:   store,
		router:  mux.NewRouter(),
		engine:  access.NewEngine(store, opts.Logger),
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if db != nil {
		s.tracker = analytics.NewEventTracker(db)
	}
	s.setupRoutes(opts)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts Options) {
	s.router.Use(httputil.RecoveryMiddleware)
	if len(opts.CORSAllowedOrigins) > 0 {
		s.router.Use(httputil.CORSMiddleware(opts.CORSAllowedOrigins))
	}
	s.router.Use(middleware.RequestIDMiddleware(s.logger))
	s.router.Use(middleware.PreviewTokenMiddleware)
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics, routeTemplate))
	}

	s.router.HandleFunc("/v1/data-sets", s.listDataSets).Methods("GET")
	s.router.HandleFunc("/v1/data-sets/{dataSetId}", s.getDataSet).Methods("GET")
	s.router.HandleFunc("/v1/data-sets/{dataSetId}/meta", s.getDataSetMeta).Methods("GET")
	s.router.HandleFunc("/v1/data-sets/{dataSetId}/csv", s.downloadCsv).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routeTemplate labels metrics with the matched route pattern rather than
// the raw path, keeping label cardinality bounded.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}
