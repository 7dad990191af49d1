// Package server exposes suites and validation runs over HTTP.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jadesonbruno/dataquality/catalog"
	"github.com/jadesonbruno/dataquality/dataset"
	"github.com/jadesonbruno/dataquality/internal/logger"
	"github.com/jadesonbruno/dataquality/report"
	"github.com/jadesonbruno/dataquality/rules"
)

// maxRequestBody bounds request bodies, inline data included.
const maxRequestBody = 10 << 20

var errUnknownSource = errors.New("unknown source")

// RunHistory lists stored runs; report.PostgresSink implements it.
type RunHistory interface {
	RecentRuns(ctx context.Context, suite string, limit int) ([]report.RunSummary, error)
}

type Server struct {
	catalog       *catalog.Catalog
	sinks         []rules.Sink
	db            *sql.DB
	history       RunHistory
	gatherer      prometheus.Gatherer
	defaultSource dataset.Config
	sources       map[string]dataset.Config
	runNamePrefix string
	logger        *slog.Logger
	router        *chi.Mux
}

// Option configures a Server.
type Option func(*Server)

// WithSinks sets the sinks every validation result is published to.
func WithSinks(sinks ...rules.Sink) Option {
	return func(s *Server) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithDB makes the health check ping db.
func WithDB(db *sql.DB) Option {
	return func(s *Server) {
		s.db = db
	}
}

// WithHistory enables GET /api/v1/runs.
func WithHistory(h RunHistory) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithDefaultSource sets the source used when a request names none.
func WithDefaultSource(cfg dataset.Config) Option {
	return func(s *Server) {
		s.defaultSource = cfg
	}
}

// WithSources sets the named sources a request may select. Requests can
// only read data the server was configured with.
func WithSources(sources map[string]dataset.Config) Option {
	return func(s *Server) {
		s.sources = maps.Clone(sources)
	}
}

// WithRunNamePrefix sets the prefix of generated run names.
func WithRunNamePrefix(prefix string) Option {
	return func(s *Server) {
		s.runNamePrefix = prefix
	}
}

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(cat *catalog.Catalog, opts ...Option) *Server {
	s := &Server{
		catalog:       cat,
		gatherer:      prometheus.DefaultGatherer,
		runNamePrefix: "run",
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/suites", func(r chi.Router) {
		r.Get("/", s.handleListSuites)
		r.Get("/{name}", s.handleGetSuite)
		r.Put("/{name}", s.handlePutSuite)
		r.Delete("/{name}", s.handleDeleteSuite)
	})

	r.Post("/api/v1/validate", s.handleValidate)
	r.Get("/api/v1/runs", s.handleListRuns)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs one line per request and counts client and server
// errors.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		}
		switch {
		case ww.Status() >= 500:
			s.logger.Error("request failed", attrs...)
		case ww.Status() >= 400:
			s.logger.Warn("request rejected", attrs...)
		default:
			s.logger.Debug("request served", attrs...)
		}
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Error: err.Error()})
			return
		}
	}

	suites, err := s.catalog.Suites()
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Suites: len(suites)})
}

func (s *Server) handleListSuites(w http.ResponseWriter, r *http.Request) {
	suites, err := s.catalog.Suites()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list suites", err)
		return
	}

	resp := SuitesListResponse{Suites: make([]SuiteSummary, 0, len(suites))}
	for _, suite := range suites {
		resp.Suites = append(resp.Suites, SuiteSummary{Name: suite.Name(), Rules: suite.Len()})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSuite(w http.ResponseWriter, r *http.Request) {
	suite, err := s.catalog.Suite(chi.URLParam(r, "name"))
	if err != nil {
		respondSuiteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SuiteResponse{Name: suite.Name(), Rules: suite.Rules()})
}

func (s *Server) handlePutSuite(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req PutSuiteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := catalog.ValidateSuiteFile(&catalog.SuiteFile{Name: name, Rules: req.Rules}); err != nil {
		respondError(w, http.StatusBadRequest, "invalid suite", err)
		return
	}
	suite, err := rules.SuiteFromRules(name, req.Rules...)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid suite", err)
		return
	}
	if err := s.catalog.AddSuite(suite); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store suite", err)
		return
	}

	s.logger.Info("suite stored", "suite", name, "rules", suite.Len())
	respondJSON(w, http.StatusOK, SuiteResponse{Name: suite.Name(), Rules: suite.Rules()})
}

func (s *Server) handleDeleteSuite(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteSuite(chi.URLParam(r, "name")); err != nil {
		respondSuiteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validation handler
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Suite == "" {
		respondError(w, http.StatusBadRequest, "suite is required", nil)
		return
	}
	if req.Source != "" && req.Data != nil {
		respondError(w, http.StatusBadRequest, "source and data are mutually exclusive", nil)
		return
	}

	suite, err := s.catalog.Suite(req.Suite)
	if err != nil {
		respondSuiteError(w, err)
		return
	}

	src, closeSrc, err := s.openSource(r.Context(), req)
	if err != nil {
		if errors.Is(err, errUnknownSource) {
			respondError(w, http.StatusBadRequest, "unknown source", err)
			return
		}
		respondError(w, http.StatusBadRequest, "failed to open source", err)
		return
	}
	defer closeSrc()

	runName := req.RunName
	if runName == "" {
		runName = rules.DefaultRunName(s.runNamePrefix, time.Now())
	}

	result, err := s.catalog.Engine().Run(r.Context(), suite, src, rules.WithRunName(runName))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "validation failed", err)
		return
	}

	resp := ValidateResponse{Record: report.NewRecord(result), Description: result.Describe()}
	for _, sink := range s.sinks {
		if err := rules.Publish(r.Context(), sink, result); err != nil {
			s.logger.Error("failed to publish result", "sink", rules.SinkName(sink), "run", result.RunName, "error", err)
			resp.SinkErrors = append(resp.SinkErrors, err.Error())
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// openSource resolves the dataset of a validation request.
func (s *Server) openSource(ctx context.Context, req ValidateRequest) (dataset.Source, func(), error) {
	if req.Data != nil {
		frame, err := dataset.NewFrame("request", req.Data.Columns, req.Data.Records)
		if err != nil {
			return nil, nil, err
		}
		return frame, func() {}, nil
	}

	cfg := s.defaultSource
	if req.Source != "" {
		named, ok := s.sources[req.Source]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", errUnknownSource, req.Source)
		}
		cfg = named
	}
	if cfg.Type == "" {
		return nil, nil, errors.New("no source given and no default source configured")
	}

	src, err := dataset.Open(ctx, cfg, s.logger)
	if err != nil {
		return nil, nil, err
	}
	return src, func() {
		if err := src.Close(); err != nil {
			s.logger.Warn("failed to close source", "source", src.Name(), "error", err)
		}
	}, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotImplemented, "run history is not configured", nil)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000", err)
			return
		}
		limit = n
	}

	runs, err := s.history.RecentRuns(r.Context(), r.URL.Query().Get("suite"), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []report.RunSummary{}
	}
	respondJSON(w, http.StatusOK, RunsListResponse{Runs: runs})
}

// Helper functions

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after JSON body")
	}
	return nil
}

func respondSuiteError(w http.ResponseWriter, err error) {
	if errors.Is(err, rules.ErrSuiteNotFound) {
		respondError(w, http.StatusNotFound, "suite not found", err)
		return
	}
	respondError(w, http.StatusInternalServerError, "failed to load suite", err)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}

// RegisterLogCounters exposes the logger's warning and error counters.
func RegisterLogCounters(reg prometheus.Registerer) error {
	return errors.Join(
		reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "dq_log_errors_total",
			Help: "Error records logged, before sampling",
		}, func() float64 { return float64(logger.TotalErrors.Load()) })),
		reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "dq_log_warnings_total",
			Help: "Warning records logged, before sampling",
		}, func() float64 { return float64(logger.TotalWarnings.Load()) })),
	)
}
