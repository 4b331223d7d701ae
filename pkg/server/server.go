// Package server exposes the ranking pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz          liveness and build info
//	POST /v1/rank          rank an uploaded edge list (or a crawl, if enabled)
//	GET  /v1/runs          recent runs, newest first, without rankings
//	GET  /v1/runs/{id}     one archived run
//
// POST /v1/rank takes the edge list as the raw request body. Query
// parameters max_nodes, max_edges, damping, tolerance, max_iterations,
// matrix and top override the defaults. A JSON body (Content-Type
// application/json) is decoded as pipeline options instead; crawl mode is
// rejected unless [Config.AllowCrawl] is set.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/linkrank/pkg/buildinfo"
	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/pipeline"
	"github.com/matzehuels/linkrank/pkg/store"
)

// Defaults for [Config].
const (
	DefaultAddr         = ":8080"
	DefaultTimeout      = 2 * time.Minute
	DefaultMaxBodyBytes = 64 << 20
	DefaultTop          = 20
)

// Config configures a [Server].
type Config struct {
	Addr         string        `toml:"addr"`
	Timeout      time.Duration `toml:"timeout"`
	MaxBodyBytes int64         `toml:"max_body_bytes"`
	// DefaultTop is the number of ranking rows returned when the request
	// does not set top.
	DefaultTop int  `toml:"default_top"`
	AllowCrawl bool `toml:"allow_crawl"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.DefaultTop == 0 {
		c.DefaultTop = DefaultTop
	}
}

// Server serves the HTTP API.
type Server struct {
	cfg    Config
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
}

// New creates a server. The store also becomes the runner's archive.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger, cfg Config) *Server {
	cfg.setDefaults()
	if st == nil {
		st = store.NewMemory(0, store.Options{})
	}
	if logger == nil {
		logger = log.Default()
	}
	runner.Archive = st
	return &Server{cfg: cfg, runner: runner, store: st, logger: logger}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Timeout))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/rank", s.handleRank)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	opts, top, err := s.parseRankRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Logger = s.logger.With("request", middleware.GetReqID(r.Context()))

	rep, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep.Truncate(top))
}

func (s *Server) parseRankRequest(w http.ResponseWriter, r *http.Request) (pipeline.Options, int, error) {
	opts := pipeline.DefaultOptions()
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(body).Decode(&opts); err != nil {
			return opts, 0, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode options")
		}
		if opts.Mode == pipeline.ModeCrawl && !s.cfg.AllowCrawl {
			return opts, 0, errors.New(errors.ErrCodeUnsupported, "crawl mode is disabled on this server")
		}
		if opts.Mode == pipeline.ModeGraph {
			return opts, 0, errors.New(errors.ErrCodeUnsupported, "graph mode reads server files and is not accepted over HTTP")
		}
		if opts.Mode == pipeline.ModeLoad && opts.EdgeFile != "" {
			return opts, 0, errors.New(errors.ErrCodeUnsupported, "edge_file is not accepted over HTTP; upload the edge list")
		}
	} else {
		data, err := io.ReadAll(body)
		if err != nil {
			return opts, 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body")
		}
		if len(data) == 0 {
			return opts, 0, errors.New(errors.ErrCodeInvalidInput, "request body must contain an edge list")
		}
		opts.Mode = pipeline.ModeLoad
		opts.EdgeData = data
	}

	q := r.URL.Query()
	top := s.cfg.DefaultTop
	ints := map[string]*int{
		"max_nodes":      &opts.MaxNodes,
		"max_edges":      &opts.MaxEdges,
		"max_iterations": &opts.MaxIterations,
		"top":            &top,
	}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, 0, errors.New(errors.ErrCodeInvalidArguments, "%s must be an integer, got %q", name, v)
			}
			*dst = n
		}
	}
	if top < 0 {
		return opts, 0, errors.New(errors.ErrCodeInvalidArguments, "top must be a non-negative integer, got %d", top)
	}
	floats := map[string]*float64{
		"damping":   &opts.Damping,
		"tolerance": &opts.Tolerance,
	}
	for name, dst := range floats {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, 0, errors.New(errors.ErrCodeInvalidArguments, "%s must be a number, got %q", name, v)
			}
			*dst = f
		}
	}
	if v := q.Get("matrix"); v != "" {
		opts.Matrix = v
	}
	return opts, top, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, errors.New(errors.ErrCodeInvalidArguments, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	top := s.cfg.DefaultTop
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidArguments, "top must be a non-negative integer, got %q", v))
			return
		}
		top = n
	}
	writeJSON(w, http.StatusOK, rep.Truncate(top))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusFor(err), map[string]errorBody{
		"error": {Code: code, Message: errors.UserMessage(err)},
	})
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case stderrors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidArguments, errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidPath, errors.ErrCodeMalformedEdgeLine:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeEmptyGraph:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		return http.StatusForbidden
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
