// Package api serves benchmark runs and stored results over HTTP.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/iamshnoo/soc-bias/adapters/embedding"
	"github.com/iamshnoo/soc-bias/adapters/results"
	"github.com/iamshnoo/soc-bias/app"
	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/internal/container"
	"github.com/iamshnoo/soc-bias/internal/errors"
)

// RunBody is the payload of POST /api/v1/runs. Omitted fields take the
// configured defaults.
type RunBody struct {
	Tests           []string `json:"tests" validate:"omitempty,dive,required"`
	NSamples        *int     `json:"n_samples" validate:"omitempty,gte=1,lte=1000000"`
	Parametric      *bool    `json:"parametric"`
	Seed            *int64   `json:"seed"`
	EmbeddingModels []string `json:"embedding_models" validate:"omitempty,dive,required"`
	ExperimentName  string   `json:"experiment_name" validate:"omitempty,excludesall=/\\"`
	BiasType        string   `json:"bias_type" validate:"omitempty,excludesall=/\\"`
}

// Server exposes the HTTP API
type Server struct {
	router   *chi.Mux
	c        *container.Container
	validate *validator.Validate
	logger   *internal.Logger
}

// NewServer creates a server on top of the container's dependencies
func NewServer(c *container.Container) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		c:        c,
		validate: newValidator(),
		logger:   c.Logger.With("api"),
	}
	s.setupRoutes()
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.c.Recorder.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/models", s.handleModels)
		r.Get("/tests", s.handleTests)
		r.Post("/runs", s.handleRun)
		r.Get("/experiments", s.handleExperiments)
		r.Get("/experiments/{id}/results", s.handleExperimentResults)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  s.c.Config.Server.ReadTimeout,
		WriteTimeout: s.c.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"loaded_models": s.c.Providers().Loaded(),
		"database":      s.c.ResultRepo != nil,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": embedding.Models()})
}

func (s *Server) handleTests(w http.ResponseWriter, r *http.Request) {
	ids, err := s.c.Loader.Discover(r.Context())
	if err != nil {
		s.writeError(w, errors.NotFound("test directory "+s.c.Loader.Dir()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tests": ids})
}

// handleRun executes a run synchronously and answers with its reports
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body RunBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, errors.InvalidInput(fmt.Sprintf("invalid request body: %v", err)))
		return
	}
	if err := s.validate.Struct(body); err != nil {
		s.writeError(w, errors.WithCode(errors.CodeValidationError, err))
		return
	}

	reports, err := s.c.Sweep().Run(r.Context(), s.sweepRequest(body))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": reports})
}

func (s *Server) sweepRequest(body RunBody) app.SweepRequest {
	defaults := s.c.Config.Run
	req := app.SweepRequest{
		Models:     defaults.EmbeddingModels,
		Tests:      body.Tests,
		NSamples:   defaults.NSamples,
		Parametric: defaults.Parametric,
		Seed:       defaults.Seed,
		Naming:     s.c.Naming(),
	}
	if len(body.EmbeddingModels) > 0 {
		req.Models = body.EmbeddingModels
	}
	if body.NSamples != nil {
		req.NSamples = *body.NSamples
	}
	if body.Parametric != nil {
		req.Parametric = *body.Parametric
	}
	if body.Seed != nil {
		req.Seed = *body.Seed
	}
	if body.ExperimentName != "" {
		req.Naming.Name = body.ExperimentName
	}
	if body.BiasType != "" {
		req.Naming.BiasType = body.BiasType
	}
	return req
}

func (s *Server) handleExperiments(w http.ResponseWriter, r *http.Request) {
	if s.c.ResultRepo == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "no result database configured", Code: errors.CodeConfigInvalid})
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	summaries, err := s.c.ResultRepo.ListExperiments(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"experiments": summaries})
}

// handleExperimentResults reads from the database when one is configured and
// from the JSON results directory otherwise
func (s *Server) handleExperimentResults(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseExperimentID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.InvalidInput(err.Error()))
		return
	}

	if s.c.ResultRepo != nil {
		res, err := s.c.ResultRepo.ListResults(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	entries, err := results.ReadEntries(s.c.JSON.ResultsPath(id))
	if err != nil {
		s.writeError(w, errors.NotFound("experiment "+id.String()))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: errors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
