// Package httpapi exposes the validation engine and baseline store over
// HTTP: ad-hoc comparisons, baseline CRUD, and validation runs against
// stored baselines.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/regard/pixel"
	"github.com/hazyhaar/regard/shield"
	"github.com/hazyhaar/regard/store"
	"github.com/hazyhaar/regard/validate"
)

// Server wires the engine and store into an HTTP handler.
type Server struct {
	engine *validate.Engine
	store  *store.Store
	logger *slog.Logger
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// New builds a Server. The store may be nil, which disables the baseline
// routes and run recording.
func New(engine *validate.Engine, st *store.Store, opts ...Option) *Server {
	s := &Server{engine: engine, store: st, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the chi router for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack() {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/validate", s.handleValidate)

	if s.store != nil {
		r.Route("/baselines", func(r chi.Router) {
			r.Post("/", s.handleCreateBaseline)
			r.Get("/", s.handleListBaselines)
			r.Get("/{id}", s.handleGetBaseline)
			r.Delete("/{id}", s.handleDeleteBaseline)
			r.Get("/{id}/runs", s.handleListRuns)
			r.Post("/{id}/validate", s.handleValidateAgainst)
		})
	}

	return r
}

// validateRequest is the body of POST /validate. Images are base64-encoded
// raw RGBA.
type validateRequest struct {
	URL              string   `json:"url,omitempty"`
	Selector         string   `json:"selector,omitempty"`
	BaselineImage    string   `json:"baselineImage,omitempty"`
	ActualImage      string   `json:"actualImage,omitempty"`
	Width            int      `json:"width,omitempty"`
	Height           int      `json:"height,omitempty"`
	Threshold        float64  `json:"threshold,omitempty"`
	MaxIterations    int      `json:"maxIterations,omitempty"`
	DiffThreshold    int      `json:"diffThreshold,omitempty"`
	MergeDistance    int      `json:"mergeDistance,omitempty"`
	KeepAnimations   bool     `json:"keepAnimations,omitempty"`
	ExcludeSelectors []string `json:"excludeSelectors,omitempty"`
	ViewportWidth    int      `json:"viewportWidth,omitempty"`
	ViewportHeight   int      `json:"viewportHeight,omitempty"`
}

func (req *validateRequest) toOptions() validate.Options {
	opts := validate.Options{
		URL:              req.URL,
		Selector:         req.Selector,
		ImageMeta:        pixel.Meta{Width: req.Width, Height: req.Height},
		Threshold:        req.Threshold,
		MaxIterations:    req.MaxIterations,
		DiffThreshold:    req.DiffThreshold,
		MergeDistance:    req.MergeDistance,
		KeepAnimations:   req.KeepAnimations,
		ExcludeSelectors: req.ExcludeSelectors,
		ViewportWidth:    req.ViewportWidth,
		ViewportHeight:   req.ViewportHeight,
	}
	if req.BaselineImage != "" {
		opts.BaselineImage = req.BaselineImage
	}
	if req.ActualImage != "" {
		opts.ActualImage = req.ActualImage
	}
	return opts
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.engine.Validate(req.toOptions())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// createBaselineRequest is the body of POST /baselines.
type createBaselineRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
	Image    string `json:"image"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func (s *Server) handleCreateBaseline(w http.ResponseWriter, r *http.Request) {
	var req createBaselineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" || req.Image == "" {
		writeError(w, http.StatusBadRequest, errors.New("name and image required"))
		return
	}

	b, _, err := s.engine.CreateBaseline(validate.Options{
		URL:           req.URL,
		Selector:      req.Selector,
		BaselineImage: req.Image,
		ImageMeta:     pixel.Meta{Width: req.Width, Height: req.Height},
		CaptureName:   req.Name,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	id, err := s.store.SaveBaseline(r.Context(), b)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "name": req.Name})
}

func (s *Server) handleListBaselines(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.ListBaselines(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if infos == nil {
		infos = []store.BaselineInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetBaseline(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.Baseline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBaseline(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBaseline(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.Runs(r.Context(), chi.URLParam(r, "id"), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleValidateAgainst validates an actual image against a stored
// baseline and records the run.
func (s *Server) handleValidateAgainst(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := s.store.Baseline(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts := req.toOptions()
	opts.BaselineImage = b.Image
	if opts.URL == "" {
		opts.URL = b.URL
	}
	if opts.Selector == "" {
		opts.Selector = b.Selector
	}
	if opts.ImageMeta.Width == 0 {
		opts.ImageMeta = pixel.Meta{Width: b.Width, Height: b.Height}
	}

	res, err := s.engine.Validate(opts)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	if res.CaptureInstructions == nil {
		if _, err := s.store.RecordRun(r.Context(), id, res); err != nil {
			s.logger.Error("httpapi: record run", "baseline", id, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, validate.ErrMissingBaseline),
		errors.Is(err, pixel.ErrInputShape),
		errors.Is(err, pixel.ErrMissingDimensions),
		errors.Is(err, pixel.ErrDimensionMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
