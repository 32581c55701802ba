package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/trackboard/internal/domain/project"
)

// ListCacheControl lets browsers and proxies reuse a list response briefly.
const ListCacheControl = "public, max-age=60, s-maxage=60, stale-while-revalidate=120"

// ProjectService is the request layer behind the REST routes.
type ProjectService interface {
	List(ctx context.Context) ([]project.Project, error)
	Create(ctx context.Context, in project.Input) (*project.Project, error)
	Update(ctx context.Context, id string, in project.Input) (*project.Project, error)
	Delete(ctx context.Context, id string) (*project.Project, error)
}

// Server wires HTTP handlers.
type Server struct {
	projects ProjectService
	logger   *slog.Logger
}

type options struct {
	logger  *slog.Logger
	metrics http.Handler
	mcp     http.Handler
	limiter *RateLimiter
}

// Option configures the router.
type Option func(*options)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(o *options) { o.metrics = h }
}

// WithMCP mounts h at /mcp.
func WithMCP(h http.Handler) Option {
	return func(o *options) { o.mcp = h }
}

// WithRateLimiter limits /api requests per client.
func WithRateLimiter(l *RateLimiter) Option {
	return func(o *options) { o.limiter = l }
}

// NewServer creates an HTTP server router with middleware.
func NewServer(projects ProjectService, opts ...Option) *chi.Mux {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(o.logger))
	r.Use(RecoverMiddleware(o.logger))

	srv := &Server{projects: projects, logger: o.logger}

	r.Get("/health", srv.handleHealth)
	if o.metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.metrics)
	}
	if o.mcp != nil {
		r.Handle("/mcp", o.mcp)
	}

	r.Route("/api/projects", func(r chi.Router) {
		if o.limiter != nil {
			r.Use(o.limiter.Middleware)
		}
		r.Get("/", srv.handleList)
		r.Post("/", srv.handleCreate)
		r.Put("/{id}", srv.handleUpdate)
		r.Delete("/{id}", srv.handleDelete)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", ListCacheControl)
	WriteData(w, http.StatusOK, projects)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	proj, err := s.projects.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteData(w, http.StatusCreated, proj)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	proj, err := s.projects.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, proj)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	proj, err := s.projects.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, proj)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if project.OutcomeOf(err) == project.OutcomeError {
		requestID, _ := RequestIDFromContext(r.Context())
		s.logger.ErrorContext(r.Context(), "request failed", "error", err, "request_id", requestID)
	}
	WriteServiceError(w, err)
}

func decodeInput(w http.ResponseWriter, r *http.Request) (project.Input, bool) {
	var in project.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteError(w, http.StatusBadRequest, MsgInvalidBody, nil)
		return project.Input{}, false
	}
	return in, true
}
