package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/authtree"
	"github.com/aretw0/authtree/internal/logging"
	"github.com/aretw0/authtree/internal/presentation/graph"
	"github.com/aretw0/authtree/pkg/adapters/realm"
	"github.com/aretw0/authtree/pkg/continuation"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds the size of an authenticate request.
const maxBodyBytes = 1 << 20

// Engine defines what the HTTP surface needs from the authentication engine.
type Engine interface {
	Authenticate(ctx context.Context, req authtree.AuthRequest) (*authtree.Response, error)
	Trees(ctx context.Context) ([]string, error)
	Inspect(ctx context.Context, name string) (*domain.Tree, error)
}

// Server serves the JSON authenticate protocol.
type Server struct {
	Engine   Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	limiter  *ClientLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics exposes the gatherer on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithRateLimit limits authenticate calls per client IP.
func WithRateLimit(l *ClientLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/json", func(r chi.Router) {
		r.With(s.rateLimit).Post("/authenticate", s.Authenticate)
		r.Get("/trees", s.ListTrees)
		r.Get("/trees/{name}", s.GetTree)
		r.Get("/trees/{name}/graph", s.GetGraph)
	})
	return r
}

type authenticateRequest struct {
	Tree            string            `json:"tree"`
	AuthID          string            `json:"authId"`
	Callbacks       []domain.Callback `json:"callbacks"`
	TargetAuthLevel *int              `json:"targetAuthLevel"`
}

type authenticateResponse struct {
	AuthID            string            `json:"authId,omitempty"`
	Callbacks         []domain.Callback `json:"callbacks,omitempty"`
	Status            string            `json:"status,omitempty"`
	Identity          string            `json:"identity,omitempty"`
	AuthLevel         *int              `json:"authLevel,omitempty"`
	SessionProperties map[string]string `json:"sessionProperties,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Authenticate handles POST /json/authenticate.
func (s *Server) Authenticate(w http.ResponseWriter, r *http.Request) {
	var body authenticateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if body.Tree == "" && body.AuthID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tree or authId is required"})
		return
	}

	resp, err := s.Engine.Authenticate(r.Context(), authtree.AuthRequest{
		Tree:            body.Tree,
		Token:           body.AuthID,
		Callbacks:       body.Callbacks,
		TargetAuthLevel: body.TargetAuthLevel,
		Parameters:      r.URL.Query(),
		Headers:         r.Header,
		ClientIP:        clientIP(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch resp.Status {
	case domain.ResultNeedInput:
		writeJSON(w, http.StatusOK, authenticateResponse{AuthID: resp.Token, Callbacks: resp.Callbacks})
	case domain.ResultTrue:
		level := resp.AuthLevel
		writeJSON(w, http.StatusOK, authenticateResponse{
			Status:            "success",
			Identity:          resp.Identity,
			AuthLevel:         &level,
			SessionProperties: resp.SessionProperties,
		})
	default:
		writeJSON(w, http.StatusUnauthorized, authenticateResponse{Status: "failure"})
	}
}

// ListTrees handles GET /json/trees.
func (s *Server) ListTrees(w http.ResponseWriter, r *http.Request) {
	names, err := s.Engine.Trees(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"trees": names})
}

type treeResponse struct {
	*realm.TreeDefinition
	Unreachable []string `json:"unreachable,omitempty"`
}

// GetTree handles GET /json/trees/{name}.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Engine.Inspect(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, treeResponse{
		TreeDefinition: realm.Definition(tree),
		Unreachable:    tree.Unreachable(),
	})
}

// GetGraph handles GET /json/trees/{name}/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Engine.Inspect(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(graph.GenerateMermaid(tree, nil)))
}

// writeError maps engine errors onto HTTP statuses. Configuration and processing
// failures are logged in full and reported with a generic body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, continuation.ErrInvalidToken),
		errors.Is(err, continuation.ErrExpired),
		errors.Is(err, authtree.ErrStaleContinuation),
		errors.Is(err, authtree.ErrTreeMismatch),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case domain.IsConfigError(err), domain.IsProcessingError(err):
		class := "processing"
		if domain.IsConfigError(err) {
			class = "config"
		}
		s.logger.Error("authentication failed",
			"class", class,
			"path", r.URL.Path,
			"err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	case errors.Is(err, domain.ErrTreeNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "tree not found"})
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
