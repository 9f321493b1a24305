// Package api provides the HTTP API server and handlers for the Overflow forum.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devoverflow/overflow-server/internal/auth"
	"github.com/devoverflow/overflow-server/internal/ratelimit"
	"github.com/devoverflow/overflow-server/internal/search"
	"github.com/devoverflow/overflow-server/internal/sse"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping() error
}

// Options holds everything the server needs. Only Services and Tokens are
// required; a nil SSE manager disables the event stream and a nil
// IPLimiter disables per-address limits on anonymous writes.
type Options struct {
	Services    *Services
	Tokens      *auth.TokenService
	SSE         *sse.Manager
	Database    Pinger
	Index       *search.SearchIndex
	IPLimiter   *ratelimit.KeyedRateLimiter
	CORSOrigins []string
	Logger      *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services  *Services
	tokens    *auth.TokenService
	sse       *sse.Manager
	database  Pinger
	index     *search.SearchIndex
	ipLimiter *ratelimit.KeyedRateLimiter
	router    *chi.Mux
	api       huma.API
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		services:  opts.Services,
		tokens:    opts.Tokens,
		sse:       opts.SSE,
		database:  opts.Database,
		index:     opts.Index,
		ipLimiter: opts.IPLimiter,
		router:    chi.NewRouter(),
		logger:    logger,
	}

	s.setupMiddleware(opts.CORSOrigins)

	humaConfig := huma.DefaultConfig("Overflow API", "1.0.0")
	humaConfig.Info.Description = "Questions, answers, votes and tags for the Overflow forum."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	// No $schema links inside enveloped bodies.
	humaConfig.CreateHooks = nil
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.observe)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(middleware.Compress(5))
	s.router.Use(authMiddleware(s.tokens))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerQuestionRoutes()
	s.registerAnswerRoutes()
	s.registerVoteRoutes()
	s.registerCollectionRoutes()
	s.registerTagRoutes()
	s.registerSearchRoutes()

	s.router.Handle("/metrics", promhttp.Handler())

	if s.sse != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.sse, s.streamUser, s.logger).ServeHTTP)
	}
}
