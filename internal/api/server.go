// Package api exposes the deliberation engine over HTTP: session
// launch and inspection, the persona catalog, stored-session
// analytics, and a Server-Sent Events stream of live progress.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/roundtable-ai/roundtable/internal/config"
	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/events"
	"github.com/roundtable-ai/roundtable/internal/logging"
	"github.com/roundtable-ai/roundtable/internal/persona"
	"github.com/roundtable-ai/roundtable/internal/service"
)

// Launcher starts sessions and exposes snapshots of the ones still
// running. *service.Manager satisfies it.
type Launcher interface {
	Launch(trigger service.Trigger) (*core.Session, error)
	Get(id string) (*core.Session, bool)
	Result(id string) (*core.SessionResult, bool)
	Active() []string
}

// Server serves the REST API and the event stream.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     config.ServerConfig
	defaults   config.SessionConfig
	launcher   Launcher
	store      core.SessionStore
	registry   *persona.Registry
	bus        *events.Bus
	logger     *logging.Logger
}

// Option configures the server.
type Option func(*Server)

// WithBus sets the event bus backing the SSE endpoint. Without it the
// endpoint answers 503.
func WithBus(bus *events.Bus) Option {
	return func(s *Server) {
		s.bus = bus
	}
}

// WithSessionDefaults sets the defaults applied to create requests
// that omit rounds or the voting rule.
func WithSessionDefaults(defaults config.SessionConfig) Option {
	return func(s *Server) {
		s.defaults = defaults
	}
}

// New creates the API server. The launcher handles live sessions, the
// store answers for finished ones.
func New(
	cfg config.ServerConfig,
	launcher Launcher,
	store core.SessionStore,
	registry *persona.Registry,
	logger *logging.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		config:   cfg,
		launcher: launcher,
		store:    store,
		registry: registry,
		logger:   logger.WithComponent("api"),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	// No WriteTimeout: the SSE stream stays open for the lifetime of
	// the client connection.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the Chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", s.handleListSessions)
				r.Post("/", s.handleCreateSession)
				r.Get("/active", s.handleActiveSessions)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", s.handleGetSession)
					r.Get("/result", s.handleGetResult)
				})
			})

			r.Route("/personas", func(r chi.Router) {
				r.Get("/", s.handleListPersonas)
				r.Get("/presets", s.handleListPresets)
				r.Get("/suggest", s.handleSuggestTeam)
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/personas", s.handlePersonaWinRates)
				r.Get("/rules", s.handleRuleEffectiveness)
			})
		})

		// The event stream sits outside the request timeout; it lives
		// as long as the client connection.
		r.Get("/events", s.handleSSE)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// errorBody is the JSON envelope for every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message, code string) {
	s.respondJSON(w, status, errorBody{Error: message, Code: code})
}

// respondDomainError maps a domain error to an HTTP status and sends
// it with its stable code.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		s.respondError(w, statusFor(domErr), domErr.Message, domErr.Code)
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error(), "")
}

func statusFor(err *core.DomainError) int {
	switch {
	case err.Code == core.CodeNotFound:
		return http.StatusNotFound
	case err.Code == core.CodeSessionState:
		return http.StatusConflict
	case err.Category == core.ErrCatValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server in a non-blocking manner.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.httpServer.Addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server. Established SSE streams
// are closed along with everything else.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
