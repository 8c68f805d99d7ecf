// Package api exposes the public HTTP endpoints of the dialbridge server:
// connection-details issuance, room deletion, health, and metrics.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dialbridge/dialbridge/internal/api/middleware"
	"github.com/dialbridge/dialbridge/internal/config"
	"github.com/dialbridge/dialbridge/internal/connection"
	"github.com/dialbridge/dialbridge/internal/metrics"
)

// ConnectionIssuer mints room credentials and starts the optional dial-out.
type ConnectionIssuer interface {
	IssueConnection(ctx context.Context, phoneNumber string) (*connection.Details, error)
}

// RoomCleaner deletes a room server-side, succeeding when the room is
// already gone.
type RoomCleaner interface {
	Run(ctx context.Context, roomName string) error
}

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router  *chi.Mux
	issuer  ConnectionIssuer
	cleaner RoomCleaner
	metrics *metrics.Metrics
	logger  *slog.Logger
	limiter *middleware.IPRateLimiter
}

// NewServer creates the HTTP handler with all routes mounted.
func NewServer(issuer ConnectionIssuer, cleaner RoomCleaner, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		issuer:  issuer,
		cleaner: cleaner,
		metrics: m,
		logger:  logger.With("subsystem", "api"),
		limiter: middleware.NewIPRateLimiter(middleware.DefaultRateLimitConfig()),
	}

	s.routes(cfg)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background goroutines owned by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

// routes configures the middleware stack and mounts all endpoints.
func (s *Server) routes(cfg *config.Config) {
	r := s.router

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS(middleware.ParseCORSOrigins(cfg.CORSOrigins)))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.limiter))
		r.Get("/connection-details", s.handleConnectionDetails)
		r.Post("/delete-room", s.handleDeleteRoom)
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
}

// handleHealth returns basic health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
