package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/meshtrust/internal/audit"
	"github.com/ziadkadry99/meshtrust/internal/scoring"
	"github.com/ziadkadry99/meshtrust/internal/trust"
	"github.com/ziadkadry99/meshtrust/internal/verification"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
	Logger   *slog.Logger
}

// Services are the engine components exposed over HTTP. Nil members are
// simply not routed.
type Services struct {
	Trust         *trust.Store
	Verifications *verification.Store
	Scorer        *scoring.Scorer
	Audit         *audit.Store
}

// Server is the meshtrust HTTP API.
type Server struct {
	cfg        Config
	svc        Services
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server and registers every feature package's routes.
func New(cfg Config, svc Services) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		logger: cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if s.svc.Trust != nil {
		trust.RegisterRoutes(r, s.svc.Trust)
	}
	if s.svc.Verifications != nil {
		verification.RegisterRoutes(r, s.svc.Verifications)
	}
	if s.svc.Scorer != nil {
		scoring.RegisterRoutes(r, s.svc.Scorer)
	}
	if s.svc.Audit != nil {
		audit.RegisterRoutes(r, s.svc.Audit)
	}

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("meshtrust server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
