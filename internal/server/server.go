// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency — database, executor, gate,
// limiters, handlers — is created and wired here, in one place. main.go only
// supplies configuration and calls Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/pyrunner/internal/auth"
	"github.com/sakif/pyrunner/internal/executor/subprocess"
	"github.com/sakif/pyrunner/internal/handler"
	"github.com/sakif/pyrunner/internal/middleware"
	"github.com/sakif/pyrunner/internal/ratelimit"
	"github.com/sakif/pyrunner/internal/repository"
	sqliteRepo "github.com/sakif/pyrunner/internal/repository/sqlite"
	"github.com/sakif/pyrunner/internal/service"
)

// Version reported by the root info endpoint.
const Version = "1.0.0"

// Config holds server configuration.
type Config struct {
	Port int
	// DBPath is the SQLite file for execution history. Empty disables history.
	DBPath string
	// JWTSecret enables bearer-token auth on the API when non-empty.
	JWTSecret string
	// PythonBin overrides the interpreter binary. Empty means the default.
	PythonBin string
	// InheritEnv passes the server's full environment to child processes
	// instead of the allowlist. See subprocess.Config.
	InheritEnv bool
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB // nil when history is disabled
}

// New creates a new Server, assembling the whole dependency chain:
// sqlite → gate (with subprocess executor) → handlers → routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}

	var history repository.ExecutionRepository
	if cfg.DBPath != "" {
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		s.db = db
		history = db
	}

	if err := s.setupRoutes(history); err != nil {
		if s.db != nil {
			s.db.Close()
		}
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// Middleware order matters: RequestID and RealIP first (the rate limiter
// keys on the real client address), Recoverer before anything that can
// panic, then request logging.
func (s *Server) setupRoutes(history repository.ExecutionRepository) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Executor and Gate ===
	execCfg := subprocess.DefaultConfig()
	if s.config.PythonBin != "" {
		execCfg.PythonBin = s.config.PythonBin
	}
	execCfg.InheritEnv = s.config.InheritEnv

	exec := subprocess.New(execCfg, s.logger)
	gate := service.NewGate(service.GateConfig{
		RunTimeout:     execCfg.RunTimeout,
		InstallTimeout: execCfg.InstallTimeout,
	}, exec, exec, history, s.logger)

	// === Handlers ===
	executeHandler := handler.NewExecuteHandler(gate, s.logger)
	executionsHandler := handler.NewExecutionsHandler(gate, s.logger)
	healthHandler := handler.NewHealthHandler(exec.Version)
	infoHandler := handler.NewInfoHandler(Version)

	// === Optional auth ===
	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	}

	// === Admission policies ===
	// One limiter per endpoint; independent budgets, independent tables.
	runLimiter := ratelimit.New(ratelimit.RunPolicy())
	installLimiter := ratelimit.New(ratelimit.InstallPolicy())

	s.router.Get("/", infoHandler.HandleInfo)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		// CORS for browser clients; also answers the OPTIONS preflight
		// variants of the POST endpoints with an empty success response.
		// It sits outside auth so preflights never need a token.
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         300,
		}))

		r.Get("/health", healthHandler.HandleHealth)

		r.Group(func(r chi.Router) {
			if tokens != nil {
				r.Use(auth.RequireBearer(tokens))
			}
			r.With(middleware.RateLimit(runLimiter, "run", s.logger)).
				Post("/run", executeHandler.HandleRun)
			r.With(middleware.RateLimit(installLimiter, "install", s.logger)).
				Post("/install", executeHandler.HandleInstall)
			r.Get("/executions", executionsHandler.HandleList)
		})
	})

	return nil
}

// Router exposes the configured handler tree, mainly for tests that want to
// exercise the full middleware chain without binding a port.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and handles graceful shutdown:
// stop accepting connections, drain in-flight requests, close the database.
func (s *Server) Start() error {
	if s.db != nil {
		defer s.db.Close()
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// The install path legitimately blocks its handler for up to 120s;
		// the write timeout must outlast the longest execution deadline.
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("historyEnabled", s.db != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests (possibly mid-execution) time to finish.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
