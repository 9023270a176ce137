// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and builds the logger, then:
//
//	Server.New() creates: sqlite.DB → AuthService / CapsuleService → UserHandler / CapsuleHandler
//	                                 ↘ auth.RequireAuth (guard, resolves users via AuthService)
//
// This is the "composition root" pattern: all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
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

	"github.com/sakif/time-capsule/internal/auth"
	"github.com/sakif/time-capsule/internal/config"
	"github.com/sakif/time-capsule/internal/handler"
	"github.com/sakif/time-capsule/internal/middleware"
	sqliteRepo "github.com/sakif/time-capsule/internal/repository/sqlite"
	"github.com/sakif/time-capsule/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). It is opened once in New and
// closed when Start returns (or by Close, for callers that never Start).
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
//  1. Open the database (sqlite.New)
//  2. Build the token and password services from config
//  3. Build the business services on the repository interfaces
//  4. Build the handlers on the services and wire them to routes
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                         → liveness text
// POST   /api/users/register       → create account, returns token
// POST   /api/users/login          → exchange credentials for token
// GET    /api/users/protected      → greeting           [auth]
// GET    /api/users/me             → current profile    [auth]
// POST   /api/capsules             → seal a capsule     [auth]
// GET    /api/capsules/unlocked    → open capsules, flags them notified [auth]
// GET    /api/capsules/all         → every owned capsule [auth]
// GET    /api/capsules             → same as /all       [auth]
// DELETE /api/capsules/{id}        → delete own capsule [auth]
// anything else                    → 404 {"message":"Endpoint not found"}
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info and the request id
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. CORS: answers preflight requests from the browser client
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}

	// s.db.Users() → repository.UserRepository, s.db → repository.CapsuleRepository.
	// Services see only those interfaces; handlers see only the services.
	authService := service.NewAuthService(s.db.Users(), tokens, passwords, s.logger)
	capsuleService := service.NewCapsuleService(s.db, s.logger)

	userHandler := handler.NewUserHandler(authService, s.logger)
	capsuleHandler := handler.NewCapsuleHandler(capsuleService, s.config.MaxUploadBytes, s.logger)

	requireAuth := auth.RequireAuth(tokens, authService, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Set before Route() so the sub-routers inherit them.
	s.router.NotFound(handler.HandleNotFound)
	s.router.MethodNotAllowed(handler.HandleNotFound)

	s.router.Get("/", handler.HandleLiveness)

	s.router.Route("/api/users", func(r chi.Router) {
		r.Post("/register", userHandler.HandleRegister)
		r.Post("/login", userHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/protected", userHandler.HandleProtected)
			r.Get("/me", userHandler.HandleMe)
		})
	})

	// The guard sits in a Group, not on the sub-router, so it wraps only the
	// matched routes. Unknown paths and methods here still get the JSON 404.
	s.router.Route("/api/capsules", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", capsuleHandler.HandleCreate)
			r.Get("/", capsuleHandler.HandleListAll)
			r.Get("/all", capsuleHandler.HandleListAll)
			r.Get("/unlocked", capsuleHandler.HandleListUnlocked)
			r.Delete("/{id}", capsuleHandler.HandleDelete)
		})
	})

	return nil
}

// Handler exposes the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it itself on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (SHUTDOWN_TIMEOUT)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
