package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/davidbz/promptdesk/internal/config"
	"github.com/davidbz/promptdesk/internal/http/middleware"
	"github.com/davidbz/promptdesk/internal/observability"
)

const adminRealm = "promptdesk admin"

// Server represents the HTTP server.
type Server struct {
	config       *config.ServerConfig
	adminConfig  *config.AdminConfig
	handler      *Handler
	adminHandler *AdminHandler
	middlewares  middleware.Middleware
	srv          *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.ServerConfig,
	adminCfg *config.AdminConfig,
	handler *Handler,
	adminHandler *AdminHandler,
	middlewares middleware.Middleware,
) *Server {
	s := &Server{
		config:       cfg,
		adminConfig:  adminCfg,
		handler:      handler,
		adminHandler: adminHandler,
		middlewares:  middlewares,
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Routes(),
		ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
	}

	return s
}

// Routes builds the router with the middleware chain applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.StripSlashes)
	r.Use(chimiddleware.Recoverer)

	r.NotFound(s.handler.HandleNotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", r.Method))
	})

	r.Get("/health", s.handler.HandleHealth)

	r.Route("/api/request", func(r chi.Router) {
		r.Post("/", s.handler.HandleCreate)
		r.Get("/", s.handler.HandleList)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handler.HandleGet)
			r.Put("/", s.handler.HandleUpdate)
			r.Patch("/", s.handler.HandlePatch)
			r.Delete("/", s.handler.HandleDelete)
			r.Post("/cancel", s.handler.HandleCancel)
			r.Post("/resolve", s.handler.HandleResolve)
		})
	})

	if s.adminConfig != nil && len(s.adminConfig.Users) > 0 && s.adminHandler != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(chimiddleware.BasicAuth(adminRealm, s.adminConfig.Users))

			r.Get("/api-keys", s.adminHandler.HandleListKeys)
			r.Post("/api-keys", s.adminHandler.HandleCreateKey)
			r.Get("/api-keys/{id}", s.adminHandler.HandleGetKey)
			r.Put("/api-keys/{id}", s.adminHandler.HandleUpdateKey)
			r.Patch("/api-keys/{id}", s.adminHandler.HandleUpdateKey)
			r.Delete("/api-keys/{id}", s.adminHandler.HandleDeleteKey)

			r.Get("/requests", s.adminHandler.HandleListRequests)
			r.Get("/requests/{id}", s.adminHandler.HandleGetRequest)
			r.Post("/requests/cancel", s.adminHandler.HandleBulkCancel)
			r.Post("/requests/resolve", s.adminHandler.HandleBulkResolve)

			r.Get("/queue", s.adminHandler.HandleQueue)
		})
	}

	if s.middlewares == nil {
		return r
	}
	return s.middlewares(r)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	observability.FromContext(ctx).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
