// Package rest wires the portal's HTTP surface: the page shell, the JSON
// API driving it and the operational endpoints.
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"usergraph-portal/internal/config"
	"usergraph-portal/internal/gateway"
	"usergraph-portal/internal/middleware"
	"usergraph-portal/internal/observability"
	"usergraph-portal/internal/session"
)

// Router creates and configures the HTTP router
type Router struct {
	handler *Handler
	logger  *zap.Logger
	metrics *observability.Collector
	cfg     *config.Config
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, client *gateway.Client, sessions *session.Store, logger *zap.Logger, metrics *observability.Collector) *Router {
	return &Router{
		handler: NewHandler(cfg, client, sessions, logger),
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Recovery(rt.logger))
	router.Use(middleware.Metrics(rt.metrics))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Operational endpoints
	router.Get("/health", rt.handler.Health)
	if rt.cfg.Metrics.Enabled {
		router.Method(http.MethodGet, rt.cfg.Metrics.Path, rt.metrics.Handler())
	}

	// Portal page
	router.Get("/", rt.handler.Page)

	// JSON API for the page. The outer timeout leaves headroom over the
	// gateway's own fetch timeout so backend errors surface as backend
	// errors, not as portal timeouts.
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(rt.cfg.Backend.FetchTimeout+10*time.Second, rt.logger))

		r.Post("/login", rt.handler.Login)
		r.Get("/session", rt.handler.Session)
		r.Put("/settings", rt.handler.UpdateSettings)
		r.Post("/graph", rt.handler.FetchGraph)
		r.Get("/graph/export", rt.handler.ExportGraph)
	})

	return router
}
