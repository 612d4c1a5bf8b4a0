// Package server assembles the channel table, middleware and routes into a
// runnable service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kanalhq/kanal/internal/api/middleware"
	kanalhttp "github.com/kanalhq/kanal/internal/http"
	"github.com/kanalhq/kanal/internal/infrastructure/config"
	"github.com/kanalhq/kanal/internal/infrastructure/logging"
	"github.com/kanalhq/kanal/internal/infrastructure/monitoring"
	"github.com/kanalhq/kanal/internal/registry"
	"github.com/kanalhq/kanal/internal/ws"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router *gin.Engine
	table  *registry.Table
	log    *logging.Logger
	srv    *http.Server
}

// New builds a server from configuration.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	table, err := registry.New(cfg.Channels.Count, cfg.Channels.DefaultCapacity, registry.Policy{
		SingleWriter: cfg.Policy.SingleWriter,
		MaxOpeners:   cfg.Policy.MaxOpeners,
	})
	if err != nil {
		return nil, err
	}
	log.Info("channel table ready",
		zap.Int("channels", cfg.Channels.Count),
		zap.Int("capacity", cfg.Channels.DefaultCapacity),
		zap.Bool("single_writer", cfg.Policy.SingleWriter))

	promReg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(promReg)
	monitoring.NewCollector(table, promReg)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(monitoring.Middleware(metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := kanalhttp.NewHandlers(table, metrics, log)
	wsHandler := ws.NewHandler(table, metrics, log)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	router.GET("/channels", handlers.ListChannels)
	router.POST("/channels/:id/open", handlers.Open)
	router.DELETE("/handles/:hid", handlers.Close)
	router.POST("/handles/:hid/write", handlers.Write)
	router.POST("/handles/:hid/read", handlers.Read)

	router.GET("/channels/:id/capacity", handlers.GetCapacity)
	router.PUT("/channels/:id/capacity", handlers.SetCapacity)
	router.GET("/channels/:id/used", handlers.GetUsed)
	router.GET("/channels/:id/free", handlers.GetFree)
	router.POST("/channels/:id/control", handlers.Control)
	router.GET("/channels/:id/policy", handlers.GetPolicy)
	router.PUT("/channels/:id/policy", handlers.SetPolicy)

	router.GET("/channels/:id/stream", wsHandler.HandleStream)

	return &Server{
		router: router,
		table:  table,
		log:    log,
	}, nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts serving on addr and blocks until the listener fails or the
// server is shut down.
func (s *Server) Run(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	s.log.Info("serving", zap.String("addr", addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close drains in-flight requests and stops the server. Blocked channel
// waits are interrupted through their request contexts.
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
