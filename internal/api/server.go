// Package api exposes the evaluation engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/cache"
	"github.com/medrx-safety-engine/internal/config"
	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/engine"
	"github.com/medrx-safety-engine/internal/middleware"
	"github.com/medrx-safety-engine/internal/unknowns"
)

// Server is the HTTP server wrapping the evaluation engine. The
// engine itself performs no I/O; caching and audit writes happen here,
// around the evaluation call.
type Server struct {
	cfg      *config.Config
	log      *logrus.Logger
	engine   *engine.Engine
	cache    *cache.ResultCache
	audit    domain.AuditSink
	unknowns unknowns.Store

	router *gin.Engine
	server *http.Server
}

// Options carries the optional collaborators. Nil fields disable the
// corresponding feature.
type Options struct {
	Cache    *cache.ResultCache
	Audit    domain.AuditSink
	Unknowns unknowns.Store
}

// NewServer builds the HTTP server and its routes.
func NewServer(cfg *config.Config, logger *logrus.Logger, eng *engine.Engine, opts Options) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(corsMiddleware())

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		router.Use(limiter.Middleware())
	}

	s := &Server{
		cfg:      cfg,
		log:      logger,
		engine:   eng,
		cache:    opts.Cache,
		audit:    opts.Audit,
		unknowns: opts.Unknowns,
		router:   router,
	}
	s.setupRoutes()
	return s
}

// Router exposes the configured routes, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/evaluate", s.handleEvaluate)
		v1.GET("/unknowns", s.handleListUnknowns)
		v1.GET("/unknowns/export", s.handleExportUnknowns)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
