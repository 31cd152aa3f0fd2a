// Package server is the HTTP facade: import submission, IR score intake
// and the pollable import status surface, served with gin.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"encore/internal/config"
	"encore/internal/jobs"
	"encore/internal/logging"
	"encore/internal/scoreimport"
	"encore/internal/storage"
)

type Server struct {
	cfg      *config.Config
	store    *storage.Store
	runner   *jobs.Runner
	registry *scoreimport.Registry
	logger   *slog.Logger
	http     *http.Server
}

func New(cfg *config.Config, store *storage.Store, runner *jobs.Runner, registry *scoreimport.Registry, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		runner:   runner,
		registry: registry,
		logger:   logging.WithSubject(logger, "server"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(s.requestLog(), gin.Recovery())

	if len(cfg.Server.AllowOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.Server.AllowOrigins
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-User-ID")
		engine.Use(cors.New(corsCfg))
	}

	v1 := engine.Group("/api/v1", s.auth())
	{
		v1.GET("/status", s.handleStatus)
		v1.POST("/import/file", s.handleImportFile)
		v1.POST("/import/direct", s.handleImportDirect)
		v1.POST("/ir/barbatos/score", s.handleBarbatos)
		v1.POST("/ir/beatoraja/score", s.handleBeatoraja)
		v1.GET("/imports/:importID", s.handleGetImport)
		v1.GET("/imports/:importID/poll-status", s.handlePollStatus)
	}

	s.http = &http.Server{
		Addr:              cfg.Server.Bind,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requestLog logs one line per request, spiritually access-log shaped.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// auth enforces the configured bearer token. An empty token disables auth,
// which is how local single-user deployments run.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.cfg.Server.APIToken
		if token == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing api token"})
			return
		}
		c.Next()
	}
}
