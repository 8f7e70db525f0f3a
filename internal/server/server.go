// Package server exposes the query pipeline, table sync and schema
// introspection over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atabot/atabot/internal/config"
	"github.com/atabot/atabot/internal/database"
	"github.com/atabot/atabot/internal/engine"
	"github.com/atabot/atabot/internal/ingest"
	"github.com/atabot/atabot/internal/logger"
	"github.com/atabot/atabot/internal/vectordb"
)

// Server wires the engine and its collaborators into a gin router.
type Server struct {
	engine   *engine.Engine
	syncer   *ingest.Syncer
	db       database.Introspector
	store    vectordb.Provider
	sessions engine.SessionStore
	cfg      config.ServerConfig

	router *gin.Engine
	http   *http.Server
	jobs   *jobTracker
}

// New builds the server. db may be nil when no relational source is
// configured; sync and schema endpoints then report unavailable.
func New(cfg config.ServerConfig, eng *engine.Engine, syncer *ingest.Syncer, db database.Introspector, store vectordb.Provider) *Server {
	s := &Server{
		engine:   eng,
		syncer:   syncer,
		db:       db,
		store:    store,
		sessions: eng.Sessions,
		cfg:      cfg,
		jobs:     newJobTracker(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	api := router.Group("/api/v1")
	{
		api.POST("/chat", s.handleChat)

		api.POST("/sync", s.handleSync)
		api.GET("/sync/status/:job_id", s.handleSyncStatus)

		api.GET("/schema", s.handleListSchemas)
		api.GET("/schema/:schema_name", s.handleSchemaInfo)

		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:session_id", s.handleGetSession)
		api.DELETE("/sessions/:session_id", s.handleDeleteSession)
	}

	health := router.Group("/health")
	{
		health.GET("", s.handleHealth)
		health.GET("/ready", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ready": true}) })
		health.GET("/live", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"alive": true}) })
	}
	return router
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	s.http = &http.Server{Handler: s.router, Addr: addr}
	logger.Infof("http server listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	grace := time.Duration(s.cfg.ShutdownSeconds) * time.Second
	if grace > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, grace)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infof("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}
