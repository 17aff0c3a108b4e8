//go:build windows

// Command workspacesvc exposes the workspace engine over HTTP: a small gin
// router, a websocket event stream for long-lived clients, zap for
// structured request logging, and graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/workspace-engine/workspace-engine/internal/clock"
	"github.com/workspace-engine/workspace-engine/internal/desktop"
	"github.com/workspace-engine/workspace-engine/internal/engine"
	"github.com/workspace-engine/workspace-engine/internal/launch"
	"github.com/workspace-engine/workspace-engine/internal/wserr"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	host, err := desktop.NewWindowsHost(logger)
	if err != nil {
		logger.Fatal("failed to initialize desktop host", zap.Error(err))
	}

	eng := engine.New(host, engine.DefaultConfig(), clock.Real{}, logger)
	defer eng.Close()

	srv := newServer(eng, logger)

	addr := os.Getenv("WORKSPACESVC_ADDR")
	if addr == "" {
		addr = ":8765"
	}
	httpSrv := &http.Server{Addr: addr, Handler: srv.router}

	go func() {
		logger.Info("workspacesvc listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type server struct {
	engine *engine.Engine
	logger *zap.Logger
	router *gin.Engine

	upgrader websocket.Upgrader
}

func newServer(eng *engine.Engine, logger *zap.Logger) *server {
	gin.SetMode(gin.ReleaseMode)
	s := &server{
		engine:   eng,
		logger:   logger,
		router:   gin.New(),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
	s.router.Use(gin.Recovery(), requestLogger(logger))

	v1 := s.router.Group("/v1")
	v1.GET("/workspaces", s.handleListWorkspaces)
	v1.GET("/workspaces/:name", s.handleGetWorkspace)
	v1.POST("/workspaces/:name/capture", s.handleCaptureWorkspace)
	v1.POST("/workspaces/:name/launch", s.handleLaunchWorkspace)
	v1.DELETE("/workspaces/:name", s.handleDeleteWorkspace)
	v1.GET("/stats", s.handleStats)
	v1.GET("/events", s.handleEvents)

	return s
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *server) handleListWorkspaces(c *gin.Context) {
	names, err := s.engine.ListWorkspaces()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": names})
}

func (s *server) handleGetWorkspace(c *gin.Context) {
	def, err := s.engine.Store.Get(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

func (s *server) handleCaptureWorkspace(c *gin.Context) {
	def, err := s.engine.CaptureWorkspace(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, def)
}

func (s *server) handleLaunchWorkspace(c *gin.Context) {
	var body struct {
		MinimizeSiblings bool `json:"minimize_siblings"`
	}
	_ = c.ShouldBindJSON(&body)

	result, err := s.engine.LaunchWorkspace(c.Request.Context(), c.Param("name"), launch.Options{
		MinimizeSiblings: body.MinimizeSiblings,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) handleDeleteWorkspace(c *gin.Context) {
	if err := s.engine.DeleteWorkspace(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Stats())
}

// handleEvents upgrades to a websocket and streams window lifecycle events
// to any client that stays connected.
func (s *server) handleEvents(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	unsubscribe := s.engine.Host.Subscribe(func(evt desktop.Event) {
		_ = conn.WriteJSON(gin.H{"kind": int(evt.Kind), "handle": uint64(evt.Handle)})
	})
	defer unsubscribe()

	// Drain and discard inbound frames (ping/close control messages) until
	// the client disconnects; this endpoint is publish-only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch wserr.Of(err) {
	case wserr.NotFound:
		status = http.StatusNotFound
	case wserr.InvalidArgument:
		status = http.StatusBadRequest
	case wserr.Conflict, wserr.VersionMismatch:
		status = http.StatusConflict
	case wserr.Timeout:
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
