// Package web provides the HTTP dashboard API: aggregated snapshots as JSON
// and a WebSocket live stream of records as they are ingested.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gocache "github.com/patrickmn/go-cache"

	"github.com/anthropics/mcp-pulse/internal/monitor"
)

// snapshotCacheKey is the single cache slot for the rendered snapshot.
const snapshotCacheKey = "snapshot"

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port         int
	BindAddress  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ExportEnabled gates external snapshot serialization. The engine always
	// allows snapshot reads; this flag only controls this HTTP surface.
	ExportEnabled bool
	// SnapshotTTL bounds how stale a served snapshot may be. Caching here is
	// a deliberate relaxation of snapshot freshness, confined to this
	// adapter; the engine recomputes from raw logs on every call.
	SnapshotTTL time.Duration
}

// DefaultServerConfig returns default dashboard configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:          9181,
		BindAddress:   "127.0.0.1",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		ExportEnabled: true,
		SnapshotTTL:   time.Second,
	}
}

// Server serves the dashboard API over an engine.
type Server struct {
	config ServerConfig
	echo   *echo.Echo
	engine *monitor.Engine
	cache  *gocache.Cache
}

// NewServer creates a dashboard server over the given engine.
func NewServer(config ServerConfig, engine *monitor.Engine) *Server {
	if config.Port == 0 {
		config.Port = 9181
	}
	if config.BindAddress == "" {
		config.BindAddress = "127.0.0.1"
	}
	if config.SnapshotTTL == 0 {
		config.SnapshotTTL = time.Second
	}

	s := &Server{
		config: config,
		engine: engine,
		cache:  gocache.New(config.SnapshotTTL, time.Minute),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	s.setupRoutes(e)
	s.echo = e

	return s
}

// Start begins serving the dashboard API.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.BindAddress, s.config.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Address returns the server's listening address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.BindAddress, s.config.Port)
}

// Echo returns the underlying echo instance, for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) setupRoutes(e *echo.Echo) {
	e.GET("/api/snapshot", s.handleSnapshot)
	e.GET("/api/events/ws", s.handleEventStream)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
