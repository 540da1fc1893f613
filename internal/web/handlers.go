package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anthropics/mcp-pulse/internal/monitor"
)

// handleSnapshot serves the aggregate view as JSON. Snapshots are cached for
// the configured TTL so a polling dashboard doesn't force a full rescan on
// every request.
func (s *Server) handleSnapshot(c echo.Context) error {
	if !s.config.ExportEnabled {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "snapshot export is disabled",
		})
	}

	if cached, ok := s.cache.Get(snapshotCacheKey); ok {
		return c.JSON(http.StatusOK, cached.(monitor.Snapshot))
	}

	snap := s.engine.Snapshot()
	s.cache.SetDefault(snapshotCacheKey, snap)
	return c.JSON(http.StatusOK, snap)
}
