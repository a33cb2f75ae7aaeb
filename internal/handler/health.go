package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health handles the GET /health request. It verifies database connectivity
// and reports process uptime when the router stored a start time on the
// context.
func (s *Server) Health(c *gin.Context) {
	status := "healthy"
	database := "ok"
	httpStatus := http.StatusOK

	if s.DB != nil {
		sqlDB, err := s.DB.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status = "unhealthy"
			database = "unavailable"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	payload := gin.H{
		"status":    status,
		"database":  database,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if startTime, exists := c.Get("serverStartTime"); exists {
		if start, ok := startTime.(time.Time); ok {
			payload["uptime"] = time.Since(start).Round(time.Second).String()
		}
	}

	c.JSON(httpStatus, payload)
}
