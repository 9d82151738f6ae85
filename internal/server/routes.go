package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Read-only sentiment API
	s.echo.GET("/api/sentiment", s.handleSentiment)
	s.echo.GET("/api/comments/:id", s.handleGetComment)

	// Operator queue triage
	s.echo.GET("/api/queue/status", s.handleQueueStatus)
	s.echo.POST("/api/queue/retry/:id", s.handleQueueRetry)
	s.echo.POST("/api/queue/fail/:id", s.handleQueueFail)

	// Live subscriber channel
	s.echo.GET("/ws", s.handleWebSocket)
}
