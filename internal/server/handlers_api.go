package server

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/civicpulse/civicpulse/internal/domain"
)

// handleSentiment serves the latest aggregate snapshot. The cache is tried
// first; an empty cache falls back to a fresh computation.
func (s *Server) handleSentiment(c echo.Context) error {
	ctx := c.Request().Context()

	snap, err := s.snapCache.Get(ctx)
	if err == nil {
		return c.JSON(200, snap)
	}
	if !errors.Is(err, domain.ErrNoData) {
		slog.Warn("Snapshot cache read failed, recomputing", "error", err)
	}

	fresh, err := s.aggregator.Snapshot(ctx)
	if err != nil {
		slog.Error("Failed to compute sentiment snapshot", "error", err)
		return c.JSON(500, map[string]string{"error": "failed to compute sentiment data"})
	}
	return c.JSON(200, fresh)
}

func (s *Server) handleGetComment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "invalid comment id"})
	}

	comment, err := s.store.GetByID(c.Request().Context(), id)
	if errors.Is(err, domain.ErrCommentNotFound) {
		return c.JSON(404, map[string]string{"error": "comment not found"})
	}
	if err != nil {
		slog.Error("Failed to load comment", "comment_id", id.String(), "error", err)
		return c.JSON(500, map[string]string{"error": "failed to load comment"})
	}
	return c.JSON(200, comment)
}

func (s *Server) handleQueueStatus(c echo.Context) error {
	ctx := c.Request().Context()

	counts, err := s.store.StatusCounts(ctx)
	if err != nil {
		slog.Error("Failed to load queue status", "error", err)
		return c.JSON(500, map[string]string{"error": "failed to load queue status"})
	}
	pending, err := s.store.CountPending(ctx)
	if err != nil {
		slog.Error("Failed to count pending comments", "error", err)
		return c.JSON(500, map[string]string{"error": "failed to load queue status"})
	}

	return c.JSON(200, map[string]any{
		"raw":      counts[domain.StatusRaw],
		"analyzed": counts[domain.StatusAnalyzed],
		"failed":   counts[domain.StatusFailed],
		"pending":  pending,
	})
}

// handleQueueRetry moves a FAILED comment back to RAW so the analysis stage
// picks it up again. Manual operator action.
func (s *Server) handleQueueRetry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "invalid comment id"})
	}

	err = s.store.ResetForRetry(c.Request().Context(), id)
	switch {
	case errors.Is(err, domain.ErrCommentNotFound):
		return c.JSON(404, map[string]string{"error": "comment not found"})
	case errors.Is(err, domain.ErrNotFailed):
		return c.JSON(409, map[string]string{"error": "comment is not in FAILED state"})
	case err != nil:
		slog.Error("Failed to reset comment for retry", "comment_id", id.String(), "error", err)
		return c.JSON(500, map[string]string{"error": "failed to reset comment"})
	}

	slog.Info("Comment reset for retry", "comment_id", id.String())
	return c.JSON(200, map[string]string{"status": "requeued"})
}

type failRequest struct {
	Reason string `json:"reason"`
}

// handleQueueFail forces a stuck RAW comment into FAILED so it stops being
// selected. Manual operator action.
func (s *Server) handleQueueFail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "invalid comment id"})
	}

	var req failRequest
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		req.Reason = "manually failed by operator"
	}

	err = s.store.ForceFail(c.Request().Context(), id, req.Reason)
	switch {
	case errors.Is(err, domain.ErrCommentNotFound):
		return c.JSON(404, map[string]string{"error": "comment not found"})
	case errors.Is(err, domain.ErrAlreadyTerminal):
		return c.JSON(409, map[string]string{"error": "comment is already in a terminal state"})
	case err != nil:
		slog.Error("Failed to force-fail comment", "comment_id", id.String(), "error", err)
		return c.JSON(500, map[string]string{"error": "failed to update comment"})
	}

	slog.Info("Comment force-failed", "comment_id", id.String(), "reason", req.Reason)
	return c.JSON(200, map[string]string{"status": "failed"})
}
