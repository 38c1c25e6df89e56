package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/askify/internal/domain"
	"github.com/timmy/askify/internal/logger"
	"github.com/timmy/askify/internal/service"
)

// DownloadTracker runs and reports background downloads.
type DownloadTracker interface {
	Start(ctx context.Context, sourceURL string) (string, error)
	Get(id string) (domain.DownloadProgress, bool)
	Snapshot() []domain.DownloadProgress
}

// DownloadHandler handles the background download endpoints.
type DownloadHandler struct {
	tracker DownloadTracker
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(tracker DownloadTracker) *DownloadHandler {
	return &DownloadHandler{tracker: tracker}
}

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	YoutubeURL string `json:"youtube_url" binding:"required"`
}

// Start handles POST /api/download. It returns as soon as the download is queued.
func (h *DownloadHandler) Start(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	id, err := h.tracker.Start(c.Request.Context(), req.YoutubeURL)
	if err != nil {
		if errors.Is(err, service.ErrTrackerBusy) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":      "Too many downloads in progress, try again later",
				"error_code": "TRACKER_BUSY",
			})
			return
		}
		if errors.Is(err, service.ErrTrackerClosed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":      "Server is shutting down",
				"error_code": "TRACKER_CLOSED",
			})
			return
		}
		logger.CtxError(c.Request.Context(), "Failed to start download: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Download failed",
			"error_code": "DOWNLOAD_ERROR",
			"details":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"download_id": id,
		"youtube_url": req.YoutubeURL,
		"status":      "started",
	})
}

// Status handles GET /api/download_status.
func (h *DownloadHandler) Status(c *gin.Context) {
	id := c.Query("download_id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'download_id' is required",
		})
		return
	}

	progress, ok := h.tracker.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Download ID not found",
		})
		return
	}

	c.JSON(http.StatusOK, progress)
}
