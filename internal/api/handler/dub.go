package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/askify/internal/domain"
	"github.com/timmy/askify/internal/logger"
	"github.com/timmy/askify/internal/service"
)

// DubOrchestrator manages dub jobs at the provider.
type DubOrchestrator interface {
	Create(ctx context.Context, filePath, targetLocale, priority string) (string, error)
	Status(ctx context.Context, jobID string) (service.JobResult, error)
	PollUntilTerminal(ctx context.Context, jobID string, interval, timeout time.Duration) (service.JobResult, error)
	ResolveArtifacts(ctx context.Context, res service.JobResult) (videoURL, subtitlesURL string)
}

// NotesGenerator builds notes from a subtitle file.
type NotesGenerator interface {
	Generate(ctx context.Context, subtitleURL string) string
}

// Dub API error codes.
const (
	ErrCodeDownload          = "DOWNLOAD_ERROR"
	ErrCodeUnsupportedLocale = "UNSUPPORTED_LOCALE"
	ErrCodeGeneral           = "GENERAL_ERROR"
)

// DubHandler handles the dubbing endpoints.
type DubHandler struct {
	fetcher service.MediaFetcher
	dub     DubOrchestrator
	notes   NotesGenerator
}

// NewDubHandler creates a new dub handler.
func NewDubHandler(fetcher service.MediaFetcher, dub DubOrchestrator, notes NotesGenerator) *DubHandler {
	return &DubHandler{fetcher: fetcher, dub: dub, notes: notes}
}

// DubRequest is the body of POST /api/dub.
type DubRequest struct {
	YoutubeURL   string `json:"youtube_url" binding:"required"`
	TargetLocale string `json:"target_locale" binding:"required"`
}

func dubError(c *gin.Context, status int, message, code string, err error) {
	c.JSON(status, gin.H{
		"error":      message,
		"error_code": code,
		"details":    err.Error(),
	})
}

// Dub handles POST /api/dub: downloads the video, then creates the dub job.
func (h *DubHandler) Dub(c *gin.Context) {
	var req DubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}
	ctx := c.Request.Context()

	// Reject bad locales before spending minutes on the download.
	if !domain.IsSupportedLocale(req.TargetLocale) {
		dubError(c, http.StatusBadRequest, "Unsupported target locale", ErrCodeUnsupportedLocale,
			errors.New("target_locale '"+req.TargetLocale+"' is not supported"))
		return
	}

	filePath, err := h.fetcher.FetchBestQuality(ctx, req.YoutubeURL)
	if err != nil {
		logger.CtxWarn(ctx, "Download for dubbing failed: %v", err)
		dubError(c, http.StatusBadGateway, "Download failed", ErrCodeDownload, err)
		return
	}

	jobID, err := h.dub.Create(ctx, filePath, req.TargetLocale, "")
	if err != nil {
		logger.CtxWarn(ctx, "Dub job creation failed: %v", err)
		var dubErr *service.DubError
		switch {
		case errors.Is(err, service.ErrUnsupportedLocale):
			dubError(c, http.StatusBadRequest, "Unsupported target locale", ErrCodeUnsupportedLocale, err)
		case errors.As(err, &dubErr) && dubErr.Code == service.DubCodeInsufficientCredits:
			dubError(c, http.StatusPaymentRequired, "Insufficient credits", dubErr.Code, err)
		case errors.As(err, &dubErr):
			dubError(c, http.StatusBadGateway, "Job creation failed", dubErr.Code, err)
		default:
			dubError(c, http.StatusInternalServerError, "Dubbing failed", ErrCodeGeneral, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"status": "success",
	})
}

// Status handles GET /api/dub_status with a single provider query.
func (h *DubHandler) Status(c *gin.Context) {
	jobID, ok := requireJobID(c)
	if !ok {
		return
	}
	ctx := logger.SetJobID(c.Request.Context(), jobID)

	res, err := h.dub.Status(ctx, jobID)
	if err != nil {
		logger.CtxError(ctx, "Failed to get dub status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.buildStatusResponse(ctx, res))
}

// Complete handles GET /api/dub_complete, blocking until the job is terminal.
func (h *DubHandler) Complete(c *gin.Context) {
	jobID, ok := requireJobID(c)
	if !ok {
		return
	}
	ctx := logger.SetJobID(c.Request.Context(), jobID)

	res, err := h.dub.PollUntilTerminal(ctx, jobID, 0, 0)
	if err != nil {
		if errors.Is(err, service.ErrPollTimeout) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
			return
		}
		logger.CtxError(ctx, "Failed to wait for dub job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.buildStatusResponse(ctx, res))
}

func requireJobID(c *gin.Context) (string, bool) {
	jobID := c.Query("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'job_id' is required",
		})
		return "", false
	}
	return jobID, true
}

// buildStatusResponse renders a job result in one of three shapes:
// in progress, failed, or completed with artifacts. Notes are generated only
// for completed jobs that have subtitles.
func (h *DubHandler) buildStatusResponse(ctx context.Context, res service.JobResult) gin.H {
	status := res.Status.Lower()

	if !res.Status.IsTerminal() {
		return gin.H{"status": status}
	}

	if res.Status.IsFailure() {
		reason := res.FailureReason
		if reason == "" {
			reason = "Unknown error"
		}
		code := res.FailureCode
		if code == "" {
			code = "UNKNOWN"
		}
		return gin.H{
			"status":            status,
			"error":             reason,
			"error_code":        code,
			"credits_remaining": res.CreditsRemaining,
		}
	}

	videoURL, subtitlesURL := h.dub.ResolveArtifacts(ctx, res)
	var notes *string
	if subtitlesURL != "" {
		n := h.notes.Generate(ctx, subtitlesURL)
		notes = &n
	}
	return gin.H{
		"status":           status,
		"dubbed_video_url": nullable(videoURL),
		"subtitles_url":    nullable(subtitlesURL),
		"notes":            notes,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
