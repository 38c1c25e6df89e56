package handler

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/askify/internal/domain"
)

// Explainer runs the explanation pipeline.
type Explainer interface {
	Run(ctx context.Context, query string) *domain.AgentState
}

// AskHandler handles POST /api/ask.
type AskHandler struct {
	pipeline Explainer
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(pipeline Explainer) *AskHandler {
	return &AskHandler{pipeline: pipeline}
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Query string `json:"query" binding:"required"`
}

// AskResponse carries the pipeline output. AudioB64 is null without audio.
type AskResponse struct {
	Explanation string  `json:"explanation"`
	Summary     string  `json:"summary"`
	AudioB64    *string `json:"audio_b64"`
}

// Ask answers a student's query with an explanation, audio and summary.
func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	state := h.pipeline.Run(c.Request.Context(), req.Query)

	resp := AskResponse{
		Explanation: state.Explanation,
		Summary:     state.Summary,
	}
	if state.HasAudio() {
		encoded := base64.StdEncoding.EncodeToString(state.Audio)
		resp.AudioB64 = &encoded
	}

	c.JSON(http.StatusOK, resp)
}
