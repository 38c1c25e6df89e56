package handler

import (
	"net/http"
	"os"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/timmy/askify/internal/domain"
)

// ProgressLister lists tracked downloads.
type ProgressLister interface {
	Snapshot() []domain.DownloadProgress
}

// DebugInfo is the static part of the /api/debug report.
type DebugInfo struct {
	DownloadDir  string
	LLMKeySet    bool
	SpeechKeySet bool
	DubKeySet    bool
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	info      DebugInfo
	downloads ProgressLister
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(info DebugInfo, downloads ProgressLister) *HealthHandler {
	return &HealthHandler{info: info, downloads: downloads}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Server is running",
	})
}

// Debug reports key presence, the download directory and tracked downloads.
// Key values are never included.
func (h *HealthHandler) Debug(c *gin.Context) {
	files := []string{}
	_, statErr := os.Stat(h.info.DownloadDir)
	if entries, err := os.ReadDir(h.info.DownloadDir); err == nil {
		for _, e := range entries {
			files = append(files, e.Name())
		}
	}

	progress := make(map[string]domain.DownloadProgress)
	if h.downloads != nil {
		for _, p := range h.downloads.Snapshot() {
			progress[p.ID] = p
		}
	}

	cwd, _ := os.Getwd()
	c.JSON(http.StatusOK, gin.H{
		"llm_api_key_set":      h.info.LLMKeySet,
		"murf_api_key_set":     h.info.SpeechKeySet,
		"murfdub_api_key_set":  h.info.DubKeySet,
		"downloads_dir_exists": statErr == nil,
		"downloads_dir_files":  files,
		"current_dir":          cwd,
		"go_version":           runtime.Version(),
		"server_status":        "running",
		"download_progress":    progress,
	})
}
