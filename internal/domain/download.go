package domain

import "time"

// DownloadStatus represents the state of a background video download.
// Values include DownloadStatusStarting, DownloadStatusDownloading,
// DownloadStatusCompleted, and DownloadStatusFailed.
type DownloadStatus string

const (
	DownloadStatusStarting    DownloadStatus = "starting"
	DownloadStatusDownloading DownloadStatus = "downloading"
	DownloadStatusCompleted   DownloadStatus = "completed"
	DownloadStatusFailed      DownloadStatus = "failed"
)

// IsTerminal reports whether the download will not be updated again.
func (s DownloadStatus) IsTerminal() bool {
	return s == DownloadStatusCompleted || s == DownloadStatusFailed
}

// DownloadProgress is the snapshot returned to status pollers.
// FilePath is set only when completed, Error and ErrorCode only when failed.
type DownloadProgress struct {
	ID        string         `json:"download_id"`
	SourceURL string         `json:"youtube_url"`
	Status    DownloadStatus `json:"status"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
	FilePath  *string        `json:"file_path"`
	Error     *string        `json:"error"`
	ErrorCode string         `json:"error_code,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
