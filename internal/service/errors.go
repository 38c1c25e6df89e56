package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedLocale is returned when a dub target locale is not in domain.SupportedLocales.
	ErrUnsupportedLocale = errors.New("unsupported target locale")
	// ErrFileNotFound is returned when a media file is missing or is not a regular file.
	ErrFileNotFound = errors.New("media file not found")
	// ErrEmptyFile is returned when a media file has zero bytes.
	ErrEmptyFile = errors.New("media file is empty")
	// ErrNoJobID is returned when the dubbing provider accepted a job without an identifier.
	ErrNoJobID = errors.New("dubbing provider returned no job id")
	// ErrPollTimeout is returned when a dub job did not reach a terminal state in time.
	ErrPollTimeout = errors.New("polling timed out")
	// ErrTrackerBusy is returned when the download queue is full.
	ErrTrackerBusy = errors.New("download queue is full")
	// ErrTrackerClosed is returned by Start after Close.
	ErrTrackerClosed = errors.New("download tracker is closed")
)

// ProviderError is a non-2xx answer from an external provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API returned HTTP %d: %s", e.Provider, e.StatusCode, truncate(e.Body, 500))
}

// Media error codes, assigned once where the downloader output is inspected.
const (
	MediaCodeUnsupportedFormat = "unsupported_format"
	MediaCodeUnavailable       = "unavailable"
	MediaCodeAuthRequired      = "auth_required"
	MediaCodeNotFound          = "not_found"
	MediaCodeEmptyFile         = "empty_file"
	MediaCodeDownloadFailed    = "download_failed"
)

// MediaError is a classified media acquisition failure.
type MediaError struct {
	Code string
	Err  error
}

func (e *MediaError) Error() string {
	if e.Err == nil {
		return "failed to download video: " + e.Code
	}
	return "failed to download video: " + e.Err.Error()
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// Dub error codes exposed by the API.
const (
	DubCodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	DubCodeJobCreation         = "JOB_CREATION_ERROR"
)

// DubError is a failed dub job creation.
type DubError struct {
	Code string
	Err  error
}

func (e *DubError) Error() string {
	return "failed to create dubbing job: " + e.Err.Error()
}

func (e *DubError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
