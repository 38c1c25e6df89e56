package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/askify/internal/domain"
	"github.com/timmy/askify/internal/metrics"
)

// DubbingClient talks to the video dubbing provider.
type DubbingClient interface {
	CreateJob(ctx context.Context, req CreateJobRequest) (ProviderResponse, error)
	JobStatus(ctx context.Context, jobID string) (ProviderResponse, error)
}

// CreateJobRequest describes a new dub job. Exactly one of FilePath and
// FileURL is set.
type CreateJobRequest struct {
	FilePath      string
	FileURL       string
	FileName      string
	TargetLocales []string
	Priority      string
}

// JobStatusPayload is the provider's job status document.
type JobStatusPayload struct {
	JobID            string                  `json:"job_id"`
	Status           string                  `json:"status"`
	DownloadDetails  []domain.DownloadDetail `json:"download_details"`
	FailureReason    string                  `json:"failure_reason"`
	FailureCode      string                  `json:"failure_code"`
	CreditsRemaining *int                    `json:"credits_remaining"`
}

// DubbingConfig holds configuration for the dubbing client.
type DubbingConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	StatusTimeout time.Duration // per status query, Timeout covers uploads
}

// DefaultStatusTimeout bounds a single job status query.
const DefaultStatusTimeout = 30 * time.Second

// MurfDubClient implements DubbingClient over the MurfDub REST API.
type MurfDubClient struct {
	client        *resty.Client
	baseURL       string
	statusTimeout time.Duration
}

// NewMurfDubClient creates a new dubbing client.
func NewMurfDubClient(cfg *DubbingConfig) *MurfDubClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.murf.ai/v1/murfdub"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		// uploads of long videos are slow
		timeout = 10 * time.Minute
	}

	statusTimeout := cfg.StatusTimeout
	if statusTimeout <= 0 {
		statusTimeout = DefaultStatusTimeout
	}

	client := resty.New()
	client.SetHeader("api-key", cfg.APIKey)
	client.SetTimeout(timeout)

	return &MurfDubClient{client: client, baseURL: baseURL, statusTimeout: statusTimeout}
}

// CreateJob submits a dub job, uploading the file or passing its URL.
func (c *MurfDubClient) CreateJob(ctx context.Context, req CreateJobRequest) (ProviderResponse, error) {
	start := time.Now()
	resp, err := c.createJob(ctx, req)
	metrics.ObserveProvider("dubbing", time.Since(start).Seconds(), err)
	return resp, err
}

func (c *MurfDubClient) createJob(ctx context.Context, req CreateJobRequest) (ProviderResponse, error) {
	form := url.Values{}
	form.Set("file_name", req.FileName)
	form.Set("priority", req.Priority)
	for _, l := range req.TargetLocales {
		form.Add("target_locales", l)
	}

	// The endpoint only accepts multipart bodies, with or without a file part.
	r := c.client.R().SetContext(ctx)
	if req.FileURL != "" {
		r.SetMultipartFormData(map[string]string{"file_url": req.FileURL})
	} else {
		r.SetFile("file", req.FilePath)
	}
	r.SetFormDataFromValues(form)

	httpResp, err := r.Post(c.baseURL + "/jobs/create")
	if err != nil {
		return nil, fmt.Errorf("failed to call dubbing API: %w", err)
	}
	if httpResp.IsError() {
		return nil, &ProviderError{Provider: "dubbing", StatusCode: httpResp.StatusCode(), Body: httpResp.String()}
	}

	var body MapResponse
	if err := json.Unmarshal(httpResp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode dubbing response: %w", err)
	}
	return body, nil
}

// JobStatus fetches the current status document of a job.
func (c *MurfDubClient) JobStatus(ctx context.Context, jobID string) (ProviderResponse, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	var payload JobStatusPayload
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("job_id", jobID).
		SetResult(&payload).
		Get(c.baseURL + "/jobs/{job_id}/status")
	if err == nil && httpResp.IsError() {
		err = &ProviderError{Provider: "dubbing", StatusCode: httpResp.StatusCode(), Body: httpResp.String()}
	}
	metrics.ObserveProvider("dubbing", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get dub job status: %w", err)
	}

	return StructResponse{V: &payload}, nil
}
