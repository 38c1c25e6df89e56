package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/askify/internal/domain"
	"github.com/timmy/askify/internal/logger"
	"github.com/timmy/askify/internal/metrics"
	"github.com/timmy/askify/internal/storage"
	"golang.org/x/time/rate"
)

const (
	// DefaultPollInterval is the base wait between status queries.
	DefaultPollInterval = 3 * time.Second
	// DefaultPollTimeout bounds PollUntilTerminal.
	DefaultPollTimeout = 1800 * time.Second
	// MaxPollInterval caps Backoff.
	MaxPollInterval = 15 * time.Second
)

var errLimiterDeadline = errors.New("status query would exceed the deadline")

// Upload modes for new dub jobs.
const (
	UploadModeMultipart     = "multipart"
	UploadModeObjectStorage = "object_storage"
)

// DubServiceConfig holds the dub job lifecycle settings.
type DubServiceConfig struct {
	Priority      string
	UploadMode    string
	PollInterval  time.Duration
	PollTimeout   time.Duration
	StatusRate    float64 // status queries per second across all pollers, 0 disables
	StoragePrefix string
	URLExpiry     time.Duration
}

// JobResult is the normalized status of a dub job.
type JobResult struct {
	JobID            string
	Status           domain.DubStatus
	DownloadDetails  []domain.DownloadDetail
	FailureReason    string
	FailureCode      string
	CreditsRemaining int
}

// DubService drives a dub job from creation to a terminal state.
type DubService struct {
	client  DubbingClient
	storage storage.ObjectStorage
	cfg     DubServiceConfig
	limiter *rate.Limiter

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu     sync.Mutex
	staged map[string]string // job id -> staged object key
}

// NewDubService creates a new dub orchestrator.
// Parameters:
//   - client: dubbing provider client.
//   - store: staging storage; may be nil when uploads go through multipart.
//   - cfg: lifecycle settings; zero values take the package defaults.
// Returns:
//   - *DubService: orchestrator instance.
func NewDubService(client DubbingClient, store storage.ObjectStorage, cfg DubServiceConfig) *DubService {
	if cfg.Priority == "" {
		cfg.Priority = domain.DubPriorityLow
	}
	if cfg.UploadMode == "" {
		cfg.UploadMode = UploadModeMultipart
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 6 * time.Hour
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.StatusRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.StatusRate), 1)
	}

	return &DubService{
		client:  client,
		storage: store,
		cfg:     cfg,
		limiter: limiter,
		sleep:   sleepContext,
		now:     time.Now,
		staged:  make(map[string]string),
	}
}

// Create validates the input and submits a dub job for filePath.
// Locale and file checks happen before any provider call.
// Parameters:
//   - ctx: request context.
//   - filePath: local video file.
//   - targetLocale: one of domain.SupportedLocales.
//   - priority: provider queue priority; empty uses the configured one.
// Returns:
//   - string: provider job id.
//   - error: ErrUnsupportedLocale, ErrFileNotFound, ErrEmptyFile or a *DubError.
func (s *DubService) Create(ctx context.Context, filePath, targetLocale, priority string) (string, error) {
	if !domain.IsSupportedLocale(targetLocale) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLocale, targetLocale)
	}

	info, err := os.Stat(filePath)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyFile, filePath)
	}

	if priority == "" {
		priority = s.cfg.Priority
	}

	req := CreateJobRequest{
		FileName:      filepath.Base(filePath),
		TargetLocales: []string{targetLocale},
		Priority:      priority,
	}

	var stagedKey string
	if s.cfg.UploadMode == UploadModeObjectStorage && s.storage != nil {
		stagedKey, req.FileURL, err = s.stage(ctx, filePath, info.Size())
		if err != nil {
			metrics.DubJobsCreatedTotal.WithLabelValues("error").Inc()
			return "", &DubError{Code: DubCodeJobCreation, Err: err}
		}
	} else {
		req.FilePath = filePath
	}

	logger.With(logger.Fields{logger.FieldSize: info.Size()}).
		Info(ctx, "Creating dub job: file=%s, locale=%s, priority=%s", req.FileName, targetLocale, priority)

	resp, err := s.client.CreateJob(ctx, req)
	if err != nil {
		s.unstage(ctx, stagedKey)
		metrics.DubJobsCreatedTotal.WithLabelValues("error").Inc()
		return "", &DubError{Code: classifyCreateError(err), Err: err}
	}

	jobID := GetString(resp, "job_id")
	if jobID == "" {
		jobID = GetString(resp, "id")
	}
	if jobID == "" {
		s.unstage(ctx, stagedKey)
		metrics.DubJobsCreatedTotal.WithLabelValues("error").Inc()
		return "", &DubError{Code: DubCodeJobCreation, Err: ErrNoJobID}
	}

	if stagedKey != "" {
		s.mu.Lock()
		s.staged[jobID] = stagedKey
		s.mu.Unlock()
	}

	metrics.DubJobsCreatedTotal.WithLabelValues("ok").Inc()
	logger.CtxInfo(logger.SetJobID(ctx, jobID), "Dub job created")
	return jobID, nil
}

// classifyCreateError maps a provider failure to an API error code.
func classifyCreateError(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.StatusCode == 402 {
		return DubCodeInsufficientCredits
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "credit") || strings.Contains(msg, "insufficient") {
		return DubCodeInsufficientCredits
	}
	return DubCodeJobCreation
}

// stage uploads the file to object storage and returns its key and a fetchable URL.
func (s *DubService) stage(ctx context.Context, filePath string, size int64) (string, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()

	key := path.Join(s.cfg.StoragePrefix, uuid.New().String(), filepath.Base(filePath))
	if err := s.storage.Upload(ctx, key, f, size, "video/mp4"); err != nil {
		return "", "", fmt.Errorf("failed to stage media file: %w", err)
	}

	u, err := s.storage.URL(ctx, key, s.cfg.URLExpiry)
	if err != nil {
		s.unstage(ctx, key)
		return "", "", err
	}

	logger.CtxDebug(ctx, "Staged media file: key=%s", key)
	return key, u, nil
}

func (s *DubService) unstage(ctx context.Context, key string) {
	if key == "" || s.storage == nil {
		return
	}
	if err := s.storage.Delete(logger.Detach(ctx), key); err != nil {
		logger.CtxWarn(ctx, "Failed to delete staged media: key=%s, error=%v", key, err)
	}
}

// releaseStaged drops the staged upload of a job that reached a terminal state.
func (s *DubService) releaseStaged(ctx context.Context, jobID string) {
	s.mu.Lock()
	key, ok := s.staged[jobID]
	delete(s.staged, jobID)
	s.mu.Unlock()
	if ok {
		s.unstage(ctx, key)
	}
}

// Status performs a single status query.
func (s *DubService) Status(ctx context.Context, jobID string) (JobResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			// the limiter refuses waits that would overrun the deadline
			return JobResult{}, fmt.Errorf("%w: %v", errLimiterDeadline, err)
		}
		return JobResult{}, err
	}

	metrics.DubPollAttemptsTotal.Inc()
	resp, err := s.client.JobStatus(ctx, jobID)
	if err != nil {
		return JobResult{}, err
	}

	res := toJobResult(jobID, resp)
	if res.Status.IsTerminal() {
		metrics.DubTerminalObservationsTotal.WithLabelValues(res.Status.Lower()).Inc()
		s.releaseStaged(ctx, jobID)
	}
	return res, nil
}

func toJobResult(jobID string, resp ProviderResponse) JobResult {
	res := JobResult{
		JobID:            jobID,
		Status:           domain.NormalizeDubStatus(GetString(resp, "status")),
		FailureReason:    GetString(resp, "failure_reason"),
		FailureCode:      GetString(resp, "failure_code"),
		CreditsRemaining: GetInt(resp, "credits_remaining", 0),
	}
	if v, ok := resp.Get("download_details"); ok {
		switch details := v.(type) {
		case []domain.DownloadDetail:
			res.DownloadDetails = details
		default:
			// loosely decoded payloads carry []any; round-trip through JSON
			if raw, err := json.Marshal(details); err == nil {
				_ = json.Unmarshal(raw, &res.DownloadDetails)
			}
		}
	}
	return res
}

// PollUntilTerminal queries the job until it is COMPLETED, FAILED or ERROR.
// Parameters:
//   - ctx: request context; cancelling it stops polling.
//   - jobID: job identifier returned by Create.
//   - interval: base wait between queries; non-positive uses the configured value.
//   - timeout: total budget; non-positive uses the configured value.
// Returns:
//   - JobResult: the terminal status document.
//   - error: ErrPollTimeout when the budget runs out first, including while
//     a status query or a backoff wait is in flight.
func (s *DubService) PollUntilTerminal(ctx context.Context, jobID string, interval, timeout time.Duration) (JobResult, error) {
	if interval <= 0 {
		interval = s.cfg.PollInterval
	}
	if timeout <= 0 {
		timeout = s.cfg.PollTimeout
	}

	ctx = logger.SetJobID(ctx, jobID)
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	timedOut := func(status domain.DubStatus) error {
		return fmt.Errorf("%w: job %s not finished after %s (last status %q)", ErrPollTimeout, jobID, timeout, status)
	}

	start := s.now()
	var last domain.DubStatus
	for attempt := 0; ; attempt++ {
		res, err := s.Status(pollCtx, jobID)
		if err != nil {
			if ctx.Err() == nil && (pollCtx.Err() != nil || errors.Is(err, errLimiterDeadline)) {
				return JobResult{}, timedOut(last)
			}
			return JobResult{}, err
		}
		last = res.Status

		logger.With(logger.Fields{logger.FieldAttempt: attempt}).
			WithStatus(string(res.Status)).
			Debug(ctx, "Polled dub job")

		if res.Status.IsTerminal() {
			entry := logger.With(logger.Fields{logger.FieldAttempt: attempt}).WithDuration(start).WithStatus(string(res.Status))
			if res.Status.IsFailure() {
				entry.Warn(ctx, "Dub job failed: reason=%s, code=%s", res.FailureReason, res.FailureCode)
			} else {
				entry.Info(ctx, "Dub job finished")
			}
			return res, nil
		}

		remaining := timeout - s.now().Sub(start)
		if remaining <= 0 {
			return JobResult{}, timedOut(res.Status)
		}

		wait := Backoff(interval, attempt+1)
		if wait > remaining {
			wait = remaining
		}
		if err := s.sleep(pollCtx, wait); err != nil {
			if ctx.Err() == nil {
				return JobResult{}, timedOut(res.Status)
			}
			return JobResult{}, err
		}
	}
}

// Backoff returns the wait after the given attempt (attempt >= 1): the base
// interval grows by one unit every ten attempts and is capped at MaxPollInterval.
func Backoff(interval time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := interval * time.Duration(1+attempt/10)
	if d > MaxPollInterval || d < 0 {
		return MaxPollInterval
	}
	return d
}

// ResolveArtifacts returns the dubbed video and subtitle URLs of a finished job.
// Jobs are created with a single locale, so only the first entry is used.
func (s *DubService) ResolveArtifacts(ctx context.Context, res JobResult) (videoURL, subtitlesURL string) {
	if len(res.DownloadDetails) == 0 {
		return "", ""
	}
	if n := len(res.DownloadDetails); n > 1 {
		logger.CtxWarn(ctx, "Dub job %s returned %d locale entries, using the first", res.JobID, n)
	}
	first := res.DownloadDetails[0]
	return first.DownloadURL, first.SubtitleURL
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
