package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/askify/internal/domain"
	"github.com/timmy/askify/internal/logger"
	"github.com/timmy/askify/internal/metrics"
)

// TrackerConfig bounds the download worker pool and the progress store.
type TrackerConfig struct {
	Workers         int
	QueueSize       int
	TTL             time.Duration // how long finished records stay readable
	CleanupInterval time.Duration
}

type downloadTask struct {
	ctx       context.Context
	id        string
	sourceURL string
}

// DownloadTracker runs downloads on a fixed worker pool and keeps their
// progress in memory for status pollers.
type DownloadTracker struct {
	fetcher MediaFetcher
	store   *progressStore
	queue   chan downloadTask
	ttl     time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup

	// mu orders Start's enqueue against Close
	mu     sync.RWMutex
	closed bool
}

// NewDownloadTracker starts the workers and the janitor.
func NewDownloadTracker(fetcher MediaFetcher, cfg TrackerConfig) *DownloadTracker {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	t := &DownloadTracker{
		fetcher: fetcher,
		store:   newProgressStore(),
		queue:   make(chan downloadTask, cfg.QueueSize),
		ttl:     cfg.TTL,
		baseCtx: baseCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	for i := 0; i < cfg.Workers; i++ {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.worker()
		}()
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.janitor(cfg.CleanupInterval)
	}()

	return t
}

// Start registers a download and queues it. The record is readable through
// Get as soon as Start returns.
// Parameters:
//   - ctx: request context; only its logger fields are kept.
//   - sourceURL: video page URL handed to the fetcher.
// Returns:
//   - string: download id.
//   - error: ErrTrackerBusy when the queue is full, ErrTrackerClosed after Close.
func (t *DownloadTracker) Start(ctx context.Context, sourceURL string) (string, error) {
	id := uuid.New().String()
	now := time.Now()
	t.store.put(domain.DownloadProgress{
		ID:        id,
		SourceURL: sourceURL,
		Status:    domain.DownloadStatusStarting,
		Progress:  0,
		Message:   "Initializing...",
		CreatedAt: now,
		UpdatedAt: now,
	})

	task := downloadTask{
		ctx:       logger.SetDownloadID(logger.SetComponent(logger.FromContext(ctx).WithContext(t.baseCtx), "download-tracker"), id),
		id:        id,
		sourceURL: sourceURL,
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.store.remove(id)
		return "", ErrTrackerClosed
	}

	select {
	case t.queue <- task:
		logger.CtxInfo(task.ctx, "Download queued: %s", sourceURL)
		return id, nil
	default:
		t.store.remove(id)
		return "", ErrTrackerBusy
	}
}

// Get returns a copy of the progress record for id.
func (t *DownloadTracker) Get(id string) (domain.DownloadProgress, bool) {
	return t.store.get(id)
}

// Snapshot returns copies of every record, oldest first.
func (t *DownloadTracker) Snapshot() []domain.DownloadProgress {
	return t.store.list()
}

// Close stops accepting work, cancels running downloads and waits for the
// workers to exit. Downloads still queued are marked failed.
func (t *DownloadTracker) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.done)
		t.cancel()
	}
	t.mu.Unlock()

	t.wg.Wait()
	t.drain()
}

func (t *DownloadTracker) drain() {
	for {
		select {
		case task := <-t.queue:
			t.store.update(task.id, func(p *domain.DownloadProgress) {
				p.Status = domain.DownloadStatusFailed
				p.Progress = 0
				p.Message = "Download failed: server shutting down"
				detail := "The server shut down before the download started. Please try again."
				p.Error = &detail
				p.ErrorCode = MediaCodeDownloadFailed
			})
			metrics.DownloadsTotal.WithLabelValues(string(domain.DownloadStatusFailed), MediaCodeDownloadFailed).Inc()
			logger.CtxWarn(task.ctx, "Dropped queued download on shutdown: %s", task.sourceURL)
		default:
			return
		}
	}
}

func (t *DownloadTracker) worker() {
	for {
		select {
		case <-t.done:
			return
		case task := <-t.queue:
			t.run(task)
		}
	}
}

func (t *DownloadTracker) run(task downloadTask) {
	ctx := task.ctx
	metrics.ActiveDownloads.Inc()
	defer metrics.ActiveDownloads.Dec()

	t.advance(task.id, 0, "Starting download...")
	t.advance(task.id, 10, "Initializing download...")
	t.advance(task.id, 30, "Downloading video from YouTube...")
	t.advance(task.id, 50, "Downloading video from YouTube...")

	start := time.Now()
	filePath, err := t.fetcher.FetchBestQuality(ctx, task.sourceURL)
	if err != nil {
		code, message, detail := describeDownloadFailure(err)
		t.store.update(task.id, func(p *domain.DownloadProgress) {
			p.Status = domain.DownloadStatusFailed
			p.Progress = 0
			p.Message = message
			p.Error = &detail
			p.ErrorCode = code
		})
		metrics.DownloadsTotal.WithLabelValues(string(domain.DownloadStatusFailed), code).Inc()
		logger.With(nil).WithDuration(start).WithStatus(code).Warn(ctx, "Download failed: %v", err)
		return
	}

	t.store.update(task.id, func(p *domain.DownloadProgress) {
		p.Status = domain.DownloadStatusCompleted
		p.Progress = 100
		p.Message = "Download completed!"
		p.FilePath = &filePath
	})
	metrics.DownloadsTotal.WithLabelValues(string(domain.DownloadStatusCompleted), "").Inc()
	logger.With(nil).WithDuration(start).Info(ctx, "Download completed: %s", filePath)
}

func (t *DownloadTracker) advance(id string, progress int, message string) {
	t.store.update(id, func(p *domain.DownloadProgress) {
		p.Status = domain.DownloadStatusDownloading
		if progress > p.Progress {
			p.Progress = progress
		}
		p.Message = message
	})
}

// describeDownloadFailure returns the error code, the status message and the
// user-facing error for a failed download.
func describeDownloadFailure(err error) (code, message, detail string) {
	code = MediaCodeDownloadFailed
	var merr *MediaError
	if errors.As(err, &merr) {
		code = merr.Code
	}

	switch code {
	case MediaCodeUnsupportedFormat:
		return code, "Download failed: Video format not supported",
			"The video format is not supported or the video is corrupted. Please try a different YouTube video."
	case MediaCodeUnavailable:
		return code, "Download failed: Video unavailable",
			"This video is not available for download. It may be private, deleted, or region-restricted."
	case MediaCodeAuthRequired:
		return code, "Download failed: Age-restricted video",
			"This video is age-restricted and requires authentication to download."
	default:
		return code, "Download failed: " + err.Error(), err.Error()
	}
}

func (t *DownloadTracker) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case now := <-ticker.C:
			if n := t.store.evict(now.Add(-t.ttl)); n > 0 {
				logger.Info("Evicted %d finished download records", n)
			}
		}
	}
}

// progressStore is a lock-guarded map of download records.
type progressStore struct {
	mu      sync.RWMutex
	records map[string]*domain.DownloadProgress
}

func newProgressStore() *progressStore {
	return &progressStore{records: make(map[string]*domain.DownloadProgress)}
}

func (s *progressStore) put(p domain.DownloadProgress) {
	s.mu.Lock()
	s.records[p.ID] = &p
	n := len(s.records)
	s.mu.Unlock()
	metrics.TrackedDownloads.Set(float64(n))
}

func (s *progressStore) update(id string, fn func(p *domain.DownloadProgress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.records[id]; ok {
		fn(p)
		p.UpdatedAt = time.Now()
	}
}

func (s *progressStore) get(id string) (domain.DownloadProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.records[id]
	if !ok {
		return domain.DownloadProgress{}, false
	}
	return *p, true
}

func (s *progressStore) remove(id string) {
	s.mu.Lock()
	delete(s.records, id)
	n := len(s.records)
	s.mu.Unlock()
	metrics.TrackedDownloads.Set(float64(n))
}

func (s *progressStore) list() []domain.DownloadProgress {
	s.mu.RLock()
	out := make([]domain.DownloadProgress, 0, len(s.records))
	for _, p := range s.records {
		out = append(out, *p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// evict drops finished records last updated before cutoff.
func (s *progressStore) evict(cutoff time.Time) int {
	s.mu.Lock()
	removed := 0
	for id, p := range s.records {
		if p.Status.IsTerminal() && p.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	n := len(s.records)
	s.mu.Unlock()
	metrics.TrackedDownloads.Set(float64(n))
	return removed
}
