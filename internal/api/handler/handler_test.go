package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/askify/internal/domain"
	"github.com/timmy/askify/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeFetcher struct {
	calls int
	path  string
	err   error
}

func (f *fakeFetcher) FetchBestQuality(ctx context.Context, sourceURL string) (string, error) {
	f.calls++
	return f.path, f.err
}

type fakeDub struct {
	jobID     string
	createErr error
	result    service.JobResult
	pollErr   error
}

func (f *fakeDub) Create(ctx context.Context, filePath, targetLocale, priority string) (string, error) {
	return f.jobID, f.createErr
}

func (f *fakeDub) Status(ctx context.Context, jobID string) (service.JobResult, error) {
	return f.result, f.pollErr
}

func (f *fakeDub) PollUntilTerminal(ctx context.Context, jobID string, interval, timeout time.Duration) (service.JobResult, error) {
	return f.result, f.pollErr
}

func (f *fakeDub) ResolveArtifacts(ctx context.Context, res service.JobResult) (string, string) {
	if len(res.DownloadDetails) == 0 {
		return "", ""
	}
	return res.DownloadDetails[0].DownloadURL, res.DownloadDetails[0].SubtitleURL
}

type fakeNotes struct{ calls int }

func (f *fakeNotes) Generate(ctx context.Context, subtitleURL string) string {
	f.calls++
	return "- notes for " + subtitleURL
}

type fakeTracker struct {
	startErr error
	records  map[string]domain.DownloadProgress
}

func (f *fakeTracker) Start(ctx context.Context, sourceURL string) (string, error) {
	return "dl-1", f.startErr
}

func (f *fakeTracker) Get(id string) (domain.DownloadProgress, bool) {
	p, ok := f.records[id]
	return p, ok
}

func (f *fakeTracker) Snapshot() []domain.DownloadProgress {
	return nil
}

type fakePipeline struct{ state *domain.AgentState }

func (f *fakePipeline) Run(ctx context.Context, query string) *domain.AgentState {
	return f.state
}

func doJSON(t *testing.T, h gin.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := gin.New()
	r.Handle(method, strings.Split(target, "?")[0], h)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestDubHandler_Dub(t *testing.T) {
	tests := []struct {
		name       string
		locale     string
		fetchErr   error
		createErr  error
		wantStatus int
		wantCode   string
		wantFetch  int
	}{
		{"unsupported locale", "xx_XX", nil, nil, http.StatusBadRequest, ErrCodeUnsupportedLocale, 0},
		{"download failure", "fr_FR", &service.MediaError{Code: service.MediaCodeUnavailable, Err: errors.New("Video unavailable")}, nil, http.StatusBadGateway, ErrCodeDownload, 1},
		{"insufficient credits", "fr_FR", nil, &service.DubError{Code: service.DubCodeInsufficientCredits, Err: errors.New("HTTP 402")}, http.StatusPaymentRequired, service.DubCodeInsufficientCredits, 1},
		{"job creation", "fr_FR", nil, &service.DubError{Code: service.DubCodeJobCreation, Err: service.ErrNoJobID}, http.StatusBadGateway, service.DubCodeJobCreation, 1},
		{"missing file", "fr_FR", nil, fmt.Errorf("%w: /tmp/x.mp4", service.ErrFileNotFound), http.StatusInternalServerError, ErrCodeGeneral, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{path: "/tmp/x.mp4", err: tt.fetchErr}
			h := NewDubHandler(fetcher, &fakeDub{createErr: tt.createErr}, &fakeNotes{})

			w, body := doJSON(t, h.Dub, http.MethodPost, "/api/dub",
				`{"youtube_url":"https://youtu.be/abc","target_locale":"`+tt.locale+`"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, body["error_code"])
			assert.NotEmpty(t, body["details"])
			assert.Equal(t, tt.wantFetch, fetcher.calls)
		})
	}
}

func TestDubHandler_DubSuccess(t *testing.T) {
	h := NewDubHandler(&fakeFetcher{path: "/tmp/x.mp4"}, &fakeDub{jobID: "job-9"}, &fakeNotes{})

	w, body := doJSON(t, h.Dub, http.MethodPost, "/api/dub", `{"youtube_url":"https://youtu.be/abc","target_locale":"ja_JP"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "job-9", body["job_id"])
	assert.Equal(t, "success", body["status"])
}

func TestDubHandler_StatusShapes(t *testing.T) {
	t.Run("in progress", func(t *testing.T) {
		h := NewDubHandler(nil, &fakeDub{result: service.JobResult{Status: "QUEUED"}}, &fakeNotes{})
		_, body := doJSON(t, h.Status, http.MethodGet, "/api/dub_status?job_id=j", "")
		assert.Equal(t, map[string]any{"status": "queued"}, body)
	})

	t.Run("failed defaults", func(t *testing.T) {
		h := NewDubHandler(nil, &fakeDub{result: service.JobResult{Status: domain.DubStatusError}}, &fakeNotes{})
		_, body := doJSON(t, h.Status, http.MethodGet, "/api/dub_status?job_id=j", "")
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, "Unknown error", body["error"])
		assert.Equal(t, "UNKNOWN", body["error_code"])
		assert.EqualValues(t, 0, body["credits_remaining"])
	})

	t.Run("completed without subtitles", func(t *testing.T) {
		notes := &fakeNotes{}
		res := service.JobResult{
			Status:          domain.DubStatusCompleted,
			DownloadDetails: []domain.DownloadDetail{{DownloadURL: "https://v"}},
		}
		h := NewDubHandler(nil, &fakeDub{result: res}, notes)
		_, body := doJSON(t, h.Status, http.MethodGet, "/api/dub_status?job_id=j", "")
		assert.Equal(t, "completed", body["status"])
		assert.Equal(t, "https://v", body["dubbed_video_url"])
		assert.Contains(t, body, "notes")
		assert.Nil(t, body["notes"])
		assert.Nil(t, body["subtitles_url"])
		assert.Zero(t, notes.calls)
	})

	t.Run("missing job id", func(t *testing.T) {
		h := NewDubHandler(nil, &fakeDub{}, &fakeNotes{})
		w, _ := doJSON(t, h.Status, http.MethodGet, "/api/dub_status", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDubHandler_CompleteTimeout(t *testing.T) {
	h := NewDubHandler(nil, &fakeDub{pollErr: fmt.Errorf("%w: job j", service.ErrPollTimeout)}, &fakeNotes{})

	w, body := doJSON(t, h.Complete, http.MethodGet, "/api/dub_complete?job_id=j", "")

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, body["error"], "polling timed out")
}

func TestDownloadHandler(t *testing.T) {
	path := "/downloads/video.mp4"
	tracker := &fakeTracker{records: map[string]domain.DownloadProgress{
		"dl-1": {ID: "dl-1", Status: domain.DownloadStatusCompleted, Progress: 100, FilePath: &path},
	}}
	h := NewDownloadHandler(tracker)

	w, body := doJSON(t, h.Start, http.MethodPost, "/api/download", `{"youtube_url":"https://youtu.be/abc"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dl-1", body["download_id"])
	assert.Equal(t, "started", body["status"])

	w, body = doJSON(t, h.Status, http.MethodGet, "/api/download_status?download_id=dl-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, path, body["file_path"])

	w, body = doJSON(t, h.Status, http.MethodGet, "/api/download_status?download_id=nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Download ID not found", body["error"])

	tracker.startErr = service.ErrTrackerBusy
	w, body = doJSON(t, h.Start, http.MethodPost, "/api/download", `{"youtube_url":"https://youtu.be/abc"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "TRACKER_BUSY", body["error_code"])

	tracker.startErr = service.ErrTrackerClosed
	w, body = doJSON(t, h.Start, http.MethodPost, "/api/download", `{"youtube_url":"https://youtu.be/abc"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "TRACKER_CLOSED", body["error_code"])
}

func TestAskHandler(t *testing.T) {
	state := domain.NewAgentState("q")
	state.Explanation = "explanation"
	state.Summary = "- summary"
	h := NewAskHandler(&fakePipeline{state: state})

	w, body := doJSON(t, h.Ask, http.MethodPost, "/api/ask", `{"query":"q"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "explanation", body["explanation"])
	assert.Contains(t, body, "audio_b64")
	assert.Nil(t, body["audio_b64"])

	state.Audio = []byte("RIFF")
	_, body = doJSON(t, h.Ask, http.MethodPost, "/api/ask", `{"query":"q"}`)
	assert.Equal(t, "UklGRg==", body["audio_b64"])

	w, _ = doJSON(t, h.Ask, http.MethodPost, "/api/ask", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
