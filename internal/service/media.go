package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/askify/internal/logger"
)

// MediaFetcher downloads a video to local disk and returns the file path.
type MediaFetcher interface {
	FetchBestQuality(ctx context.Context, sourceURL string) (string, error)
}

// MediaConfig holds configuration for the video downloader.
type MediaConfig struct {
	DownloadDir string
	YTDLPPath   string
	FFmpegPath  string
	Timeout     time.Duration
}

const (
	formatNoFFmpeg   = "best[ext=mp4]/best"
	formatWithFFmpeg = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	ffmpegProbeLimit = 5 * time.Second
)

// commandResult is a captured process execution.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// YTDLPFetcher downloads videos with the yt-dlp CLI.
type YTDLPFetcher struct {
	cfg    MediaConfig
	runner commandRunner
}

// NewYTDLPFetcher creates a new yt-dlp backed downloader.
func NewYTDLPFetcher(cfg *MediaConfig) *YTDLPFetcher {
	c := *cfg
	if c.DownloadDir == "" {
		c.DownloadDir = "downloads"
	}
	if c.YTDLPPath == "" {
		c.YTDLPPath = "yt-dlp"
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	return &YTDLPFetcher{cfg: c, runner: &execRunner{}}
}

// DownloadDir returns the directory videos are written to.
func (f *YTDLPFetcher) DownloadDir() string {
	return f.cfg.DownloadDir
}

// CleanSourceURL drops everything from the first '&' (timestamps, share ids).
func CleanSourceURL(u string) string {
	if i := strings.Index(u, "&"); i >= 0 {
		return u[:i]
	}
	return u
}

// FetchBestQuality downloads the best MP4 rendition of sourceURL.
// Parameters:
//   - ctx: cancels the yt-dlp processes.
//   - sourceURL: video page URL, playlist parameters are ignored.
// Returns:
//   - string: path of a non-empty .mp4 file under the download directory.
//   - error: always a *MediaError.
func (f *YTDLPFetcher) FetchBestQuality(ctx context.Context, sourceURL string) (string, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	if err := os.MkdirAll(f.cfg.DownloadDir, 0o755); err != nil {
		return "", &MediaError{Code: MediaCodeDownloadFailed, Err: fmt.Errorf("failed to create download dir: %w", err)}
	}

	sourceURL = CleanSourceURL(sourceURL)
	suffix := uuid.New().String()[:8]
	template := filepath.Join(f.cfg.DownloadDir, "%(title)s_"+suffix+".%(ext)s")

	args := []string{"--no-playlist", "--no-progress", "-o", template}
	if f.hasFFmpeg(ctx) {
		args = append(args, "-f", formatWithFFmpeg, "--merge-output-format", "mp4")
	} else {
		logger.CtxWarn(ctx, "ffmpeg not found, falling back to single-file formats")
		args = append(args, "-f", formatNoFFmpeg)
	}

	// Probe first so unavailable videos fail before anything is written.
	info, err := f.runner.Run(ctx, f.cfg.YTDLPPath, "--dump-single-json", "--skip-download", "--no-playlist", sourceURL)
	if err != nil {
		return "", classifyMediaError(info, err)
	}
	var meta struct {
		Title string `json:"title"`
	}
	_ = json.Unmarshal([]byte(info.Stdout), &meta)
	logger.CtxInfo(ctx, "Video info extracted: %s", meta.Title)

	args = append(args, "--print", "after_move:filepath", "--no-simulate", sourceURL)
	start := time.Now()
	res, err := f.runner.Run(ctx, f.cfg.YTDLPPath, args...)
	if err != nil {
		return "", classifyMediaError(res, err)
	}

	filePath, err := f.resolveOutput(lastLine(res.Stdout), suffix)
	if err != nil {
		return "", err
	}

	st, err := os.Stat(filePath)
	if err != nil {
		return "", &MediaError{Code: MediaCodeNotFound, Err: err}
	}
	if st.Size() == 0 {
		return "", &MediaError{Code: MediaCodeEmptyFile, Err: fmt.Errorf("downloaded file is empty: %s", filePath)}
	}

	logger.With(logger.Fields{logger.FieldSize: st.Size()}).
		WithDuration(start).
		Info(ctx, "Successfully downloaded: %s", filePath)
	return filePath, nil
}

func (f *YTDLPFetcher) hasFFmpeg(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ffmpegProbeLimit)
	defer cancel()
	_, err := f.runner.Run(ctx, f.cfg.FFmpegPath, "-version")
	return err == nil
}

// resolveOutput normalizes the printed path to .mp4 and falls back to a
// directory scan when the merged file landed under a different name.
func (f *YTDLPFetcher) resolveOutput(printed, suffix string) (string, error) {
	if printed != "" {
		if ext := filepath.Ext(printed); ext != ".mp4" {
			printed = strings.TrimSuffix(printed, ext) + ".mp4"
		}
		if _, err := os.Stat(printed); err == nil {
			return printed, nil
		}
	}

	entries, err := os.ReadDir(f.cfg.DownloadDir)
	if err != nil {
		return "", &MediaError{Code: MediaCodeNotFound, Err: err}
	}

	var fallback string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mp4") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		p := filepath.Join(f.cfg.DownloadDir, e.Name())
		if strings.Contains(e.Name(), suffix) {
			return p, nil
		}
		if fallback == "" {
			fallback = p
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", &MediaError{Code: MediaCodeNotFound, Err: fmt.Errorf("downloaded MP4 file not found in %s", f.cfg.DownloadDir)}
}

// classifyMediaError assigns a MediaError code from the downloader output.
func classifyMediaError(res commandResult, err error) *MediaError {
	out := res.Stderr + "\n" + res.Stdout
	code := MediaCodeDownloadFailed
	switch {
	case strings.Contains(out, "Invalid data found when processing input"):
		code = MediaCodeUnsupportedFormat
	case strings.Contains(out, "Video unavailable"):
		code = MediaCodeUnavailable
	case strings.Contains(out, "Sign in"), strings.Contains(strings.ToLower(out), "login"):
		code = MediaCodeAuthRequired
	}

	if msg := lastLine(res.Stderr); msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	return &MediaError{Code: code, Err: err}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
