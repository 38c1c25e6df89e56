package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner simulates command execution order and outcomes.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (commandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func hasArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

// outputFor expands the yt-dlp output template the way yt-dlp would.
func outputFor(template, title, ext string) string {
	p := strings.ReplaceAll(template, "%(title)s", title)
	return strings.ReplaceAll(p, "%(ext)s", ext)
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestFetcher(dir string, runner commandRunner) *YTDLPFetcher {
	f := NewYTDLPFetcher(&MediaConfig{DownloadDir: dir})
	f.runner = runner
	return f
}

func TestCleanSourceURL(t *testing.T) {
	tests := map[string]string{
		"https://www.youtube.com/watch?v=abc&t=42s":    "https://www.youtube.com/watch?v=abc",
		"https://www.youtube.com/watch?v=abc&si=x&t=1": "https://www.youtube.com/watch?v=abc",
		"https://youtu.be/abc":                         "https://youtu.be/abc",
	}
	for in, want := range tests {
		if got := CleanSourceURL(in); got != want {
			t.Errorf("CleanSourceURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFetchBestQuality_WithFFmpeg(t *testing.T) {
	dir := t.TempDir()
	var calls []string
	var downloadArgs []string

	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
		calls = append(calls, name)
		switch {
		case name == "ffmpeg":
			return commandResult{Stdout: "ffmpeg version 6"}, nil
		case hasArg(args, "--dump-single-json"):
			if args[len(args)-1] != "https://www.youtube.com/watch?v=abc" {
				t.Fatalf("probe url = %q", args[len(args)-1])
			}
			return commandResult{Stdout: `{"title":"Lesson"}`}, nil
		default:
			downloadArgs = append([]string{}, args...)
			out := outputFor(argValue(args, "-o"), "Lesson", "mp4")
			mustWriteFile(t, out, "video")
			// yt-dlp reports the pre-merge name
			return commandResult{Stdout: strings.TrimSuffix(out, ".mp4") + ".webm\n"}, nil
		}
	}}

	path, err := newTestFetcher(dir, runner).FetchBestQuality(context.Background(), "https://www.youtube.com/watch?v=abc&t=42s")
	if err != nil {
		t.Fatalf("FetchBestQuality() error = %v", err)
	}

	if strings.Join(calls, ",") != "ffmpeg,yt-dlp,yt-dlp" {
		t.Fatalf("calls = %v", calls)
	}
	if argValue(downloadArgs, "-f") != formatWithFFmpeg || argValue(downloadArgs, "--merge-output-format") != "mp4" {
		t.Errorf("download args = %v", downloadArgs)
	}
	if filepath.Ext(path) != ".mp4" || !strings.HasPrefix(filepath.Base(path), "Lesson_") {
		t.Errorf("path = %q", path)
	}
	suffix := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "Lesson_"), ".mp4")
	if len(suffix) != 8 {
		t.Errorf("suffix %q should be 8 characters", suffix)
	}
}

func TestFetchBestQuality_WithoutFFmpeg(t *testing.T) {
	dir := t.TempDir()
	var downloadArgs []string

	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
		switch {
		case name == "ffmpeg":
			return commandResult{ExitCode: -1}, errors.New("executable file not found in $PATH")
		case hasArg(args, "--dump-single-json"):
			return commandResult{Stdout: `{"title":"Clip"}`}, nil
		default:
			downloadArgs = append([]string{}, args...)
			out := outputFor(argValue(args, "-o"), "Clip", "mp4")
			mustWriteFile(t, out, "video")
			return commandResult{Stdout: out + "\n"}, nil
		}
	}}

	if _, err := newTestFetcher(dir, runner).FetchBestQuality(context.Background(), "https://youtu.be/abc"); err != nil {
		t.Fatalf("FetchBestQuality() error = %v", err)
	}
	if argValue(downloadArgs, "-f") != formatNoFFmpeg {
		t.Errorf("format = %q, want %q", argValue(downloadArgs, "-f"), formatNoFFmpeg)
	}
	if hasArg(downloadArgs, "--merge-output-format") {
		t.Errorf("merge should not be requested without ffmpeg: %v", downloadArgs)
	}
}

func TestFetchBestQuality_ClassifiesProbeFailures(t *testing.T) {
	tests := []struct {
		stderr string
		want   string
	}{
		{"ERROR: [youtube] abc: Video unavailable", MediaCodeUnavailable},
		{"ERROR: [youtube] abc: Sign in to confirm your age", MediaCodeAuthRequired},
		{"ERROR: Invalid data found when processing input", MediaCodeUnsupportedFormat},
		{"ERROR: unable to download webpage", MediaCodeDownloadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			downloads := 0
			runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
				if name == "ffmpeg" {
					return commandResult{}, nil
				}
				if hasArg(args, "--dump-single-json") {
					return commandResult{Stderr: tt.stderr, ExitCode: 1}, errors.New("exit status 1")
				}
				downloads++
				return commandResult{}, nil
			}}

			_, err := newTestFetcher(t.TempDir(), runner).FetchBestQuality(context.Background(), "https://youtu.be/abc")
			var merr *MediaError
			if !errors.As(err, &merr) {
				t.Fatalf("expected *MediaError, got %v", err)
			}
			if merr.Code != tt.want {
				t.Errorf("code = %s, want %s", merr.Code, tt.want)
			}
			if downloads != 0 {
				t.Errorf("download should not run after a failed probe")
			}
		})
	}
}

func TestFetchBestQuality_EmptyFile(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
		if name == "ffmpeg" || hasArg(args, "--dump-single-json") {
			return commandResult{Stdout: "{}"}, nil
		}
		out := outputFor(argValue(args, "-o"), "Empty", "mp4")
		mustWriteFile(t, out, "")
		return commandResult{Stdout: out}, nil
	}}

	_, err := newTestFetcher(t.TempDir(), runner).FetchBestQuality(context.Background(), "https://youtu.be/abc")
	var merr *MediaError
	if !errors.As(err, &merr) || merr.Code != MediaCodeEmptyFile {
		t.Fatalf("expected empty_file MediaError, got %v", err)
	}
}

func TestFetchBestQuality_DirectoryScanFallback(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "older.mp4"), "other video")

	var want string
	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
		if name == "ffmpeg" || hasArg(args, "--dump-single-json") {
			return commandResult{Stdout: "{}"}, nil
		}
		want = outputFor(argValue(args, "-o"), "Merged", "mp4")
		mustWriteFile(t, want, "video")
		// nothing printed
		return commandResult{}, nil
	}}

	got, err := newTestFetcher(dir, runner).FetchBestQuality(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("FetchBestQuality() error = %v", err)
	}
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}
