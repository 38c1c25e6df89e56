package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GENAI_API_KEY", "genai-key")
	t.Setenv("MURFDUB_API_KEY", "dub-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.Model != "gemini-2.0-flash" || cfg.LLM.APIKey != "genai-key" {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.Dubbing.APIKey != "dub-key" || cfg.Dubbing.PollInterval != 3*time.Second || cfg.Dubbing.PollTimeout != 1800*time.Second {
		t.Errorf("unexpected dubbing config: %+v", cfg.Dubbing)
	}
	if cfg.Speech.VoiceID != "en-US-natalie" || cfg.Speech.SampleRate != 48000 {
		t.Errorf("unexpected speech config: %+v", cfg.Speech)
	}
	if cfg.Notes.DownloadTimeout != 120*time.Second {
		t.Errorf("notes download timeout = %s", cfg.Notes.DownloadTimeout)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9001
tracker:
  workers: 2
  queue_size: 8
dubbing:
  poll_interval: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9001 || cfg.Tracker.Workers != 2 || cfg.Tracker.QueueSize != 8 {
		t.Errorf("file values not applied: %+v %+v", cfg.Server, cfg.Tracker)
	}
	if cfg.Dubbing.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %s", cfg.Dubbing.PollInterval)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:     LLMConfig{Provider: "gemini"},
			Dubbing: DubbingConfig{UploadMode: UploadModeMultipart, PollInterval: time.Second, PollTimeout: time.Minute},
			Tracker: TrackerConfig{Workers: 1},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := map[string]func(c *Config){
		"unknown provider":        func(c *Config) { c.LLM.Provider = "unknown-llm" },
		"unknown upload mode":     func(c *Config) { c.Dubbing.UploadMode = "ftp" },
		"staging without storage": func(c *Config) { c.Dubbing.UploadMode = UploadModeObjectStorage },
		"no workers":              func(c *Config) { c.Tracker.Workers = 0 },
		"zero poll interval":      func(c *Config) { c.Dubbing.PollInterval = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
