package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	Dubbing DubbingConfig `mapstructure:"dubbing"`
	Media   MediaConfig   `mapstructure:"media"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Notes   NotesConfig   `mapstructure:"notes"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// LLMConfig configures the text-generation provider.
type LLMConfig struct {
	Provider string        `mapstructure:"provider"` // gemini, openai-compatible
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SpeechConfig configures the text-to-speech provider.
type SpeechConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	VoiceID     string        `mapstructure:"voice_id"`
	Format      string        `mapstructure:"format"`
	ChannelType string        `mapstructure:"channel_type"`
	SampleRate  int           `mapstructure:"sample_rate"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// DubbingConfig configures the dubbing provider and the job poll loop.
type DubbingConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Priority      string        `mapstructure:"priority"`
	UploadMode    string        `mapstructure:"upload_mode"` // multipart, object_storage
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout"`
	StatusRate    float64       `mapstructure:"status_rate"` // status queries per second across all pollers
	Timeout       time.Duration `mapstructure:"timeout"`
	StatusTimeout time.Duration `mapstructure:"status_timeout"`
}

type MediaConfig struct {
	DownloadDir string        `mapstructure:"download_dir"`
	YTDLPPath   string        `mapstructure:"ytdlp_path"`
	FFmpegPath  string        `mapstructure:"ffmpeg_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// TrackerConfig bounds the background download worker pool.
type TrackerConfig struct {
	Workers         int           `mapstructure:"workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type NotesConfig struct {
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

// StorageConfig configures optional S3-compatible media staging.
type StorageConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Type      string        `mapstructure:"type"` // minio, s3, r2, s3compatible
	Endpoint  string        `mapstructure:"endpoint"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	UseSSL    bool          `mapstructure:"use_ssl"`
	Bucket    string        `mapstructure:"bucket"`
	Region    string        `mapstructure:"region"`
	PublicURL string        `mapstructure:"public_url"`
	Prefix    string        `mapstructure:"prefix"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

const (
	UploadModeMultipart     = "multipart"
	UploadModeObjectStorage = "object_storage"
)

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and the variable names the frontend deployment already uses
	v.BindEnv("server.port", "PORT")
	v.BindEnv("llm.api_key", "GENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.base_url", "LLM_BASE_URL")
	v.BindEnv("llm.model", "LLM_MODEL")
	v.BindEnv("speech.api_key", "MURFAI_API_KEY")
	v.BindEnv("dubbing.api_key", "MURFDUB_API_KEY")
	v.BindEnv("dubbing.upload_mode", "DUB_UPLOAD_MODE")
	v.BindEnv("storage.enabled", "STORAGE_ENABLED")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("speech.base_url", "https://api.murf.ai/v1")
	v.SetDefault("speech.voice_id", "en-US-natalie")
	v.SetDefault("speech.format", "WAV")
	v.SetDefault("speech.channel_type", "MONO")
	v.SetDefault("speech.sample_rate", 48000)
	v.SetDefault("speech.timeout", 120*time.Second)

	v.SetDefault("dubbing.base_url", "https://api.murf.ai/v1/murfdub")
	v.SetDefault("dubbing.priority", "LOW")
	v.SetDefault("dubbing.upload_mode", UploadModeMultipart)
	v.SetDefault("dubbing.poll_interval", 3*time.Second)
	v.SetDefault("dubbing.poll_timeout", 1800*time.Second)
	v.SetDefault("dubbing.status_rate", 5.0)
	v.SetDefault("dubbing.timeout", 10*time.Minute)
	v.SetDefault("dubbing.status_timeout", 30*time.Second)

	v.SetDefault("media.download_dir", "downloads")
	v.SetDefault("media.ytdlp_path", "yt-dlp")
	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.timeout", 30*time.Minute)

	v.SetDefault("tracker.workers", 4)
	v.SetDefault("tracker.queue_size", 32)
	v.SetDefault("tracker.ttl", time.Hour)
	v.SetDefault("tracker.cleanup_interval", 5*time.Minute)

	v.SetDefault("notes.download_timeout", 120*time.Second)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.type", "minio")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "askify-media")
	v.SetDefault("storage.prefix", "dub-uploads")
	v.SetDefault("storage.url_expiry", 6*time.Hour)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the values that cannot be defaulted sensibly.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai-compatible":
	default:
		return fmt.Errorf("llm: unknown provider %q", c.LLM.Provider)
	}

	switch c.Dubbing.UploadMode {
	case UploadModeMultipart:
	case UploadModeObjectStorage:
		if !c.Storage.Enabled {
			return fmt.Errorf("dubbing: upload_mode %q requires storage.enabled", c.Dubbing.UploadMode)
		}
	default:
		return fmt.Errorf("dubbing: unknown upload_mode %q", c.Dubbing.UploadMode)
	}

	if c.Tracker.Workers <= 0 {
		return fmt.Errorf("tracker: workers must be positive")
	}
	if c.Dubbing.PollInterval <= 0 || c.Dubbing.PollTimeout <= 0 {
		return fmt.Errorf("dubbing: poll_interval and poll_timeout must be positive")
	}
	return nil
}
