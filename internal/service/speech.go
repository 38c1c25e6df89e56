package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/askify/internal/logger"
	"github.com/timmy/askify/internal/metrics"
)

// SpeechSynthesizer turns text into audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SpeechConfig holds configuration for the text-to-speech service.
type SpeechConfig struct {
	BaseURL     string
	APIKey      string
	VoiceID     string
	Format      string
	ChannelType string
	SampleRate  int
	Timeout     time.Duration
}

// SpeechService calls the Murf speech generation API.
type SpeechService struct {
	client   *resty.Client
	endpoint string
	cfg      SpeechConfig
}

// NewSpeechService creates a new text-to-speech client.
func NewSpeechService(cfg *SpeechConfig) *SpeechService {
	c := *cfg
	if c.BaseURL == "" {
		c.BaseURL = "https://api.murf.ai/v1"
	}
	if c.VoiceID == "" {
		c.VoiceID = "en-US-natalie"
	}
	if c.Format == "" {
		c.Format = "WAV"
	}
	if c.ChannelType == "" {
		c.ChannelType = "MONO"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 48000
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}

	client := resty.New()
	client.SetTimeout(c.Timeout)

	return &SpeechService{
		client:   client,
		endpoint: strings.TrimSuffix(c.BaseURL, "/") + "/speech/generate",
		cfg:      c,
	}
}

type speechRequest struct {
	Text        string `json:"text"`
	VoiceID     string `json:"voice_id"`
	Format      string `json:"format"`
	ChannelType string `json:"channelType"`
	SampleRate  int    `json:"sampleRate"`
}

// speechEnvelope is returned instead of raw audio by some API versions.
type speechEnvelope struct {
	AudioFile string `json:"audioFile"`
	AudioURL  string `json:"audio_url"`
}

// Synthesize returns audio for text. The provider answers either with raw
// audio or with a JSON envelope pointing at the file, which is then fetched.
func (s *SpeechService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	start := time.Now()
	audio, err := s.synthesize(ctx, text)
	metrics.ObserveProvider("speech", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	logger.With(logger.Fields{logger.FieldProvider: "speech", logger.FieldSize: len(audio)}).
		WithDuration(start).
		Info(ctx, "Speech synthesized")
	return audio, nil
}

func (s *SpeechService) synthesize(ctx context.Context, text string) ([]byte, error) {
	req := speechRequest{
		Text:        text,
		VoiceID:     s.cfg.VoiceID,
		Format:      s.cfg.Format,
		ChannelType: s.cfg.ChannelType,
		SampleRate:  s.cfg.SampleRate,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("api-key", s.cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call speech API: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, &ProviderError{Provider: "speech", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	if !strings.Contains(resp.Header().Get("Content-Type"), "application/json") {
		return resp.Body(), nil
	}

	var env speechEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("failed to decode speech response: %w", err)
	}
	audioURL := env.AudioFile
	if audioURL == "" {
		audioURL = env.AudioURL
	}
	if audioURL == "" {
		// No link to follow; keep whatever the provider sent.
		return resp.Body(), nil
	}

	audioResp, err := s.client.R().SetContext(ctx).Get(audioURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch synthesized audio: %w", err)
	}
	if audioResp.IsError() {
		return nil, &ProviderError{Provider: "speech", StatusCode: audioResp.StatusCode(), Body: audioResp.String()}
	}
	return audioResp.Body(), nil
}
