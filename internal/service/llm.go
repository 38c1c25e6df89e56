package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/askify/internal/logger"
	"github.com/timmy/askify/internal/metrics"
)

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMConfig holds configuration for the text-generation service.
type LLMConfig struct {
	Provider string // gemini, openai-compatible
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// LLMService calls a Gemini or OpenAI-compatible text model.
type LLMService struct {
	client   *resty.Client
	provider string
	model    string
	apiKey   string
	endpoint string
}

// NewLLMService creates a new text-generation client.
// Parameters:
//   - cfg: provider, model, key and endpoint; empty values take the Gemini defaults.
// Returns:
//   - *LLMService: client ready for Generate.
func NewLLMService(cfg *LLMConfig) *LLMService {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	var endpoint string
	switch cfg.Provider {
	case "openai-compatible":
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
		endpoint = baseURL + "/chat/completions"
	default:
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		endpoint = fmt.Sprintf("%s/models/%s:generateContent", baseURL, cfg.Model)
	}

	return &LLMService{
		client:   client,
		provider: cfg.Provider,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
	}
}

// GetModel returns the model name being used.
func (s *LLMService) GetModel() string {
	return s.model
}

// Gemini generateContent request/response structures
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends prompt to the configured provider and returns the trimmed answer.
func (s *LLMService) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	var (
		text string
		err  error
	)
	if s.provider == "openai-compatible" {
		text, err = s.generateChat(ctx, prompt)
	} else {
		text, err = s.generateGemini(ctx, prompt)
	}
	metrics.ObserveProvider("llm", time.Since(start).Seconds(), err)

	if err != nil {
		logger.With(logger.Fields{logger.FieldProvider: s.provider}).
			WithDuration(start).
			Warn(ctx, "Text generation failed: %v", err)
		return "", err
	}
	logger.With(logger.Fields{logger.FieldProvider: s.provider, logger.FieldSize: len(text)}).
		WithDuration(start).
		Debug(ctx, "Text generation finished")
	return text, nil
}

func (s *LLMService) generateGemini(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}

	var resp geminiResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("key", s.apiKey).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call Gemini API: %w", err)
	}

	if httpResp.IsError() {
		return "", &ProviderError{Provider: "gemini", StatusCode: httpResp.StatusCode(), Body: httpResp.String()}
	}
	if resp.Error != nil {
		return "", fmt.Errorf("gemini API error: %s", resp.Error.Message)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in Gemini response: %s", truncate(httpResp.String(), 500))
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func (s *LLMService) generateChat(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	var resp chatResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call LLM API: %w", err)
	}

	if httpResp.IsError() {
		return "", &ProviderError{Provider: "llm", StatusCode: httpResp.StatusCode(), Body: httpResp.String()}
	}
	if resp.Error != nil {
		return "", fmt.Errorf("LLM API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response: %s", truncate(httpResp.String(), 500))
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
