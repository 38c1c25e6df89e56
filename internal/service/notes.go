package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/askify/internal/logger"
	"github.com/timmy/askify/internal/prompts"
)

// NotesService turns a dubbed video's subtitles into bullet notes.
type NotesService struct {
	client *resty.Client
	llm    TextGenerator
}

// NewNotesService creates a new notes generator. downloadTimeout bounds the
// subtitle fetch.
func NewNotesService(llm TextGenerator, downloadTimeout time.Duration) *NotesService {
	if downloadTimeout <= 0 {
		downloadTimeout = 120 * time.Second
	}
	client := resty.New()
	client.SetTimeout(downloadTimeout)
	return &NotesService{client: client, llm: llm}
}

// Generate returns notes for the subtitles at subtitleURL. Failures are
// reported inside the returned text.
func (s *NotesService) Generate(ctx context.Context, subtitleURL string) string {
	srt, err := s.download(ctx, subtitleURL)
	if err != nil {
		logger.CtxWarn(ctx, "Failed to download subtitles: %v", err)
		return "- (Could not generate notes) " + err.Error()
	}

	text := SRTToPlainText(srt)
	notes, err := s.llm.Generate(ctx, prompts.Notes(text))
	if err != nil {
		return "- (Error generating notes) " + err.Error()
	}
	return notes
}

func (s *NotesService) download(ctx context.Context, u string) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subtitles: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("subtitle download returned HTTP %d", resp.StatusCode())
	}
	return resp.Body(), nil
}
