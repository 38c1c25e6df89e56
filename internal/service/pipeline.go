package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/timmy/askify/internal/domain"
	"github.com/timmy/askify/internal/logger"
	"github.com/timmy/askify/internal/metrics"
	"github.com/timmy/askify/internal/prompts"
)

// Pipeline stage names, used in logs and metrics.
const (
	StageExplain = "explain"
	StageSpeech  = "speech"
	StageSummary = "summary"
)

var (
	headingMarks  = regexp.MustCompile(`#+`)
	markdownMarks = regexp.MustCompile("[*_`>-]")
)

// CleanText strips markdown markers so they are not read aloud.
func CleanText(text string) string {
	text = headingMarks.ReplaceAllString(text, "")
	text = markdownMarks.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ExplanationPipeline answers a query with an explanation, its audio and a summary.
type ExplanationPipeline struct {
	llm    TextGenerator
	speech SpeechSynthesizer
}

// NewExplanationPipeline creates a new pipeline.
func NewExplanationPipeline(llm TextGenerator, speech SpeechSynthesizer) *ExplanationPipeline {
	return &ExplanationPipeline{llm: llm, speech: speech}
}

// Run executes explain, speech and summary in order. Stage failures are
// recorded in the state and never abort the run.
func (p *ExplanationPipeline) Run(ctx context.Context, query string) *domain.AgentState {
	state := domain.NewAgentState(query)

	p.stage(ctx, StageExplain, func(ctx context.Context) {
		text, err := p.llm.Generate(ctx, prompts.Explanation(state.Query))
		if err != nil {
			state.Explanation = "Sorry, i couldn't generate explanation due to error: " + err.Error()
			return
		}
		state.Explanation = text
	})

	p.stage(ctx, StageSpeech, func(ctx context.Context) {
		audio, err := p.speech.Synthesize(ctx, CleanText(state.Explanation))
		if err != nil {
			logger.CtxWarn(ctx, "Speech synthesis failed, continuing without audio: %v", err)
			state.Audio = nil
			return
		}
		state.Audio = audio
	})

	p.stage(ctx, StageSummary, func(ctx context.Context) {
		text, err := p.llm.Generate(ctx, prompts.Summary(state.Explanation))
		if err != nil {
			state.Summary = "Sorry, i couldn't generate summary due to error: " + err.Error()
			return
		}
		state.Summary = text
	})

	return state
}

func (p *ExplanationPipeline) stage(ctx context.Context, name string, fn func(ctx context.Context)) {
	ctx = logger.WithField(ctx, logger.FieldStage, name)
	start := time.Now()
	fn(ctx)
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	logger.With(nil).WithDuration(start).Debug(ctx, "Stage finished")
}
