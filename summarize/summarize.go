// Package summarize wraps the hosted language-model call that turns a
// composed prompt into a meeting summary.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Error indicates the hosted model call failed. The caller is expected to
// surface the transcript even when summarization fails.
type Error struct {
	Err error
}

func (e Error) Error() string {
	return fmt.Sprintf("summarize: %v", e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

type Result struct {
	Summary      string
	Model        string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Latency      time.Duration
}

func New(log *slog.Logger, llm llms.Model, model string) *Summarizer {
	return &Summarizer{
		log:   log,
		llm:   llm,
		model: model,
	}
}

type Summarizer struct {
	log   *slog.Logger
	llm   llms.Model
	model string
}

// Summarize sends a single prompt and awaits the full response. The model's
// output is not streamed or chunked.
func (s *Summarizer) Summarize(ctx context.Context, systemPrompt, userMessage string) (result Result, err error) {
	start := time.Now()
	resp, err := s.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userMessage),
	}, llms.WithModel(s.model))
	if err != nil {
		return result, Error{Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return result, Error{Err: fmt.Errorf("empty response from model %s", s.model)}
	}
	choice := resp.Choices[0]

	result = Result{
		Summary:      choice.Content,
		Model:        s.model,
		InputTokens:  generationInfoInt(choice.GenerationInfo, "input_tokens", "PromptTokens"),
		OutputTokens: generationInfoInt(choice.GenerationInfo, "output_tokens", "CompletionTokens"),
		TotalTokens:  generationInfoInt(choice.GenerationInfo, "total_tokens", "TotalTokens"),
		Latency:      time.Since(start),
	}
	s.log.Info("summary generated",
		slog.String("model", result.Model),
		slog.Int("total_tokens", result.TotalTokens),
		slog.Duration("latency", result.Latency))
	return result, nil
}

// generationInfoInt digs a token count out of GenerationInfo. Providers
// disagree on key names and numeric types.
func generationInfoInt(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
