// Package transcribe wraps the hosted speech-to-text call.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Error indicates the hosted transcription service failed or timed out.
// Retrying is the caller's decision.
type Error struct {
	Err error
}

func (e Error) Error() string {
	return fmt.Sprintf("transcribe: %v", e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

const transcriptionPrompt = `Please transcribe this audio accurately. Group the transcription into sections by speaker, labelling speakers (e.g. Speaker 1:, Speaker 2:).`

func New(log *slog.Logger, llm llms.Model, model string, maxBytes int64) *Transcriber {
	return &Transcriber{
		log:      log,
		llm:      llm,
		model:    model,
		maxBytes: maxBytes,
	}
}

type Transcriber struct {
	log      *slog.Logger
	llm      llms.Model
	model    string
	maxBytes int64
}

// Transcribe converts audio to plain text. Input is validated before any
// network call; a ValidationError means no job should be created.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (transcript string, err error) {
	if err = t.Validate(audio, mimeType); err != nil {
		return "", err
	}

	t.log.Info("transcribing audio", slog.String("mime_type", mimeType), slog.Int("bytes", len(audio)))
	resp, err := t.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(transcriptionPrompt),
				llms.BinaryPart(mimeType, audio),
			},
		},
	}, llms.WithModel(t.model))
	if err != nil {
		return "", Error{Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", Error{Err: fmt.Errorf("empty response from model %s", t.model)}
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
