// Package pipeline orchestrates transcription, context retrieval and
// summarization for one uploaded file, and publishes progress events to a
// single subscriber per job.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jabba197/ai-meeting-transcription/db"
	"github.com/jabba197/ai-meeting-transcription/models"
	"github.com/jabba197/ai-meeting-transcription/retrieve"
	"github.com/jabba197/ai-meeting-transcription/summarize"
)

var (
	ErrJobNotFound       = errors.New("pipeline: job not found")
	ErrAlreadySubscribed = errors.New("pipeline: job already has a subscriber")
)

// Progress checkpoints per stage. The bar only moves forward.
const (
	percentQueued       = 0
	percentTranscribing = 10
	percentRetrieving   = 50
	percentSummarizing  = 70
	percentDone         = 100
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieve.Note, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, userMessage string) (summarize.Result, error)
}

type ContextSource interface {
	ContextGet(ctx context.Context) (db.ContextRecord, error)
}

type Config struct {
	// TopK is how many corpus chunks are retrieved per job.
	TopK int
	// SummaryDir, when set, receives a markdown copy of each successful
	// summary, named after the uploaded file.
	SummaryDir string
	// Retention is how long a finished job is kept before it is removed,
	// whether or not its stream was read.
	Retention time.Duration
	// SystemPromptTemplate and UserMessageTemplate override the built-in
	// prompt templates. Each must contain the same fmt verbs as the default.
	SystemPromptTemplate string
	UserMessageTemplate  string
}

type job struct {
	id         string
	filename   string
	state      string
	events     chan models.ProgressEvent
	subscribed bool
}

func New(log *slog.Logger, transcriber Transcriber, retriever Retriever, summarizer Summarizer, contexts ContextSource, cfg Config) *Manager {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 5 * time.Minute
	}
	if cfg.SystemPromptTemplate == "" {
		cfg.SystemPromptTemplate = defaultSystemPromptTemplate
	}
	if cfg.UserMessageTemplate == "" {
		cfg.UserMessageTemplate = defaultUserMessageTemplate
	}
	return &Manager{
		log:         log,
		transcriber: transcriber,
		retriever:   retriever,
		summarizer:  summarizer,
		contexts:    contexts,
		cfg:         cfg,
		jobs:        map[string]*job{},
	}
}

type Manager struct {
	log         *slog.Logger
	transcriber Transcriber
	retriever   Retriever
	summarizer  Summarizer
	contexts    ContextSource
	cfg         Config

	mu   sync.Mutex
	jobs map[string]*job
}

// Start creates a job for one uploaded file and runs it in the background.
// The job is detached from the uploading request: it runs to completion even
// if no subscriber ever reads its events.
func (m *Manager) Start(audio []byte, mimeType, filename, userPrompt string) (id string) {
	j := &job{
		id:       uuid.NewString(),
		filename: filename,
		state:    models.StageQueued,
		// Buffered past the maximum event count, so the worker never blocks
		// on an absent subscriber.
		events: make(chan models.ProgressEvent, 8),
	}
	m.mu.Lock()
	m.jobs[j.id] = j
	m.mu.Unlock()

	go m.run(context.Background(), j, audio, mimeType, userPrompt)
	return j.id
}

// Subscribe returns the job's event stream. At most one subscriber is
// allowed per job; the channel is closed after the terminal event.
func (m *Manager) Subscribe(id string) (events <-chan models.ProgressEvent, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if j.subscribed {
		return nil, ErrAlreadySubscribed
	}
	j.subscribed = true
	return j.events, nil
}

func (m *Manager) emit(j *job, ev models.ProgressEvent) {
	ev.TaskID = j.id
	j.state = ev.Stage
	select {
	case j.events <- ev:
	default:
		// The buffer is sized past the event count, so this only happens if
		// a job somehow emits more events than designed. Dropping beats
		// blocking the worker.
		m.log.Warn("dropped progress event", slog.String("task_id", j.id), slog.String("stage", ev.Stage))
	}
}

func (m *Manager) finish(j *job) {
	close(j.events)
	time.AfterFunc(m.cfg.Retention, func() {
		m.mu.Lock()
		delete(m.jobs, j.id)
		m.mu.Unlock()
	})
}

func (m *Manager) fail(j *job, progress int, transcript string, err error) {
	m.log.Error("job failed", slog.String("task_id", j.id), slog.String("stage", j.state), slog.Any("error", err))
	m.emit(j, models.ProgressEvent{
		Stage:      models.StageFailed,
		Progress:   progress,
		Error:      err.Error(),
		Transcript: transcript,
	})
	m.finish(j)
}

func (m *Manager) run(ctx context.Context, j *job, audio []byte, mimeType, userPrompt string) {
	start := time.Now()
	m.emit(j, models.ProgressEvent{Stage: models.StageQueued, Progress: percentQueued})
	m.emit(j, models.ProgressEvent{Stage: models.StageTranscribing, Progress: percentTranscribing})

	transcript, err := m.transcriber.Transcribe(ctx, audio, mimeType)
	transcribeDuration := time.Since(start)
	if err != nil {
		m.fail(j, percentTranscribing, "", err)
		return
	}
	m.emit(j, models.ProgressEvent{
		Stage:      models.StageRetrievingContext,
		Progress:   percentRetrieving,
		Transcript: transcript,
	})

	// Context retrieval is best effort. A retrieval fault degrades to an
	// empty context rather than failing the job.
	retrieveStart := time.Now()
	notes, err := m.retriever.Retrieve(ctx, transcript, m.cfg.TopK)
	retrieveDuration := time.Since(retrieveStart)
	if err != nil {
		m.log.Error("context retrieval failed, continuing without context", slog.String("task_id", j.id), slog.Any("error", err))
		notes = nil
	}
	m.emit(j, models.ProgressEvent{
		Stage:      models.StageSummarizing,
		Progress:   percentSummarizing,
		RAGContext: toRetrievedNotes(notes),
	})

	record, err := m.contexts.ContextGet(ctx)
	if err != nil {
		m.log.Error("failed to read context record, using empty context", slog.String("task_id", j.id), slog.Any("error", err))
		record = db.ContextRecord{}
	}
	systemPrompt := composeSystemPrompt(m.cfg.SystemPromptTemplate, record.BusinessContext, notes, record.CustomInstructions)
	userMessage := composeUserMessage(m.cfg.UserMessageTemplate, transcript, userPrompt)

	summaryStart := time.Now()
	result, err := m.summarizer.Summarize(ctx, systemPrompt, userMessage)
	if err != nil {
		m.fail(j, percentSummarizing, transcript, err)
		return
	}

	if m.cfg.SummaryDir != "" {
		if err := m.writeSummaryFile(j.filename, result.Summary); err != nil {
			m.log.Error("failed to save summary file", slog.String("task_id", j.id), slog.Any("error", err))
		}
	}

	m.emit(j, models.ProgressEvent{
		Stage:      models.StageDone,
		Progress:   percentDone,
		Transcript: transcript,
		Summary:    result.Summary,
		RAGContext: toRetrievedNotes(notes),
		ModelInfo: &models.ModelInfo{
			Name:         result.Model,
			InputTokens:  result.InputTokens,
			OutputTokens: result.OutputTokens,
			TotalTokens:  result.TotalTokens,
		},
		Prompts: &models.Prompts{
			System: systemPrompt,
			User:   userMessage,
		},
		Timings: &models.Timings{
			TranscribeMs: transcribeDuration.Milliseconds(),
			RetrieveMs:   retrieveDuration.Milliseconds(),
			SummarizeMs:  time.Since(summaryStart).Milliseconds(),
			TotalMs:      time.Since(start).Milliseconds(),
		},
	})
	m.finish(j)
}

func (m *Manager) writeSummaryFile(uploadName, summary string) error {
	if err := os.MkdirAll(m.cfg.SummaryDir, 0o755); err != nil {
		return fmt.Errorf("failed to create summary dir: %w", err)
	}
	base := filepath.Base(uploadName)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		name = "summary"
	}
	path := filepath.Join(m.cfg.SummaryDir, name+".md")
	if err := os.WriteFile(path, []byte(summary), 0o644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

func toRetrievedNotes(notes []retrieve.Note) []models.RetrievedNote {
	if len(notes) == 0 {
		return nil
	}
	out := make([]models.RetrievedNote, len(notes))
	for i, note := range notes {
		out[i] = models.RetrievedNote{
			Text:   note.Text,
			Source: note.Source,
			Score:  note.Score,
		}
	}
	return out
}
