package models

// Stage values mirror the job state machine.
const (
	StageQueued            = "queued"
	StageTranscribing      = "transcribing"
	StageRetrievingContext = "retrieving_context"
	StageSummarizing       = "summarizing"
	StageDone              = "done"
	StageFailed            = "failed"
)

// ProgressEvent is one event on the GET /stream_progress/{task_id} stream.
// The final event (done or failed) carries the result payload fields.
type ProgressEvent struct {
	TaskID     string          `json:"task_id"`
	Stage      string          `json:"stage"`
	Progress   int             `json:"progress_percent"`
	Error      string          `json:"error,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	Summary    string          `json:"summary,omitempty"`
	RAGContext []RetrievedNote `json:"rag_context,omitempty"`
	ModelInfo  *ModelInfo      `json:"model_info,omitempty"`
	Prompts    *Prompts        `json:"prompts_used,omitempty"`
	Timings    *Timings        `json:"timings,omitempty"`
}

// RetrievedNote is one chunk of corpus context injected into the
// summarization prompt.
type RetrievedNote struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

type ModelInfo struct {
	Name         string `json:"name"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	TotalTokens  int    `json:"total_tokens,omitempty"`
}

type Prompts struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// Timings are per-stage durations in milliseconds.
type Timings struct {
	TranscribeMs int64 `json:"transcribe_ms"`
	RetrieveMs   int64 `json:"retrieve_ms"`
	SummarizeMs  int64 `json:"summarize_ms"`
	TotalMs      int64 `json:"total_ms"`
}
