package post

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/a-h/respond"
	"github.com/jabba197/ai-meeting-transcription/models"
	"github.com/jabba197/ai-meeting-transcription/transcribe"
)

type validator interface {
	Validate(audio []byte, mimeType string) error
}

type starter interface {
	Start(audio []byte, mimeType, filename, userPrompt string) (id string)
}

func New(log *slog.Logger, transcriber validator, jobs starter, maxUploadBytes int64) Handler {
	return Handler{
		log:            log,
		transcriber:    transcriber,
		jobs:           jobs,
		maxUploadBytes: maxUploadBytes,
	}
}

type Handler struct {
	log            *slog.Logger
	transcriber    validator
	jobs           starter
	maxUploadBytes int64
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.log.Error("failed to parse multipart form", slog.Any("error", err))
		respond.WithError(w, "failed to parse multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.WithError(w, "no file part in request", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		h.log.Error("failed to read upload", slog.Any("error", err))
		respond.WithError(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	mimeType := transcribe.ResolveMIMEType(header.Header.Get("Content-Type"), header.Filename)

	// Validation rejects the request synchronously; no job is created.
	if err = h.transcriber.Validate(audio, mimeType); err != nil {
		var validationErr transcribe.ValidationError
		if errors.As(err, &validationErr) {
			respond.WithError(w, validationErr.Reason, http.StatusBadRequest)
			return
		}
		h.log.Error("validation failed", slog.Any("error", err))
		respond.WithError(w, "validation failed", http.StatusInternalServerError)
		return
	}

	userPrompt := r.FormValue("user_prompt")
	id := h.jobs.Start(audio, mimeType, header.Filename, userPrompt)
	h.log.Info("processing initiated", slog.String("task_id", id), slog.String("filename", header.Filename), slog.Int("bytes", len(audio)))

	respond.WithJSON(w, models.ProcessingPostResponse{TaskID: id}, http.StatusOK)
}
