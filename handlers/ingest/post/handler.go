package post

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/respond"
	"github.com/jabba197/ai-meeting-transcription/ingest"
	"github.com/jabba197/ai-meeting-transcription/models"
)

type ingester interface {
	Ingest(ctx context.Context, dir string) (ingest.Result, error)
}

func New(log *slog.Logger, ing ingester, corpusDir string) Handler {
	return Handler{
		log:       log,
		ingester:  ing,
		corpusDir: corpusDir,
	}
}

type Handler struct {
	log       *slog.Logger
	ingester  ingester
	corpusDir string
}

// ServeHTTP re-ingests the notes corpus synchronously and reports the
// outcome, including per-note failures from a partial run.
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.corpusDir == "" {
		respond.WithError(w, "no corpus directory configured", http.StatusConflict)
		return
	}
	result, err := h.ingester.Ingest(r.Context(), h.corpusDir)
	if err != nil {
		h.log.Error("ingestion failed", slog.Any("error", err))
		respond.WithError(w, "ingestion failed", http.StatusInternalServerError)
		return
	}
	respond.WithJSON(w, models.IngestPostResponse{
		ChunksWritten: result.ChunksWritten,
		Status:        string(result.Status),
		Failures:      result.Failures,
	}, http.StatusOK)
}
