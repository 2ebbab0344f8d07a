package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/respond"
	"github.com/jabba197/ai-meeting-transcription/db"
	"github.com/jabba197/ai-meeting-transcription/models"
)

type contextGetter interface {
	ContextGet(ctx context.Context) (db.ContextRecord, error)
}

func New(log *slog.Logger, queries contextGetter) Handler {
	return Handler{
		log:     log,
		queries: queries,
	}
}

type Handler struct {
	log     *slog.Logger
	queries contextGetter
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	record, err := h.queries.ContextGet(r.Context())
	if err != nil {
		h.log.Error("failed to get context", slog.Any("error", err))
		respond.WithError(w, "failed to get context", http.StatusInternalServerError)
		return
	}
	respond.WithJSON(w, models.ContextGetResponse{
		BusinessContext:    record.BusinessContext,
		CustomInstructions: record.CustomInstructions,
		RAGStatus:          string(record.Status),
	}, http.StatusOK)
}
