package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/respond"
	"github.com/jabba197/ai-meeting-transcription/db"
	"github.com/jabba197/ai-meeting-transcription/models"
)

type contextPutter interface {
	ContextPut(ctx context.Context, cr db.ContextRecord) error
}

func New(log *slog.Logger, queries contextPutter) Handler {
	return Handler{
		log:     log,
		queries: queries,
		now:     time.Now,
	}
}

type Handler struct {
	log     *slog.Logger
	queries contextPutter
	now     func() time.Time
}

// ServeHTTP saves the user-edited context record. Last writer wins; the
// record is a single small user-edited document so no concurrency control is
// applied.
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.ContextPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithJSON(w, models.ContextPostResponse{Status: "error", Message: "failed to decode body"}, http.StatusBadRequest)
		return
	}

	err = h.queries.ContextPut(r.Context(), db.ContextRecord{
		BusinessContext:    req.BusinessContext,
		CustomInstructions: req.CustomInstructions,
		LastUpdatedAt:      h.now(),
	})
	if err != nil {
		h.log.Error("failed to save context", slog.Any("error", err))
		respond.WithJSON(w, models.ContextPostResponse{Status: "error", Message: "failed to save context"}, http.StatusInternalServerError)
		return
	}

	respond.WithJSON(w, models.ContextPostResponse{Status: "success"}, http.StatusOK)
}
