package get

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jabba197/ai-meeting-transcription/models"
	"github.com/jabba197/ai-meeting-transcription/pipeline"
)

type subscriber interface {
	Subscribe(id string) (<-chan models.ProgressEvent, error)
}

func New(log *slog.Logger, jobs subscriber, inactivityTimeout, keepAliveInterval time.Duration) Handler {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	if keepAliveInterval <= 0 {
		keepAliveInterval = 15 * time.Second
	}
	return Handler{
		log:               log,
		jobs:              jobs,
		inactivityTimeout: inactivityTimeout,
		keepAliveInterval: keepAliveInterval,
	}
}

type Handler struct {
	log               *slog.Logger
	jobs              subscriber
	inactivityTimeout time.Duration
	keepAliveInterval time.Duration
}

// ServeHTTP streams progress events for one job as server-sent events. The
// stream ends after the terminal event, when the client goes away, or after
// the inactivity timeout, whichever comes first.
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")
	events, err := h.jobs.Subscribe(id)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrJobNotFound):
			http.Error(w, "task not found", http.StatusNotFound)
		case errors.Is(err, pipeline.ErrAlreadySubscribed):
			http.Error(w, "task already has a subscriber", http.StatusConflict)
		default:
			h.log.Error("failed to subscribe", slog.Any("error", err))
			http.Error(w, "failed to subscribe", http.StatusInternalServerError)
		}
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	deadline := time.NewTimer(h.inactivityTimeout)
	defer deadline.Stop()
	keepAlive := time.NewTicker(h.keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				h.log.Debug("client went away", slog.String("task_id", id), slog.Any("error", err))
				return
			}
			flusher.Flush()
			if !deadline.Stop() {
				select {
				case <-deadline.C:
				default:
				}
			}
			deadline.Reset(h.inactivityTimeout)
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-deadline.C:
			h.log.Warn("progress stream timed out", slog.String("task_id", id))
			return
		case <-r.Context().Done():
			// The background job carries on; its result is discarded if
			// nobody reads it.
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev models.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
