package get

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jabba197/ai-meeting-transcription/models"
	"github.com/jabba197/ai-meeting-transcription/pipeline"
)

type fakeSubscriber struct {
	events chan models.ProgressEvent
	err    error
}

func (f *fakeSubscriber) Subscribe(id string) (<-chan models.ProgressEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func streamRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/stream_progress/"+id, nil)
	req.SetPathValue("task_id", id)
	return req
}

func decodeEvents(t *testing.T, body string) (events []models.ProgressEvent) {
	t.Helper()
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev models.ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("failed to decode event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestProgressGet(t *testing.T) {
	t.Run("events are streamed in order until the channel closes", func(t *testing.T) {
		sub := &fakeSubscriber{events: make(chan models.ProgressEvent, 8)}
		sub.events <- models.ProgressEvent{TaskID: "t1", Stage: models.StageQueued, Progress: 0}
		sub.events <- models.ProgressEvent{TaskID: "t1", Stage: models.StageTranscribing, Progress: 10}
		sub.events <- models.ProgressEvent{TaskID: "t1", Stage: models.StageDone, Progress: 100, Summary: "done!"}
		close(sub.events)

		h := New(discardLogger(), sub, time.Second, time.Minute)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, streamRequest("t1"))

		if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
			t.Errorf("expected text/event-stream, got %q", ct)
		}
		events := decodeEvents(t, w.Body.String())
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}
		if events[0].Stage != models.StageQueued || events[2].Stage != models.StageDone {
			t.Errorf("unexpected event order: %+v", events)
		}
		if events[2].Summary != "done!" {
			t.Errorf("expected final payload, got %+v", events[2])
		}
	})

	t.Run("unknown task returns 404", func(t *testing.T) {
		sub := &fakeSubscriber{err: pipeline.ErrJobNotFound}
		h := New(discardLogger(), sub, time.Second, time.Minute)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, streamRequest("nope"))
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("second subscriber returns 409", func(t *testing.T) {
		sub := &fakeSubscriber{err: pipeline.ErrAlreadySubscribed}
		h := New(discardLogger(), sub, time.Second, time.Minute)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, streamRequest("t1"))
		if w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", w.Code)
		}
	})

	t.Run("stream ends after the inactivity timeout", func(t *testing.T) {
		sub := &fakeSubscriber{events: make(chan models.ProgressEvent)}
		h := New(discardLogger(), sub, 20*time.Millisecond, time.Minute)
		w := httptest.NewRecorder()
		done := make(chan struct{})
		go func() {
			h.ServeHTTP(w, streamRequest("t1"))
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("expected the stream to time out")
		}
	})
}
