package get

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jabba197/ai-meeting-transcription/db"
	"github.com/jabba197/ai-meeting-transcription/models"
)

type fakeGetter struct {
	record db.ContextRecord
	err    error
}

func (f fakeGetter) ContextGet(ctx context.Context) (db.ContextRecord, error) {
	return f.record, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestContextGet(t *testing.T) {
	t.Run("returns the stored record", func(t *testing.T) {
		h := New(discardLogger(), fakeGetter{record: db.ContextRecord{
			BusinessContext:    "We are a bakery.",
			CustomInstructions: "List action items.",
			Status:             db.StatusGreen,
		}})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get_context", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp models.ContextGetResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.BusinessContext != "We are a bakery." {
			t.Errorf("unexpected business context: %q", resp.BusinessContext)
		}
		if resp.RAGStatus != "green" {
			t.Errorf("expected green status, got %q", resp.RAGStatus)
		}
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		h := New(discardLogger(), fakeGetter{err: errors.New("read failed")})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get_context", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})
}
