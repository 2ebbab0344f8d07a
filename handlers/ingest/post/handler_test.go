package post

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jabba197/ai-meeting-transcription/ingest"
	"github.com/jabba197/ai-meeting-transcription/models"
)

type fakeIngester struct {
	result ingest.Result
	err    error
	dir    string
}

func (f *fakeIngester) Ingest(ctx context.Context, dir string) (ingest.Result, error) {
	f.dir = dir
	return f.result, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngestPost(t *testing.T) {
	t.Run("without a corpus directory the request conflicts", func(t *testing.T) {
		ing := &fakeIngester{}
		h := New(discardLogger(), ing, "")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest", nil))
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		if ing.dir != "" {
			t.Error("expected no ingestion to run")
		}
	})

	t.Run("a successful run reports chunks written", func(t *testing.T) {
		ing := &fakeIngester{result: ingest.Result{
			ChunksWritten: 12,
			Status:        "green",
		}}
		h := New(discardLogger(), ing, "/notes")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if ing.dir != "/notes" {
			t.Errorf("expected ingestion of /notes, got %q", ing.dir)
		}
		var resp models.IngestPostResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.ChunksWritten != 12 {
			t.Errorf("expected 12 chunks, got %d", resp.ChunksWritten)
		}
		if resp.Status != "green" {
			t.Errorf("expected green status, got %q", resp.Status)
		}
	})

	t.Run("a partial run reports per-note failures", func(t *testing.T) {
		ing := &fakeIngester{result: ingest.Result{
			ChunksWritten: 4,
			Status:        "amber",
			Failures:      []string{"broken.md: read failed"},
		}}
		h := New(discardLogger(), ing, "/notes")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest", nil))

		var resp models.IngestPostResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Failures) != 1 || resp.Failures[0] != "broken.md: read failed" {
			t.Errorf("unexpected failures: %v", resp.Failures)
		}
	})

	t.Run("a failed run is a 500", func(t *testing.T) {
		ing := &fakeIngester{err: errors.New("corpus missing")}
		h := New(discardLogger(), ing, "/notes")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})
}
