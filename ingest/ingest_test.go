package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jabba197/ai-meeting-transcription/db"
)

type fakeEmbedder struct {
	err error
}

func (f fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 0, 0}
	}
	return vectors, nil
}

func (f fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 0, 0}, nil
}

type fakeStore struct {
	notes    map[string]db.NotePutArgs
	statuses []db.Status
	putErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{notes: map[string]db.NotePutArgs{}}
}

func (f *fakeStore) NotePut(ctx context.Context, args db.NotePutArgs) (int64, error) {
	if f.putErr != nil {
		return 0, f.putErr
	}
	f.notes[args.Note.Source] = args
	return int64(len(f.notes)), nil
}

func (f *fakeStore) StatusSet(ctx context.Context, status db.Status, at time.Time) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("unreadable directory fails with an ingest error", func(t *testing.T) {
		i := New(discardLogger(), fakeEmbedder{}, newFakeStore(), 100, 10)
		_, err := i.Ingest(ctx, filepath.Join(t.TempDir(), "does-not-exist"))
		var ingestErr Error
		if !errors.As(err, &ingestErr) {
			t.Fatalf("expected ingest.Error, got %v", err)
		}
	})

	t.Run("notes are chunked and stored with front matter titles", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "budget.md", "---\ntitle: Q3 budget\n---\nThe Q3 budget was increased by 10%.")
		writeFile(t, dir, "plain.txt", "A plain note without front matter.")
		writeFile(t, dir, "ignored.pdf", "binary")

		store := newFakeStore()
		i := New(discardLogger(), fakeEmbedder{}, store, 100, 10)
		result, err := i.Ingest(ctx, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Status != db.StatusGreen {
			t.Errorf("expected green status, got %q", result.Status)
		}
		if result.ChunksWritten != 2 {
			t.Errorf("expected 2 chunks written, got %d", result.ChunksWritten)
		}
		if len(store.notes) != 2 {
			t.Fatalf("expected 2 notes stored, got %d", len(store.notes))
		}
		if got := store.notes["budget.md"].Note.Title; got != "Q3 budget" {
			t.Errorf("expected front matter title, got %q", got)
		}
		if got := store.notes["plain.txt"].Note.Title; got != "plain" {
			t.Errorf("expected filename title, got %q", got)
		}
		// Status passes through amber while running.
		if len(store.statuses) != 2 || store.statuses[0] != db.StatusAmber {
			t.Errorf("expected amber then terminal status, got %v", store.statuses)
		}
	})

	t.Run("embedding failure is partial, not fatal", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.md", "note a")

		store := newFakeStore()
		i := New(discardLogger(), fakeEmbedder{err: errors.New("model offline")}, store, 100, 10)
		result, err := i.Ingest(ctx, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Failures) != 1 {
			t.Fatalf("expected 1 failure, got %v", result.Failures)
		}
		if result.Status != db.StatusRed {
			t.Errorf("expected red status when nothing was written, got %q", result.Status)
		}
	})

	t.Run("re-ingesting is idempotent", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.md", "note a contents")

		store := newFakeStore()
		i := New(discardLogger(), fakeEmbedder{}, store, 100, 10)
		first, err := i.Ingest(ctx, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := i.Ingest(ctx, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.ChunksWritten != second.ChunksWritten {
			t.Errorf("expected %d chunks, got %d", first.ChunksWritten, second.ChunksWritten)
		}
		if len(store.notes) != 1 {
			t.Errorf("expected 1 note after re-ingest, got %d", len(store.notes))
		}
	})
}

func TestStripFrontMatter(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedTitle string
		expectedBody  string
	}{
		{
			name:          "no front matter",
			input:         "Just a note.",
			expectedTitle: "",
			expectedBody:  "Just a note.",
		},
		{
			name:          "front matter with title",
			input:         "---\ntitle: My note\ntags: [a, b]\n---\nBody text.",
			expectedTitle: "My note",
			expectedBody:  "Body text.",
		},
		{
			name:          "unterminated block is left alone",
			input:         "---\ntitle: broken\nBody text.",
			expectedTitle: "",
			expectedBody:  "---\ntitle: broken\nBody text.",
		},
		{
			name:          "malformed yaml is left alone",
			input:         "---\n\t: : :\n---\nBody text.",
			expectedTitle: "",
			expectedBody:  "---\n\t: : :\n---\nBody text.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := stripFrontMatter(tt.input)
			if title != tt.expectedTitle {
				t.Errorf("expected title %q, got %q", tt.expectedTitle, title)
			}
			if body != tt.expectedBody {
				t.Errorf("expected body %q, got %q", tt.expectedBody, body)
			}
		})
	}
}
