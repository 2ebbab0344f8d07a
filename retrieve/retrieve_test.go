package retrieve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jabba197/ai-meeting-transcription/db"
)

type fakeEmbedder struct {
	err error
}

func (f fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

func (f fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

type fakeQuerier struct {
	results   []db.ChunkNearestResult
	err       error
	lastLimit int
}

func (f *fakeQuerier) ChunkNearest(ctx context.Context, args db.ChunkNearestArgs) ([]db.ChunkNearestResult, error) {
	f.lastLimit = args.Limit
	return f.results, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store returns an empty sequence, not an error", func(t *testing.T) {
		r := New(discardLogger(), fakeEmbedder{}, &fakeQuerier{})
		notes, err := r.Retrieve(ctx, "budget", 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notes) != 0 {
			t.Errorf("expected no notes, got %d", len(notes))
		}
	})

	t.Run("results are mapped with similarity scores", func(t *testing.T) {
		q := &fakeQuerier{
			results: []db.ChunkNearestResult{
				{Text: "Q3 budget note", Source: "budget.md", Title: "Q3 budget", Distance: 0.1},
				{Text: "Unrelated", Source: "other.md", Title: "Other", Distance: 0.9},
			},
		}
		r := New(discardLogger(), fakeEmbedder{}, q)
		notes, err := r.Retrieve(ctx, "what happened to the Q3 budget?", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notes) != 2 {
			t.Fatalf("expected 2 notes, got %d", len(notes))
		}
		if notes[0].Score <= notes[1].Score {
			t.Errorf("expected descending scores, got %v then %v", notes[0].Score, notes[1].Score)
		}
		if notes[0].Source != "budget.md" {
			t.Errorf("expected budget.md first, got %q", notes[0].Source)
		}
		if q.lastLimit != 2 {
			t.Errorf("expected limit 2, got %d", q.lastLimit)
		}
	})

	t.Run("store fault returns a retrieval error", func(t *testing.T) {
		q := &fakeQuerier{err: errors.New("connection refused")}
		r := New(discardLogger(), fakeEmbedder{}, q)
		_, err := r.Retrieve(ctx, "budget", 3)
		var retrievalErr Error
		if !errors.As(err, &retrievalErr) {
			t.Fatalf("expected retrieve.Error, got %v", err)
		}
	})

	t.Run("embedding fault returns a retrieval error", func(t *testing.T) {
		r := New(discardLogger(), fakeEmbedder{err: errors.New("model offline")}, &fakeQuerier{})
		_, err := r.Retrieve(ctx, "budget", 3)
		var retrievalErr Error
		if !errors.As(err, &retrievalErr) {
			t.Fatalf("expected retrieve.Error, got %v", err)
		}
	})

	t.Run("zero k or empty query short-circuits", func(t *testing.T) {
		q := &fakeQuerier{lastLimit: -1}
		r := New(discardLogger(), fakeEmbedder{}, q)
		if notes, err := r.Retrieve(ctx, "", 3); err != nil || notes != nil {
			t.Errorf("expected nil, nil for empty query, got %v, %v", notes, err)
		}
		if notes, err := r.Retrieve(ctx, "budget", 0); err != nil || notes != nil {
			t.Errorf("expected nil, nil for zero k, got %v, %v", notes, err)
		}
		if q.lastLimit != -1 {
			t.Error("expected the store not to be queried")
		}
	})
}
