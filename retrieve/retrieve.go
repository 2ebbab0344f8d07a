// Package retrieve performs similarity search over the ingested notes
// corpus.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jabba197/ai-meeting-transcription/db"
	"github.com/tmc/langchaingo/embeddings"
)

// Error indicates a transport or infrastructure fault. An empty corpus is
// not an error.
type Error struct {
	Err error
}

func (e Error) Error() string {
	return fmt.Sprintf("retrieve: %v", e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// Note is a retrieved chunk with its source and similarity score, higher
// scores being more similar.
type Note struct {
	Text   string
	Source string
	Title  string
	Score  float64
}

type nearestQuerier interface {
	ChunkNearest(ctx context.Context, args db.ChunkNearestArgs) ([]db.ChunkNearestResult, error)
}

// maxQueryRunes bounds the text sent to the embedding model. Transcripts can
// run to tens of thousands of words, well past embedding input limits.
const maxQueryRunes = 2000

func New(log *slog.Logger, embedder embeddings.Embedder, queries nearestQuerier) *Retriever {
	return &Retriever{
		log:      log,
		embedder: embedder,
		queries:  queries,
	}
}

type Retriever struct {
	log      *slog.Logger
	embedder embeddings.Embedder
	queries  nearestQuerier
}

// Retrieve returns the k chunks most similar to query, best first. An empty
// or uninitialized store yields an empty result and no error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (notes []Note, err error) {
	if k <= 0 || query == "" {
		return nil, nil
	}
	if runes := []rune(query); len(runes) > maxQueryRunes {
		query = string(runes[:maxQueryRunes])
	}

	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, Error{Err: fmt.Errorf("failed to embed query: %w", err)}
	}

	chunks, err := r.queries.ChunkNearest(ctx, db.ChunkNearestArgs{
		Embedding: embedding,
		Limit:     k,
	})
	if err != nil {
		return nil, Error{Err: fmt.Errorf("failed to find nearest chunks: %w", err)}
	}

	notes = make([]Note, len(chunks))
	for i, chunk := range chunks {
		notes[i] = Note{
			Text:   chunk.Text,
			Source: chunk.Source,
			Title:  chunk.Title,
			// Cosine distance ranges 0..2, so similarity is 1 - distance.
			Score: 1 - chunk.Distance,
		}
	}
	r.log.Debug("retrieved context", slog.Int("results", len(notes)))
	return notes, nil
}
