// Package ingest walks a notes corpus, chunks and embeds each note, and
// writes the result to the vector store.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jabba197/ai-meeting-transcription/db"
	"github.com/tmc/langchaingo/embeddings"
)

// Error indicates the corpus could not be ingested at all. Per-note
// failures do not produce an Error; they are reported via Result.Failures.
type Error struct {
	Dir string
	Err error
}

func (e Error) Error() string {
	return fmt.Sprintf("ingest: %s: %v", e.Dir, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

type store interface {
	NotePut(ctx context.Context, args db.NotePutArgs) (int64, error)
	StatusSet(ctx context.Context, status db.Status, at time.Time) error
}

type Result struct {
	ChunksWritten int
	Status        db.Status
	Failures      []string
}

func New(log *slog.Logger, embedder embeddings.Embedder, queries store, chunkSize, chunkOverlap int) *Ingester {
	return &Ingester{
		log:          log,
		embedder:     embedder,
		queries:      queries,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		now:          time.Now,
	}
}

type Ingester struct {
	log          *slog.Logger
	embedder     embeddings.Embedder
	queries      store
	chunkSize    int
	chunkOverlap int
	now          func() time.Time
}

var supportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Ingest loads every supported note under dir and upserts its chunks and
// embeddings. A note that fails to read or embed is recorded and skipped, so
// a partial run keeps whatever succeeded. The corpus status is amber while
// running, green after a clean run, and red if nothing could be written.
func (i *Ingester) Ingest(ctx context.Context, dir string) (result Result, err error) {
	info, statErr := os.Stat(dir)
	if statErr != nil || !info.IsDir() {
		return result, Error{Dir: dir, Err: fmt.Errorf("not a readable directory: %v", statErr)}
	}
	if err = i.queries.StatusSet(ctx, db.StatusAmber, i.now()); err != nil {
		return result, Error{Dir: dir, Err: fmt.Errorf("failed to set status: %w", err)}
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		source, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			source = path
		}
		written, noteErr := i.ingestNote(ctx, path, source)
		if noteErr != nil {
			i.log.Error("failed to ingest note", slog.String("source", source), slog.Any("error", noteErr))
			result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", source, noteErr))
			return nil
		}
		result.ChunksWritten += written
		i.log.Info("ingested note", slog.String("source", source), slog.Int("chunks", written))
		return nil
	})
	if walkErr != nil {
		_ = i.queries.StatusSet(ctx, db.StatusRed, i.now())
		return result, Error{Dir: dir, Err: walkErr}
	}

	result.Status = db.StatusGreen
	if len(result.Failures) > 0 && result.ChunksWritten == 0 {
		result.Status = db.StatusRed
	} else if len(result.Failures) > 0 {
		result.Status = db.StatusAmber
	}
	if err = i.queries.StatusSet(ctx, result.Status, i.now()); err != nil {
		return result, Error{Dir: dir, Err: fmt.Errorf("failed to set status: %w", err)}
	}
	return result, nil
}

func (i *Ingester) ingestNote(ctx context.Context, path, source string) (chunksWritten int, err error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read note: %w", err)
	}
	title, body := stripFrontMatter(string(contents))
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	texts := Split(body, i.chunkSize, i.chunkOverlap)
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := i.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed note: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("length mismatch: %d texts, %d embeddings", len(texts), len(vectors))
	}

	chunks := make([]db.Chunk, len(texts))
	for idx := range texts {
		chunks[idx] = db.Chunk{
			Text:      texts[idx],
			Embedding: vectors[idx],
		}
	}

	now := i.now()
	_, err = i.queries.NotePut(ctx, db.NotePutArgs{
		Note: db.Note{
			Source:        source,
			Title:         title,
			CreatedAt:     now,
			LastUpdatedAt: now,
		},
		Chunks: chunks,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to put note: %w", err)
	}
	return len(chunks), nil
}
