package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rqlite/gorqlite"
)

func New(conn *gorqlite.Connection) *Queries {
	return &Queries{
		conn: conn,
	}
}

type Queries struct {
	conn *gorqlite.Connection
}

// Note is a single document from the notes corpus, identified by its
// source path relative to the corpus root.
type Note struct {
	Source        string
	Title         string
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

type Chunk struct {
	Text      string
	Embedding []float32
}

type NotePutArgs struct {
	Note   Note
	Chunks []Chunk
}

func (q *Queries) noteUpsertRowID(ctx context.Context, n Note) (rowID int64, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query: `insert into note (source, title, created_at, last_updated_at)
values (?, ?, ?, ?)
on conflict(source) do update
set
    title = excluded.title,
    last_updated_at = excluded.last_updated_at
`,
		Arguments: []any{n.Source, n.Title, n.CreatedAt, n.LastUpdatedAt},
	}
	_, err = q.conn.WriteOneParameterizedContext(ctx, stmt)
	if err != nil {
		return 0, err
	}

	stmt = gorqlite.ParameterizedStatement{
		Query:     `select rowid from note where source = ?`,
		Arguments: []any{n.Source},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if !result.Next() {
		return 0, fmt.Errorf("expected a row ID")
	}
	err = result.Scan(&rowID)
	return rowID, err
}

// NotePut upserts a note and replaces its chunks. Chunks are keyed by
// (note, idx) so re-ingesting the same source overwrites in place, and any
// chunks beyond the new count are deleted.
func (q *Queries) NotePut(ctx context.Context, args NotePutArgs) (id int64, err error) {
	id, err = q.noteUpsertRowID(ctx, args.Note)
	if err != nil {
		return id, fmt.Errorf("failed to upsert note row id: %w", err)
	}
	if id == 0 {
		return id, fmt.Errorf("expected a non-zero row ID")
	}

	statements := make([]gorqlite.ParameterizedStatement, len(args.Chunks)+1)
	for chunkIndex, chunk := range args.Chunks {
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return id, fmt.Errorf("failed to marshal embedding: %w", err)
		}
		statements[chunkIndex] = gorqlite.ParameterizedStatement{
			Query:     `insert or replace into note_chunk_vec (note_rowid, idx, text, embedding) values (?, ?, ?, ?)`,
			Arguments: []any{id, chunkIndex, chunk.Text, string(embeddingJSON)},
		}
	}
	// Delete excess rows.
	statements[len(statements)-1] = gorqlite.ParameterizedStatement{
		Query:     `delete from note_chunk_vec where note_rowid = ? and idx > ?`,
		Arguments: []any{id, len(args.Chunks) - 1},
	}
	if _, err = q.conn.WriteParameterizedContext(ctx, statements); err != nil {
		return id, err
	}
	return id, nil
}

func (q *Queries) NoteDelete(ctx context.Context, source string) (err error) {
	statements := []gorqlite.ParameterizedStatement{
		{
			Query:     `delete from note_chunk_vec where note_rowid in (select rowid from note where source = ?)`,
			Arguments: []any{source},
		},
		{
			Query:     `delete from note where source = ?`,
			Arguments: []any{source},
		},
	}
	if _, err = q.conn.WriteParameterizedContext(ctx, statements); err != nil {
		return err
	}
	return nil
}

func (q *Queries) NoteGet(ctx context.Context, source string) (n Note, ok bool, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select source, title, created_at, last_updated_at from note where source = ?`,
		Arguments: []any{source},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return Note{}, false, err
	}
	if !result.Next() {
		return Note{}, false, nil
	}
	if err = result.Scan(&n.Source, &n.Title, &n.CreatedAt, &n.LastUpdatedAt); err != nil {
		return Note{}, false, err
	}
	return n, true, nil
}

// ChunkCount returns the total number of stored chunks across all notes.
func (q *Queries) ChunkCount(ctx context.Context) (count int64, err error) {
	result, err := q.conn.QueryOneContext(ctx, `select count(*) from note_chunk_vec`)
	if err != nil {
		return 0, err
	}
	if !result.Next() {
		return 0, fmt.Errorf("expected a count row")
	}
	err = result.Scan(&count)
	return count, err
}

type ChunkNearestArgs struct {
	Embedding []float32
	Limit     int
}

type ChunkNearestResult struct {
	RowID    int64
	Index    int64
	Text     string
	Distance float64
	Source   string
	Title    string
}

// ChunkNearest returns the chunks nearest to the input embedding, closest
// first. Ties within the vector index resolve by rowid, which matches
// insertion order.
func (q *Queries) ChunkNearest(ctx context.Context, args ChunkNearestArgs) (chunks []ChunkNearestResult, err error) {
	inputEmbeddingJSON, err := json.Marshal(args.Embedding)
	if err != nil {
		return chunks, fmt.Errorf("failed to marshal input embedding: %w", err)
	}
	stmt := gorqlite.ParameterizedStatement{
		Query: `with limited_ncv as (
  select note_rowid, idx, text, distance
  from note_chunk_vec
  where embedding match ?
  order by distance asc
  limit ?
)
select
  ln.note_rowid,
  ln.idx,
  ln.text,
  ln.distance,
  n.source,
  n.title
from limited_ncv ln
left join note n on n.rowid = ln.note_rowid;`,
		Arguments: []any{string(inputEmbeddingJSON), args.Limit},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return chunks, err
	}
	for result.Next() {
		var chunk ChunkNearestResult
		if err = result.Scan(&chunk.RowID, &chunk.Index, &chunk.Text, &chunk.Distance, &chunk.Source, &chunk.Title); err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
