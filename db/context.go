package db

import (
	"context"
	"time"

	"github.com/rqlite/gorqlite"
)

// Status reports the health of the notes corpus index.
type Status string

const (
	StatusGreen   Status = "green"
	StatusAmber   Status = "amber"
	StatusRed     Status = "red"
	StatusUnknown Status = "unknown"
)

const (
	defaultBusinessContext    = "Default business context. Please update this with information about your business, team members, and any specific terminology or context that would help in summarization."
	defaultCustomInstructions = "Generate a concise summary of the meeting, listing decisions made and action items with owners."
)

// ContextRecord is the singleton user-edited record applied to every
// summarization.
type ContextRecord struct {
	BusinessContext    string
	CustomInstructions string
	Status             Status
	LastUpdatedAt      time.Time
}

// ContextGet returns the stored context record, or a record with default
// prompts and unknown status if none has been saved yet.
func (q *Queries) ContextGet(ctx context.Context) (cr ContextRecord, err error) {
	result, err := q.conn.QueryOneContext(ctx, `select business_context, custom_instructions, rag_status, last_updated_at from app_context where id = 1`)
	if err != nil {
		return cr, err
	}
	if !result.Next() {
		return ContextRecord{
			BusinessContext:    defaultBusinessContext,
			CustomInstructions: defaultCustomInstructions,
			Status:             StatusUnknown,
		}, nil
	}
	var status string
	if err = result.Scan(&cr.BusinessContext, &cr.CustomInstructions, &status, &cr.LastUpdatedAt); err != nil {
		return cr, err
	}
	cr.Status = Status(status)
	return cr, nil
}

// ContextPut saves the user-edited fields. Last writer wins, and the stored
// status is preserved.
func (q *Queries) ContextPut(ctx context.Context, cr ContextRecord) (err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query: `insert into app_context (id, business_context, custom_instructions, rag_status, last_updated_at)
values (1, ?, ?, ?, ?)
on conflict(id) do update
set
    business_context = excluded.business_context,
    custom_instructions = excluded.custom_instructions,
    last_updated_at = excluded.last_updated_at
`,
		Arguments: []any{cr.BusinessContext, cr.CustomInstructions, string(StatusUnknown), cr.LastUpdatedAt},
	}
	_, err = q.conn.WriteOneParameterizedContext(ctx, stmt)
	return err
}

// StatusSet records the latest ingestion health without touching the
// user-edited fields.
func (q *Queries) StatusSet(ctx context.Context, status Status, at time.Time) (err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query: `insert into app_context (id, business_context, custom_instructions, rag_status, last_updated_at)
values (1, ?, ?, ?, ?)
on conflict(id) do update
set
    rag_status = excluded.rag_status
`,
		Arguments: []any{defaultBusinessContext, defaultCustomInstructions, string(status), at},
	}
	_, err = q.conn.WriteOneParameterizedContext(ctx, stmt)
	return err
}
