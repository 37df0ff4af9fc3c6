package table

import (
	"context"
	"io"
)

// Plan is a lazy, immutable description of a table transformation.
//
// Schema is a pure function of the plan: it never executes the pipeline.
// Open starts one streaming execution; a plan may be opened multiple times
// and each cursor is independent.
type Plan interface {
	Schema() *Schema
	Open(ctx context.Context) (Cursor, error)
}

// Cursor streams batches from an opened plan. Next returns [io.EOF] after
// the final batch. Close releases resources and is safe to call after EOF.
type Cursor interface {
	Next(ctx context.Context) (*Batch, error)
	Close() error
}

// Literal is a fully materialized plan, used as a leaf in tests and for
// small static inputs.
type Literal struct {
	schema *Schema
	rows   []Row
}

// NewLiteral creates a plan over in-memory rows.
func NewLiteral(schema *Schema, rows []Row) *Literal {
	return &Literal{schema: schema, rows: rows}
}

// Schema implements [Plan].
func (l *Literal) Schema() *Schema { return l.schema }

// Open implements [Plan].
func (l *Literal) Open(_ context.Context) (Cursor, error) {
	return &literalCursor{plan: l}, nil
}

type literalCursor struct {
	plan *Literal
	done bool
}

func (c *literalCursor) Next(_ context.Context) (*Batch, error) {
	if c.done {
		return nil, io.EOF
	}

	c.done = true

	return &Batch{Schema: c.plan.schema, Rows: c.plan.rows}, nil
}

func (c *literalCursor) Close() error { return nil }

// Transform is a pure per-row mapping plan. Fn receives an input row and
// returns the output row aligned to the transform's schema. Fn must not
// retain or mutate its argument.
type Transform struct {
	source Plan
	schema *Schema
	fn     func(Row) Row
}

// NewTransform wraps source with a per-row mapping producing schema.
func NewTransform(source Plan, schema *Schema, fn func(Row) Row) *Transform {
	return &Transform{source: source, schema: schema, fn: fn}
}

// Schema implements [Plan].
func (t *Transform) Schema() *Schema { return t.schema }

// Open implements [Plan].
func (t *Transform) Open(ctx context.Context) (Cursor, error) {
	cur, err := t.source.Open(ctx)
	if err != nil {
		return nil, err
	}

	return &transformCursor{plan: t, source: cur}, nil
}

type transformCursor struct {
	plan   *Transform
	source Cursor
}

func (c *transformCursor) Next(ctx context.Context) (*Batch, error) {
	batch, err := c.source.Next(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(batch.Rows))
	for i, row := range batch.Rows {
		rows[i] = c.plan.fn(row)
	}

	return &Batch{Schema: c.plan.schema, Rows: rows}, nil
}

func (c *transformCursor) Close() error { return c.source.Close() }

// Filter is a row-predicate plan; rows for which keep returns false are
// dropped. The schema passes through unchanged.
type Filter struct {
	source Plan
	keep   func(Row) bool
}

// NewFilter wraps source with a keep predicate.
func NewFilter(source Plan, keep func(Row) bool) *Filter {
	return &Filter{source: source, keep: keep}
}

// Schema implements [Plan].
func (f *Filter) Schema() *Schema { return f.source.Schema() }

// Open implements [Plan].
func (f *Filter) Open(ctx context.Context) (Cursor, error) {
	cur, err := f.source.Open(ctx)
	if err != nil {
		return nil, err
	}

	return &filterCursor{plan: f, source: cur}, nil
}

type filterCursor struct {
	plan   *Filter
	source Cursor
}

func (c *filterCursor) Next(ctx context.Context) (*Batch, error) {
	for {
		batch, err := c.source.Next(ctx)
		if err != nil {
			return nil, err
		}

		rows := batch.Rows[:0:0]
		for _, row := range batch.Rows {
			if c.plan.keep(row) {
				rows = append(rows, row)
			}
		}

		// Skip over batches that filtered down to nothing so Next only
		// returns empty batches at EOF.
		if len(rows) > 0 || len(batch.Rows) == 0 {
			return &Batch{Schema: batch.Schema, Rows: rows}, nil
		}
	}
}

func (c *filterCursor) Close() error { return c.source.Close() }

// Collect executes plan to completion and returns all rows. Intended for
// tests and small inputs; the engine itself never collects between stages.
func Collect(ctx context.Context, plan Plan) ([]Row, error) {
	cur, err := plan.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var rows []Row

	for {
		batch, err := cur.Next(ctx)
		if err == io.EOF {
			return rows, nil
		}

		if err != nil {
			return nil, err
		}

		rows = append(rows, batch.Rows...)
	}
}
