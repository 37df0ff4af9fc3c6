package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.nomadlab.dev/datacleaner/table"
	"go.nomadlab.dev/datacleaner/workflow"
)

// applyValidation drops rows holding null in any of the configured
// not-empty columns. Absent columns are reported and skipped.
func (r *run) applyValidation(p table.Plan, wf *workflow.Workflow) table.Plan {
	if len(wf.NotEmpty.Columns) == 0 {
		return p
	}

	schema := p.Schema()

	var idxs []int

	for _, col := range wf.NotEmpty.Columns {
		idx := schema.Index(col)
		if idx < 0 {
			r.warnf("not-empty column not found: %q", col)

			continue
		}

		idxs = append(idxs, idx)
	}

	if len(idxs) == 0 {
		return p
	}

	r.log.Debug("validating not-empty columns", "columns", wf.NotEmpty.Columns)

	return table.NewFilter(p, func(row table.Row) bool {
		for _, idx := range idxs {
			if row[idx] == nil {
				return false
			}
		}

		return true
	})
}

// applyDedup retains one row per distinct tuple of the configured unique
// columns. An empty or fully-unresolved column list falls back to all
// current columns. The first occurrence in stream order survives.
func (r *run) applyDedup(p table.Plan, wf *workflow.Workflow) table.Plan {
	schema := p.Schema()

	var idxs []int

	for _, col := range wf.Dedup.UniqueColumns {
		idx := schema.Index(col)
		if idx < 0 {
			r.warnf("dedup column not found: %q", col)

			continue
		}

		idxs = append(idxs, idx)
	}

	if len(idxs) == 0 {
		if len(wf.Dedup.UniqueColumns) > 0 {
			r.warnf("no dedup columns resolved, using all columns")
		}

		idxs = make([]int, schema.Len())
		for i := range idxs {
			idxs[i] = i
		}
	}

	r.log.Debug("deduplicating", "key_width", len(idxs))

	return &dedupPlan{source: p, keyIdxs: idxs}
}

// dedupPlan drops rows whose key tuple was already seen. The seen set grows
// with the number of distinct keys, which is the lower bound for any exact
// streaming deduplication.
type dedupPlan struct {
	source  table.Plan
	keyIdxs []int
}

// Schema implements [table.Plan].
func (d *dedupPlan) Schema() *table.Schema { return d.source.Schema() }

// Open implements [table.Plan].
func (d *dedupPlan) Open(ctx context.Context) (table.Cursor, error) {
	cur, err := d.source.Open(ctx)
	if err != nil {
		return nil, err
	}

	return &dedupCursor{
		plan:   d,
		source: cur,
		seen:   make(map[string]struct{}),
	}, nil
}

type dedupCursor struct {
	plan   *dedupPlan
	source table.Cursor
	seen   map[string]struct{}
}

func (c *dedupCursor) Next(ctx context.Context) (*table.Batch, error) {
	for {
		batch, err := c.source.Next(ctx)
		if err != nil {
			return nil, err
		}

		rows := batch.Rows[:0:0]

		for _, row := range batch.Rows {
			key := dedupKey(row, c.plan.keyIdxs)
			if _, dup := c.seen[key]; dup {
				continue
			}

			c.seen[key] = struct{}{}
			rows = append(rows, row)
		}

		if len(rows) > 0 || len(batch.Rows) == 0 {
			return &table.Batch{Schema: batch.Schema, Rows: rows}, nil
		}
	}
}

func (c *dedupCursor) Close() error { return c.source.Close() }

// dedupKey builds a collision-free textual fingerprint of the key tuple.
// Values are tagged by type and quoted so that distinct tuples never encode
// to the same key.
func dedupKey(row table.Row, idxs []int) string {
	var sb strings.Builder

	for i, idx := range idxs {
		if i > 0 {
			sb.WriteByte(0x1f)
		}

		switch v := row[idx].(type) {
		case nil:
			sb.WriteString("_")
		case string:
			sb.WriteString("s")
			sb.WriteString(strconv.Quote(v))
		case int64:
			sb.WriteString("i")
			sb.WriteString(strconv.FormatInt(v, 10))
		case float64:
			sb.WriteString("f")
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		case bool:
			sb.WriteString("b")
			sb.WriteString(strconv.FormatBool(v))
		default:
			sb.WriteString("x")
			sb.WriteString(fmt.Sprint(v))
		}
	}

	return sb.String()
}
