package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"go.nomadlab.dev/datacleaner/table"
)

// parquetPlan is a lazy scan over a flat Parquet file.
type parquetPlan struct {
	path   string
	opts   Options
	schema *table.Schema
}

func openParquet(path string, opts Options) (table.Plan, error) {
	file, pf, err := openParquetFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	schema, err := tableSchemaOf(pf.Schema())
	if err != nil {
		return nil, err
	}

	return &parquetPlan{path: path, opts: opts, schema: schema}, nil
}

func openParquetFile(path string) (*os.File, *parquet.File, error) {
	file, err := os.Open(path) //nolint:gosec // Input path from CLI flag is expected.
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()

		return nil, nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		file.Close()

		return nil, nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	return file, pf, nil
}

// tableSchemaOf maps a flat Parquet schema onto the engine schema. Nested
// groups in the input are rejected; the engine reads tabular sources only.
func tableSchemaOf(schema *parquet.Schema) (*table.Schema, error) {
	pfields := schema.Fields()
	fields := make([]table.Field, len(pfields))

	for i, f := range pfields {
		if !f.Leaf() {
			return nil, fmt.Errorf("%w: nested column %q", ErrInvalidSchema, f.Name())
		}

		fields[i] = table.Field{Name: f.Name(), Type: tableTypeOf(f.Type())}
	}

	out, err := table.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	return out, nil
}

func tableTypeOf(t parquet.Type) table.Type {
	switch t.Kind() {
	case parquet.Boolean:
		return table.BoolType()
	case parquet.Int32, parquet.Int64:
		return table.Int64Type()
	case parquet.Float, parquet.Double:
		return table.Float64Type()
	default:
		return table.StringType()
	}
}

// Schema implements [table.Plan].
func (p *parquetPlan) Schema() *table.Schema { return p.schema }

// Open implements [table.Plan].
func (p *parquetPlan) Open(_ context.Context) (table.Cursor, error) {
	file, pf, err := openParquetFile(p.path)
	if err != nil {
		return nil, err
	}

	return &parquetCursor{
		plan:   p,
		file:   file,
		groups: pf.RowGroups(),
	}, nil
}

type parquetCursor struct {
	plan   *parquetPlan
	file   *os.File
	groups []parquet.RowGroup
	rows   parquet.Rows
	buf    []parquet.Row
}

// Next implements [table.Cursor], draining row groups in file order.
func (c *parquetCursor) Next(_ context.Context) (*table.Batch, error) {
	chunk := c.plan.opts.chunkSize()

	if c.buf == nil {
		c.buf = make([]parquet.Row, chunk)
	}

	for {
		if c.rows == nil {
			if len(c.groups) == 0 {
				return nil, io.EOF
			}

			c.rows = c.groups[0].Rows()
			c.groups = c.groups[1:]
		}

		n, err := c.rows.ReadRows(c.buf)
		if n > 0 {
			return c.batchOf(c.buf[:n]), nil
		}

		if err == io.EOF {
			closeErr := c.rows.Close()
			c.rows = nil

			if closeErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrIO, closeErr)
			}

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
	}
}

// batchOf converts raw Parquet rows. For flat schemas every row carries one
// value per leaf column, indexed by column position.
func (c *parquetCursor) batchOf(prows []parquet.Row) *table.Batch {
	schema := c.plan.schema
	width := schema.Len()
	rows := make([]table.Row, len(prows))

	for i, prow := range prows {
		row := make(table.Row, width)

		for _, val := range prow {
			col := int(val.Column())
			if col < 0 || col >= width {
				continue
			}

			row[col] = tableValueOf(val)
		}

		rows[i] = row
	}

	return &table.Batch{Schema: schema, Rows: rows}
}

func tableValueOf(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}

	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

func (c *parquetCursor) Close() error {
	if c.rows != nil {
		c.rows.Close()
		c.rows = nil
	}

	return c.file.Close()
}
