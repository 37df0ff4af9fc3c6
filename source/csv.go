package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"go.nomadlab.dev/datacleaner/table"
)

// csvPlan is a lazy scan over a delimited text file. The schema is inferred
// once from a bounded prefix at plan construction; execution re-reads the
// file from the top.
type csvPlan struct {
	path   string
	opts   Options
	schema *table.Schema
	nulls  map[string]struct{}
}

func openCSV(path string, opts Options) (table.Plan, error) {
	p := &csvPlan{
		path:  path,
		opts:  opts,
		nulls: opts.nullTokens(),
	}

	schema, err := p.inferSchema()
	if err != nil {
		return nil, err
	}

	p.schema = schema

	return p, nil
}

// Schema implements [table.Plan].
func (p *csvPlan) Schema() *table.Schema { return p.schema }

// Open implements [table.Plan].
func (p *csvPlan) Open(_ context.Context) (table.Cursor, error) {
	file, reader, err := p.newReader()
	if err != nil {
		return nil, err
	}

	// Skip the header row.
	_, err = reader.Read()
	if err != nil && err != io.EOF {
		file.Close()

		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	return &csvCursor{plan: p, file: file, reader: reader}, nil
}

// newReader opens the file and wraps it with the configured decoder.
func (p *csvPlan) newReader() (*os.File, *csv.Reader, error) {
	file, err := os.Open(p.path) //nolint:gosec // Input path from CLI flag is expected.
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	var r io.Reader = file

	dec, err := newDecoder(p.opts.Encoding)
	if err != nil {
		file.Close()

		return nil, nil, err
	}

	if dec != nil {
		r = dec.Reader(file)
	}

	reader := csv.NewReader(r)
	reader.Comma = p.opts.delimiter()
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return file, reader, nil
}

// newDecoder resolves an IANA encoding name. Empty and UTF-8 names return
// nil: bytes are passed through unchanged and invalid UTF-8 is not replaced.
func newDecoder(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf8", "utf-8", "utf8-lossy":
		return nil, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrDecode, name)
	}

	return enc.NewDecoder(), nil
}

// inferSchema reads the header plus a bounded row prefix and derives column
// names and types. Names are stripped of surrounding double quotes and
// whitespace; empty names become column_<i>; duplicates fail.
func (p *csvPlan) inferSchema() (*table.Schema, error) {
	file, reader, err := p.newReader()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidSchema)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	names := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		name = strings.TrimSpace(name)
		name = strings.Trim(name, `"`)
		name = strings.TrimSpace(name)

		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}

		names[i] = name
	}

	kinds := make([]columnKind, len(names))

	for row := 0; row < p.opts.analyzeRows(); row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			continue
		}

		for i, val := range record {
			if i >= len(kinds) {
				break
			}

			if _, null := p.nulls[val]; null {
				continue
			}

			kinds[i] = widenKind(kinds[i], kindOf(val))
		}
	}

	fields := make([]table.Field, len(names))
	for i, name := range names {
		fields[i] = table.Field{Name: name, Type: kinds[i].tableType()}
	}

	schema, err := table.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	return schema, nil
}

// columnKind is the inference lattice: unknown -> int64 -> float64 -> string,
// with bool as a separate branch that widens to string when mixed.
type columnKind int

const (
	kindUnknown columnKind = iota
	kindInt64
	kindFloat64
	kindBool
	kindText
)

func (k columnKind) tableType() table.Type {
	switch k {
	case kindInt64:
		return table.Int64Type()
	case kindFloat64:
		return table.Float64Type()
	case kindBool:
		return table.BoolType()
	default:
		return table.StringType()
	}
}

func kindOf(val string) columnKind {
	val = strings.TrimSpace(val)
	if val == "" {
		return kindUnknown
	}

	switch strings.ToLower(val) {
	case "true", "false":
		return kindBool
	}

	if _, err := strconv.ParseInt(val, 10, 64); err == nil {
		return kindInt64
	}

	if _, err := strconv.ParseFloat(val, 64); err == nil {
		return kindFloat64
	}

	return kindText
}

func widenKind(current, next columnKind) columnKind {
	switch {
	case next == kindUnknown:
		return current
	case current == kindUnknown:
		return next
	case current == next:
		return current
	case current == kindText || next == kindText:
		return kindText
	case current == kindBool || next == kindBool:
		return kindText
	default:
		// int64 and float64 widen to float64.
		return kindFloat64
	}
}

type csvCursor struct {
	plan   *csvPlan
	file   *os.File
	reader *csv.Reader
	done   bool
}

// Next implements [table.Cursor]. Ragged rows are tolerated: extra fields
// are truncated, missing fields padded with null.
func (c *csvCursor) Next(_ context.Context) (*table.Batch, error) {
	if c.done {
		return nil, io.EOF
	}

	schema := c.plan.schema
	width := schema.Len()
	chunk := c.plan.opts.chunkSize()
	rows := make([]table.Row, 0, chunk)

	for len(rows) < chunk {
		record, err := c.reader.Read()
		if err == io.EOF {
			c.done = true

			break
		}

		if err != nil {
			// Structurally unreadable record; skip like the lazy
			// scan's ignore-errors mode.
			continue
		}

		row := make(table.Row, width)

		for i := range width {
			if i >= len(record) {
				row[i] = nil

				continue
			}

			row[i] = c.cell(record[i], schema.Field(i).Type.Kind)
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, io.EOF
	}

	return &table.Batch{Schema: schema, Rows: rows}, nil
}

// cell converts one raw cell into a typed value. Null tokens become null;
// unparseable typed cells also become null. Textual cells drop embedded
// double quotes.
func (c *csvCursor) cell(raw string, kind table.Kind) any {
	if _, null := c.plan.nulls[raw]; null {
		return nil
	}

	switch kind {
	case table.KindInt64:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil
		}

		return v

	case table.KindFloat64:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil
		}

		return v

	case table.KindBool:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			return true
		case "false":
			return false
		}

		return nil

	default:
		return strings.ReplaceAll(raw, `"`, "")
	}
}

func (c *csvCursor) Close() error { return c.file.Close() }
