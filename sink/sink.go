// Package sink streams a composed [table.Plan] into a compressed Parquet
// file. Writes go through a pending temp file and rename into place only on
// success, so a failed run leaves no partial artifact.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/parquet-go/parquet-go"

	"go.nomadlab.dev/datacleaner/table"
)

var (
	// ErrSink indicates an output write failure.
	ErrSink = errors.New("writing parquet")
	// ErrExists indicates the output path already exists and force was
	// not set.
	ErrExists = errors.New("output exists")
	// ErrCompression indicates an unknown compression name.
	ErrCompression = errors.New("unknown compression")
)

// Options configures a write.
type Options struct {
	// Compression is one of zstd (default), snappy, gzip, none.
	Compression string
	// ChunkSize is the row-group width. Zero means 50000.
	ChunkSize int
	// Force overwrites an existing output file.
	Force bool
	// OnChunk, when set, runs after every flushed chunk with the running
	// row count. Returning an error aborts the write.
	OnChunk func(written int64) error
}

func (o Options) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}

	return 50000
}

func (o Options) codec() (parquet.WriterOption, error) {
	switch strings.ToLower(o.Compression) {
	case "", "zstd":
		return parquet.Compression(&parquet.Zstd), nil
	case "snappy":
		return parquet.Compression(&parquet.Snappy), nil
	case "gzip":
		return parquet.Compression(&parquet.Gzip), nil
	case "none":
		return parquet.Compression(&parquet.Uncompressed), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrCompression, o.Compression)
}

// Write executes plan and streams the rows into a Parquet file at path. The
// extension is forced to .parquet and the parent directory is created when
// absent. Returns the final path and the number of rows written.
func Write(ctx context.Context, plan table.Plan, path string, opts Options) (string, int64, error) {
	path = ForceExtension(path)

	codec, err := opts.codec()
	if err != nil {
		return path, 0, fmt.Errorf("%w: %w", ErrSink, err)
	}

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return path, 0, fmt.Errorf("%w: %w", ErrSink, err)
	}

	if !opts.Force {
		_, statErr := os.Stat(path)
		if statErr == nil {
			return path, 0, fmt.Errorf("%w: %w: %s", ErrSink, ErrExists, path)
		}
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return path, 0, fmt.Errorf("%w: %w", ErrSink, err)
	}

	written, err := write(ctx, plan, pending, codec, opts)
	if err != nil {
		pending.Cleanup()

		return path, written, err
	}

	err = pending.CloseAtomicallyReplace()
	if err != nil {
		return path, written, fmt.Errorf("%w: %w", ErrSink, err)
	}

	return path, written, nil
}

func write(ctx context.Context, plan table.Plan, w io.Writer, codec parquet.WriterOption, opts Options) (int64, error) {
	schema, err := parquetSchemaOf(plan.Schema())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSink, err)
	}

	writer := parquet.NewGenericWriter[map[string]any](w, schema, codec)

	cur, err := plan.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	var (
		written int64
		pending int
	)

	chunk := opts.chunkSize()

	for {
		batch, err := cur.Next(ctx)
		if err == io.EOF {
			break
		}

		if err != nil {
			return written, err
		}

		rows := make([]map[string]any, len(batch.Rows))
		for i, row := range batch.Rows {
			rows[i] = rowValue(batch.Schema, row)
		}

		_, err = writer.Write(rows)
		if err != nil {
			return written, fmt.Errorf("%w: %w", ErrSink, err)
		}

		written += int64(len(rows))
		pending += len(rows)

		if pending >= chunk {
			err = writer.Flush()
			if err != nil {
				return written, fmt.Errorf("%w: %w", ErrSink, err)
			}

			pending = 0

			if opts.OnChunk != nil {
				err = opts.OnChunk(written)
				if err != nil {
					return written, err
				}
			}
		}
	}

	err = writer.Close()
	if err != nil {
		return written, fmt.Errorf("%w: %w", ErrSink, err)
	}

	return written, nil
}

// rowValue converts one row into the map form the generic writer expects,
// omitting null values so optional columns encode as nulls.
func rowValue(schema *table.Schema, row table.Row) map[string]any {
	out := make(map[string]any, len(row))

	for i, f := range schema.Fields() {
		v := row[i]
		if v == nil {
			continue
		}

		if f.Type.Kind == table.KindStruct {
			if m, ok := v.(map[string]any); ok {
				out[f.Name] = structValue(f.Type, m)
			}

			continue
		}

		out[f.Name] = v
	}

	return out
}

func structValue(typ table.Type, value map[string]any) map[string]any {
	out := make(map[string]any, len(typ.Fields))

	for _, f := range typ.Fields {
		v, ok := value[f.Name]
		if !ok || v == nil {
			continue
		}

		if f.Type.Kind == table.KindStruct {
			if m, isMap := v.(map[string]any); isMap {
				out[f.Name] = structValue(f.Type, m)
			}

			continue
		}

		out[f.Name] = v
	}

	return out
}

// parquetSchemaOf maps the engine schema onto a Parquet schema. Every
// column is optional; struct columns become nested optional groups.
func parquetSchemaOf(schema *table.Schema) (*parquet.Schema, error) {
	group := parquet.Group{}

	for _, f := range schema.Fields() {
		node, err := parquetNodeOf(f.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}

		group[f.Name] = parquet.Optional(node)
	}

	return parquet.NewSchema("", group), nil
}

func parquetNodeOf(typ table.Type) (parquet.Node, error) {
	switch typ.Kind {
	case table.KindString:
		return parquet.String(), nil
	case table.KindInt64:
		return parquet.Int(64), nil
	case table.KindFloat64:
		return parquet.Leaf(parquet.DoubleType), nil
	case table.KindBool:
		return parquet.Leaf(parquet.BooleanType), nil
	case table.KindStruct:
		group := parquet.Group{}

		for _, f := range typ.Fields {
			node, err := parquetNodeOf(f.Type)
			if err != nil {
				return nil, err
			}

			group[f.Name] = parquet.Optional(node)
		}

		return group, nil
	}

	return nil, fmt.Errorf("unsupported kind %v", typ.Kind)
}

// ForceExtension rewrites path so it ends in .parquet.
func ForceExtension(path string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".parquet") {
		return path
	}

	return strings.TrimSuffix(path, ext) + ".parquet"
}
