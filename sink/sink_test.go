package sink_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.nomadlab.dev/datacleaner/sink"
	"go.nomadlab.dev/datacleaner/table"
)

func scalarPlan() table.Plan {
	schema := table.MustSchema(
		table.Field{Name: "name", Type: table.StringType()},
		table.Field{Name: "count", Type: table.Int64Type()},
		table.Field{Name: "score", Type: table.Float64Type()},
		table.Field{Name: "active", Type: table.BoolType()},
	)

	return table.NewLiteral(schema, []table.Row{
		{"alice", int64(3), 1.5, true},
		{nil, nil, nil, nil},
	})
}

func readRows(t *testing.T, path string) []map[string]any {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)

	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)

	pf, err := parquet.OpenFile(f, info.Size())
	require.NoError(t, err)

	reader := parquet.NewGenericReader[map[string]any](f, pf.Schema())
	defer reader.Close()

	out := make([]map[string]any, 0, pf.NumRows())
	buf := make([]map[string]any, 8)

	for {
		for i := range buf {
			buf[i] = map[string]any{}
		}

		n, err := reader.Read(buf)
		for _, row := range buf[:n] {
			out = append(out, row)
		}

		if err != nil {
			break
		}
	}

	return out
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.parquet")

	finalPath, rows, err := sink.Write(context.Background(), scalarPlan(), path, sink.Options{})
	require.NoError(t, err)
	assert.Equal(t, path, finalPath)
	assert.EqualValues(t, 2, rows)

	read := readRows(t, finalPath)
	require.Len(t, read, 2)
	assert.Equal(t, "alice", read[0]["name"])
	assert.EqualValues(t, 3, read[0]["count"])
	assert.InDelta(t, 1.5, read[0]["score"], 0.0001)
	assert.Equal(t, true, read[0]["active"])
}

func TestWriteForcesExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")

	finalPath, _, err := sink.Write(context.Background(), scalarPlan(), path, sink.Options{})
	require.NoError(t, err)
	assert.Equal(t, ".parquet", filepath.Ext(finalPath))
}

func TestWriteCreatesParentDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deep", "nested", "out.parquet")

	_, _, err := sink.Write(context.Background(), scalarPlan(), path, sink.Options{})
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestWriteRefusesOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.parquet")

	_, _, err := sink.Write(context.Background(), scalarPlan(), path, sink.Options{})
	require.NoError(t, err)

	_, _, err = sink.Write(context.Background(), scalarPlan(), path, sink.Options{})
	require.ErrorIs(t, err, sink.ErrExists)

	_, _, err = sink.Write(context.Background(), scalarPlan(), path, sink.Options{Force: true})
	require.NoError(t, err)
}

func TestWriteCompressionOptions(t *testing.T) {
	t.Parallel()

	for _, compression := range []string{"", "zstd", "snappy", "gzip", "none"} {
		path := filepath.Join(t.TempDir(), "out.parquet")

		_, rows, err := sink.Write(context.Background(), scalarPlan(), path, sink.Options{
			Compression: compression,
		})
		require.NoError(t, err, "compression %q", compression)
		assert.EqualValues(t, 2, rows)
	}
}

func TestWriteUnknownCompression(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.parquet")

	_, _, err := sink.Write(context.Background(), scalarPlan(), path, sink.Options{
		Compression: "lz77",
	})
	require.ErrorIs(t, err, sink.ErrCompression)
}

func TestWriteNestedStruct(t *testing.T) {
	t.Parallel()

	schema := table.MustSchema(
		table.Field{Name: "id", Type: table.Int64Type()},
		table.Field{Name: "additional_info", Type: table.StructType(
			table.Field{Name: "phone", Type: table.StringType()},
			table.Field{Name: "address", Type: table.StructType(
				table.Field{Name: "city", Type: table.StringType()},
			)},
		)},
	)

	plan := table.NewLiteral(schema, []table.Row{
		{int64(1), map[string]any{
			"phone":   "555",
			"address": map[string]any{"city": "riga"},
		}},
		{int64(2), nil},
	})

	path := filepath.Join(t.TempDir(), "out.parquet")

	_, rows, err := sink.Write(context.Background(), plan, path, sink.Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, rows)

	read := readRows(t, path)
	require.Len(t, read, 2)

	additional, ok := read[0]["additional_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "555", additional["phone"])
}

func TestWriteChunkCallback(t *testing.T) {
	t.Parallel()

	schema := table.MustSchema(table.Field{Name: "n", Type: table.Int64Type()})

	rows := make([]table.Row, 10)
	for i := range rows {
		rows[i] = table.Row{int64(i)}
	}

	var calls []int64

	path := filepath.Join(t.TempDir(), "out.parquet")

	_, written, err := sink.Write(context.Background(), table.NewLiteral(schema, rows), path, sink.Options{
		ChunkSize: 4,
		OnChunk: func(n int64) error {
			calls = append(calls, n)

			return nil
		},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 10, written)
	assert.NotEmpty(t, calls)
}

func TestForceExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "out.parquet", sink.ForceExtension("out.parquet"))
	assert.Equal(t, "out.parquet", sink.ForceExtension("out.csv"))
	assert.Equal(t, "out.parquet", sink.ForceExtension("out"))
	assert.Equal(t, "dir/out.PARQUET", sink.ForceExtension("dir/out.PARQUET"))
}
