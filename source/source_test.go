package source_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.nomadlab.dev/datacleaner/source"
	"go.nomadlab.dev/datacleaner/table"
	"go.nomadlab.dev/datacleaner/tabletest"
)

func TestOpenCSVInfersTypes(t *testing.T) {
	t.Parallel()

	path := tabletest.WriteCSV(t, "input.csv",
		"id,score,active,name",
		"1,1.5,true,alice",
		"2,2.5,false,bob",
	)

	plan, err := source.Open(path, source.Options{})
	require.NoError(t, err)

	fields := plan.Schema().Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, table.KindInt64, fields[0].Type.Kind)
	assert.Equal(t, table.KindFloat64, fields[1].Type.Kind)
	assert.Equal(t, table.KindBool, fields[2].Type.Kind)
	assert.Equal(t, table.KindString, fields[3].Type.Kind)

	rows, err := table.Collect(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, table.Row{int64(1), 1.5, true, "alice"}, rows[0])
}

func TestOpenCSVMixedTypesWidenToString(t *testing.T) {
	t.Parallel()

	path := tabletest.WriteCSV(t, "input.csv",
		"v",
		"1",
		"x",
	)

	plan, err := source.Open(path, source.Options{})
	require.NoError(t, err)
	assert.Equal(t, table.KindString, plan.Schema().Field(0).Type.Kind)
}

func TestOpenCSVNullTokens(t *testing.T) {
	t.Parallel()

	path := tabletest.WriteCSV(t, "input.csv",
		"a,b",
		"NULL,1",
		"nan,2",
		"x,3",
	)

	plan, err := source.Open(path, source.Options{})
	require.NoError(t, err)

	rows, err := table.Collect(context.Background(), plan)
	require.NoError(t, err)
	assert.Nil(t, rows[0][0])
	assert.Nil(t, rows[1][0])
	assert.Equal(t, "x", rows[2][0])
}

func TestOpenCSVRaggedRows(t *testing.T) {
	t.Parallel()

	path := tabletest.WriteCSV(t, "input.csv",
		"a,b,c",
		"1,2,3,4",
		"5",
	)

	plan, err := source.Open(path, source.Options{})
	require.NoError(t, err)

	rows, err := table.Collect(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Extras truncated, missing padded with null.
	assert.Equal(t, table.Row{int64(1), int64(2), int64(3)}, rows[0])
	assert.Equal(t, table.Row{int64(5), nil, nil}, rows[1])
}

func TestOpenCSVHeaderTrimming(t *testing.T) {
	t.Parallel()

	path := tabletest.WriteCSV(t, "input.csv",
		`"  id  ", name ,`,
		"1,x,y",
	)

	plan, err := source.Open(path, source.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "column_2"}, plan.Schema().Names())
}

func TestOpenCSVDuplicateHeaders(t *testing.T) {
	t.Parallel()

	path := tabletest.WriteCSV(t, "input.csv",
		"a,a",
		"1,2",
	)

	_, err := source.Open(path, source.Options{})
	require.ErrorIs(t, err, source.ErrInvalidSchema)
}

func TestOpenCSVStripsEmbeddedQuotes(t *testing.T) {
	t.Parallel()

	path := tabletest.WriteCSV(t, "input.csv",
		"name",
		`ali"ce`,
	)

	plan, err := source.Open(path, source.Options{})
	require.NoError(t, err)

	rows, err := table.Collect(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "alice", rows[0][0])
}

func TestOpenCSVCustomDelimiter(t *testing.T) {
	t.Parallel()

	path := tabletest.WriteCSV(t, "input.csv",
		"a;b",
		"1;2",
	)

	plan, err := source.Open(path, source.Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, plan.Schema().Names())
}

func TestOpenCSVUnknownEncoding(t *testing.T) {
	t.Parallel()

	path := tabletest.WriteCSV(t, "input.csv", "a", "1")

	_, err := source.Open(path, source.Options{Encoding: "no-such-encoding"})
	require.ErrorIs(t, err, source.ErrDecode)
}

func TestOpenCSVNamedEncoding(t *testing.T) {
	t.Parallel()

	// "пример" in windows-1251.
	content := append([]byte("name\n"), 0xEF, 0xF0, 0xE8, 0xEC, 0xE5, 0xF0, '\n')
	path := tabletest.WriteFile(t, "input.csv", content)

	plan, err := source.Open(path, source.Options{Encoding: "windows-1251"})
	require.NoError(t, err)

	rows, err := table.Collect(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "пример", rows[0][0])
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	_, err := source.Open("/does/not/exist.csv", source.Options{})
	require.ErrorIs(t, err, source.ErrIO)
}

func TestOpenCSVBatchesByChunkSize(t *testing.T) {
	t.Parallel()

	path := tabletest.WriteCSV(t, "input.csv",
		"n",
		"1", "2", "3", "4", "5",
	)

	plan, err := source.Open(path, source.Options{ChunkSize: 2})
	require.NoError(t, err)

	cur, err := plan.Open(context.Background())
	require.NoError(t, err)

	defer cur.Close()

	var sizes []int

	for {
		batch, err := cur.Next(context.Background())
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		sizes = append(sizes, batch.Len())
	}

	assert.Equal(t, []int{2, 2, 1}, sizes)
}
