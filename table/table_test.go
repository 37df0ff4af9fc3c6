package table_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.nomadlab.dev/datacleaner/table"
)

func TestNewSchemaRejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := table.NewSchema(
		table.Field{Name: "a", Type: table.StringType()},
		table.Field{Name: "a", Type: table.Int64Type()},
	)
	require.ErrorIs(t, err, table.ErrDuplicateColumn)
}

func TestSchemaLookup(t *testing.T) {
	t.Parallel()

	schema := table.MustSchema(
		table.Field{Name: "id", Type: table.Int64Type()},
		table.Field{Name: "name", Type: table.StringType()},
	)

	assert.Equal(t, 2, schema.Len())
	assert.Equal(t, 0, schema.Index("id"))
	assert.Equal(t, -1, schema.Index("missing"))
	assert.True(t, schema.Has("name"))
	assert.Equal(t, []string{"id", "name"}, schema.Names())
}

func TestTypeString(t *testing.T) {
	t.Parallel()

	typ := table.StructType(
		table.Field{Name: "phone", Type: table.StringType()},
		table.Field{Name: "address", Type: table.StructType(
			table.Field{Name: "city", Type: table.StringType()},
		)},
	)

	assert.Equal(t, "struct{phone string, address struct{city string}}", typ.String())
}

func TestTransformPlan(t *testing.T) {
	t.Parallel()

	in := table.MustSchema(table.Field{Name: "n", Type: table.Int64Type()})
	plan := table.NewLiteral(in, []table.Row{{int64(1)}, {int64(2)}})

	out := table.MustSchema(table.Field{Name: "n", Type: table.Int64Type()})
	doubled := table.NewTransform(plan, out, func(row table.Row) table.Row {
		return table.Row{row[0].(int64) * 2}
	})

	// Schema is known without executing the plan.
	assert.Equal(t, []string{"n"}, doubled.Schema().Names())

	rows, err := table.Collect(context.Background(), doubled)
	require.NoError(t, err)
	assert.Equal(t, []table.Row{{int64(2)}, {int64(4)}}, rows)
}

func TestFilterPlan(t *testing.T) {
	t.Parallel()

	in := table.MustSchema(table.Field{Name: "n", Type: table.Int64Type()})
	plan := table.NewLiteral(in, []table.Row{{int64(1)}, {nil}, {int64(3)}})

	filtered := table.NewFilter(plan, func(row table.Row) bool {
		return row[0] != nil
	})

	rows, err := table.Collect(context.Background(), filtered)
	require.NoError(t, err)
	assert.Equal(t, []table.Row{{int64(1)}, {int64(3)}}, rows)
}

func TestPlanReopen(t *testing.T) {
	t.Parallel()

	in := table.MustSchema(table.Field{Name: "n", Type: table.Int64Type()})
	plan := table.NewLiteral(in, []table.Row{{int64(1)}})

	for range 2 {
		rows, err := table.Collect(context.Background(), plan)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	}
}
