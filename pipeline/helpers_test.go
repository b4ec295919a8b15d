package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"titanicml/dataset"
)

// table builds a table from a header and comma-separated rows.
func table(t *testing.T, header string, rows ...string) *dataset.Table {
	t.Helper()
	cols := strings.Split(header, ",")
	values := make([][]dataset.Value, len(rows))
	for i, r := range rows {
		cells := strings.Split(r, ",")
		require.Len(t, cells, len(cols), "row %d", i)
		values[i] = make([]dataset.Value, len(cells))
		for j, c := range cells {
			values[i][j] = dataset.Parse(c, dataset.DefaultMissingMarkers)
		}
	}
	tbl, err := dataset.NewTable(cols, values)
	require.NoError(t, err)
	return tbl
}

func texts(t *testing.T, tbl *dataset.Table, column string) []string {
	t.Helper()
	col, ok := tbl.Column(column)
	require.True(t, ok, "column %s", column)
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = v.String()
	}
	return out
}
