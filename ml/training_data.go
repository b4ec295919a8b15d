package ml

import (
	"math"

	"github.com/cockroachdb/errors"

	"titanicml/dataset"
)

// FeatureMatrix extracts the named columns of t as a dense row-major matrix.
// Every cell must be present and numeric.
func FeatureMatrix(t *dataset.Table, columns []string) ([][]float64, error) {
	if len(columns) == 0 {
		return nil, errors.New("no feature columns")
	}
	cols := make([][]dataset.Value, len(columns))
	for j, name := range columns {
		col, ok := t.Column(name)
		if !ok {
			return nil, errors.Newf("feature column %q not found", name)
		}
		cols[j] = col
	}

	out := make([][]float64, t.Len())
	for i := range out {
		row := make([]float64, len(columns))
		for j, name := range columns {
			v := cols[j][i]
			if v.IsMissing() {
				return nil, errors.WithHintf(
					errors.Newf("feature %q has a missing value at row %d", name, i),
					"add an impute rule for %s or list it under drop", name)
			}
			f, ok := v.Float64()
			if !ok {
				return nil, errors.WithHintf(
					errors.Newf("feature %q has non-numeric value %q at row %d", name, v.String(), i),
					"encode %s or list it under drop", name)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, errors.WithHintf(
					errors.Newf("feature %q has non-finite value %v at row %d", name, f, i),
					"replace or impute the non-finite cells of %s", name)
			}
			row[j] = f
		}
		out[i] = row
	}
	return out, nil
}

// Labels extracts a 0/1 label vector from the named column.
func Labels(t *dataset.Table, column string) ([]int, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, errors.Newf("label column %q not found", column)
	}
	labels := make([]int, len(col))
	for i, v := range col {
		f, ok := v.Float64()
		if !ok || (f != 0 && f != 1) {
			return nil, errors.Newf("label %q at row %d is not 0 or 1", v.String(), i)
		}
		labels[i] = int(f)
	}
	return labels, nil
}
