package ml

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DataPreprocessor standardizes feature columns to zero mean and unit
// variance using statistics computed once on the training rows.
type DataPreprocessor struct {
	featureStats [][2]float64 // mean, std per column
}

func (p *DataPreprocessor) ComputeStats(features [][]float64) error {
	if len(features) == 0 {
		return errors.New("features is empty")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("features have no columns")
	}
	stats := make([][2]float64, width)
	col := make([]float64, len(features))
	for j := 0; j < width; j++ {
		for i, row := range features {
			if len(row) != width {
				return errors.Newf("row %d has %d features, expected %d", i, len(row), width)
			}
			col[i] = row[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		// constant columns and single rows are centered but not scaled
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		stats[j] = [2]float64{mean, std}
	}
	p.featureStats = stats
	return nil
}

// Normalize returns the standardized rows as an n×d matrix.
func (p *DataPreprocessor) Normalize(features [][]float64) (*mat.Dense, error) {
	if len(features) == 0 {
		return nil, errors.New("features is empty")
	}
	if p.featureStats == nil {
		return nil, errors.New("feature stats not computed")
	}
	width := len(p.featureStats)
	out := mat.NewDense(len(features), width, nil)
	for i, row := range features {
		if len(row) != width {
			return nil, errors.Newf("row %d has %d features, model expects %d", i, len(row), width)
		}
		for j, v := range row {
			s := p.featureStats[j]
			out.Set(i, j, (v-s[0])/s[1])
		}
	}
	return out, nil
}

// FeatureStats returns a copy of the per-column mean and std.
func (p *DataPreprocessor) FeatureStats() [][2]float64 {
	if p.featureStats == nil {
		return nil
	}
	return append([][2]float64(nil), p.featureStats...)
}
