package ml

import (
	"math"
	"testing"
)

func TestDataPreprocessorNormalize(t *testing.T) {
	features := [][]float64{
		{10, 1, 5},
		{20, 1, 7},
		{30, 1, 9},
	}

	preprocessor := &DataPreprocessor{}
	if err := preprocessor.ComputeStats(features); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	x, err := preprocessor.Normalize(features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, cols := x.Dims()
	if rows != 3 || cols != 3 {
		t.Fatalf("unexpected dims %dx%d", rows, cols)
	}
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += x.At(i, j)
		}
		if math.Abs(sum) > 1e-9 {
			t.Fatalf("column %d not centered: sum %f", j, sum)
		}
	}
	if x.At(0, 0) != -1 || x.At(2, 0) != 1 {
		t.Fatalf("expected unit scaling, got %f and %f", x.At(0, 0), x.At(2, 0))
	}
	// constant column is centered, not scaled
	if x.At(1, 1) != 0 {
		t.Fatalf("expected constant column to be zero, got %f", x.At(1, 1))
	}

	stats := preprocessor.FeatureStats()
	if len(stats) != 3 || stats[0][0] != 20 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestDataPreprocessorErrors(t *testing.T) {
	preprocessor := &DataPreprocessor{}
	if _, err := preprocessor.Normalize([][]float64{{1}}); err == nil {
		t.Fatal("expected error before stats are computed")
	}
	if err := preprocessor.ComputeStats(nil); err == nil {
		t.Fatal("expected error for empty features")
	}
	if err := preprocessor.ComputeStats([][]float64{{1, 2}, {3}}); err == nil {
		t.Fatal("expected error for ragged rows")
	}
	if err := preprocessor.ComputeStats([][]float64{{1, 2}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := preprocessor.Normalize([][]float64{{1, 2, 3}}); err == nil {
		t.Fatal("expected width mismatch error")
	}
}
