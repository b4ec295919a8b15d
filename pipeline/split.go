package pipeline

import (
	"math"
	"math/rand"

	"github.com/cockroachdb/errors"
)

// Partition holds the row indices of the training and validation subsets.
type Partition struct {
	Train      []int
	Validation []int
}

// Split partitions n rows so the validation subset holds ceil(fraction*n)
// rows. The same seed always yields the same partition.
func Split(n int, fraction float64, seed int64) (Partition, error) {
	if fraction <= 0 || fraction >= 1 {
		return Partition{}, errors.Newf("validation fraction %v must be in (0, 1)", fraction)
	}
	// the epsilon keeps products like 0.7*10 from rounding up past 7
	nVal := int(math.Ceil(fraction*float64(n) - 1e-9))
	if nVal < 1 || n-nVal < 1 {
		return Partition{}, errors.WithHint(
			errors.Newf("cannot split %d rows with validation fraction %v", n, fraction),
			"both subsets need at least one row")
	}

	indices := rand.New(rand.NewSource(seed)).Perm(n)
	p := Partition{
		Validation: append([]int(nil), indices[:nVal]...),
		Train:      append([]int(nil), indices[nVal:]...),
	}
	return p, nil
}

// SelectRows picks the rows of x and y at idx, in idx order.
func SelectRows(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, r := range idx {
		xs[i] = x[r]
		ys[i] = y[r]
	}
	return xs, ys
}
