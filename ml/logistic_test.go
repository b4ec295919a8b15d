package ml

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separable() ([][]float64, []int) {
	x := [][]float64{{-2, 1}, {-1.5, 0}, {-1, 1}, {-0.5, 0}, {0.5, 1}, {1, 0}, {1.5, 1}, {2, 0}}
	y := []int{0, 0, 0, 0, 1, 1, 1, 1}
	return x, y
}

func TestLogisticRegressionLearnsSeparableData(t *testing.T) {
	x, y := separable()
	model := NewLogisticRegression(TrainingConfig{MaxIter: 1000, LearningRate: 0.5, C: 1, Tolerance: 1e-6})
	require.NoError(t, model.Train(x, y))
	assert.True(t, model.Converged())
	assert.Greater(t, model.Iterations(), 0)

	pred, err := model.Predict(x)
	require.NoError(t, err)
	acc, err := Accuracy(pred, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	w := model.Weights()
	require.Len(t, w, 2)
	assert.Greater(t, w[0], 0.0)

	proba, err := model.PredictProba([][]float64{{-3, 0}, {3, 0}})
	require.NoError(t, err)
	assert.Less(t, proba[0], 0.5)
	assert.Greater(t, proba[1], 0.5)
}

func TestLogisticRegressionIterationCap(t *testing.T) {
	x, y := separable()
	model := NewLogisticRegression(TrainingConfig{MaxIter: 2, LearningRate: 0.01, C: 1, Tolerance: 1e-12})

	err := model.Train(x, y)
	var convErr *ConvergenceError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, 2, convErr.Iterations)
	assert.False(t, convErr.Diverged)
	assert.False(t, convErr.Unusable())
	assert.False(t, model.Converged())

	// best iterate is still usable
	pred, err := model.Predict(x)
	require.NoError(t, err)
	assert.Len(t, pred, len(x))
}

func TestLogisticRegressionDivergesOnNaN(t *testing.T) {
	x, y := separable()
	x[0] = []float64{math.NaN(), 1}
	model := NewLogisticRegression(TrainingConfig{})

	err := model.Train(x, y)
	var convErr *ConvergenceError
	require.True(t, errors.As(err, &convErr))
	assert.True(t, convErr.Diverged)
	assert.Equal(t, 1, convErr.Iterations)
	assert.True(t, math.IsInf(convErr.BestLoss, 1))
	assert.True(t, convErr.Unusable())
	assert.Equal(t, []float64{0, 0}, model.Weights())
}

func TestLogisticRegressionDeterministic(t *testing.T) {
	x, y := separable()
	a := NewLogisticRegression(TrainingConfig{})
	b := NewLogisticRegression(TrainingConfig{})
	require.NoError(t, a.Train(x, y))
	require.NoError(t, b.Train(x, y))
	assert.Equal(t, a.Weights(), b.Weights())
	assert.Equal(t, a.Bias(), b.Bias())
}

func TestLogisticRegressionInputErrors(t *testing.T) {
	model := NewLogisticRegression(TrainingConfig{})

	_, err := model.Predict([][]float64{{1}})
	assert.Error(t, err, "untrained model")

	assert.Error(t, model.Train(nil, nil))
	assert.Error(t, model.Train([][]float64{{1}, {2}}, []int{1}))
	assert.Error(t, model.Train([][]float64{{1}, {2}}, []int{0, 2}))

	require.NoError(t, model.Train([][]float64{{1}, {2}}, []int{0, 1}))
	_, err = model.Predict([][]float64{{1, 2}})
	assert.Error(t, err, "width mismatch")
}
