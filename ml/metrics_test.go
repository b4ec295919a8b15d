package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]int{1, 0, 1, 1}, []int{1, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.75, acc)

	acc, err = Accuracy(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, acc)

	_, err = Accuracy([]int{1}, []int{1, 0})
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	m, err := Evaluate([]int{1, 1, 0, 0, 1}, []int{1, 0, 0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 5, m.Rows)
	assert.InDelta(t, 0.6, m.Accuracy, 1e-12)
	assert.InDelta(t, 2.0/3, m.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, m.Recall, 1e-12)
	assert.InDelta(t, 2.0/3, m.F1, 1e-12)

	m, err = Evaluate([]int{0, 0}, []int{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Equal(t, 0.0, m.Precision)
	assert.Equal(t, 0.0, m.F1)
}
