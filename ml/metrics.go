package ml

import "github.com/cockroachdb/errors"

// Metrics are binary classification diagnostics for the positive label 1.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	Rows      int
}

// Accuracy is the fraction of exact matches. Empty input scores 0.
func Accuracy(predicted, actual []int) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, errors.Newf("predicted has %d labels, actual has %d", len(predicted), len(actual))
	}
	if len(actual) == 0 {
		return 0, nil
	}
	var correct int
	for i := range actual {
		if predicted[i] == actual[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(actual)), nil
}

func Evaluate(predicted, actual []int) (Metrics, error) {
	accuracy, err := Accuracy(predicted, actual)
	if err != nil {
		return Metrics{}, err
	}
	m := Metrics{Accuracy: accuracy, Rows: len(actual)}

	var truePositive, predictedPositive, actualPositive int
	for i := range actual {
		if predicted[i] == 1 {
			predictedPositive++
		}
		if actual[i] == 1 {
			actualPositive++
			if predicted[i] == 1 {
				truePositive++
			}
		}
	}
	if predictedPositive > 0 {
		m.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		m.Recall = float64(truePositive) / float64(actualPositive)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}

// EvaluateModel scores the predictions of model on x against y.
func EvaluateModel(model MLModel, x [][]float64, y []int) (Metrics, error) {
	predicted, err := model.Predict(x)
	if err != nil {
		return Metrics{}, err
	}
	return Evaluate(predicted, y)
}
