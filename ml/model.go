package ml

// MLModel is a binary classifier trained on a dense feature matrix.
type MLModel interface {
	Train(features [][]float64, labels []int) error
	Predict(features [][]float64) ([]int, error)
}

// ProbabilisticModel also exposes p(y=1) per row.
type ProbabilisticModel interface {
	MLModel
	PredictProba(features [][]float64) ([]float64, error)
}
