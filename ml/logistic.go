package ml

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ConvergenceError reports that gradient descent stopped before the gradient
// fell below tolerance. The model keeps the lowest-loss iterate, which is
// usable unless Unusable reports otherwise; callers decide whether the
// rest is fatal.
type ConvergenceError struct {
	Iterations int
	GradNorm   float64
	Diverged   bool
	// BestLoss is the loss of the kept iterate; +Inf when no iterate had a
	// finite loss.
	BestLoss float64
}

// Unusable reports that training diverged before any finite iterate, leaving
// only the untrained starting weights.
func (e *ConvergenceError) Unusable() bool {
	return e.Diverged && math.IsInf(e.BestLoss, 1)
}

func (e *ConvergenceError) Error() string {
	if e.Diverged {
		return fmt.Sprintf("logistic regression diverged after %d iterations", e.Iterations)
	}
	return fmt.Sprintf("logistic regression did not converge in %d iterations (gradient norm %.3g)", e.Iterations, e.GradNorm)
}

// TrainingConfig holds the optimizer settings.
type TrainingConfig struct {
	MaxIter      int
	LearningRate float64
	// C is the inverse L2 regularization strength; the penalty is ‖w‖²/(2·C·n).
	C         float64
	Tolerance float64
	Threshold float64
}

var _ ProbabilisticModel = (*LogisticRegression)(nil)

// LogisticRegression is a binary classifier fitted with full-batch gradient
// descent on standardized features.
type LogisticRegression struct {
	config       TrainingConfig
	preprocessor DataPreprocessor
	weights      *mat.VecDense
	bias         float64
	iterations   int
	loss         float64
	converged    bool
}

func NewLogisticRegression(config TrainingConfig) *LogisticRegression {
	if config.MaxIter <= 0 {
		config.MaxIter = 1000
	}
	if config.LearningRate <= 0 {
		config.LearningRate = 0.5
	}
	if config.C <= 0 {
		config.C = 1
	}
	if config.Tolerance <= 0 {
		config.Tolerance = 1e-4
	}
	if config.Threshold <= 0 || config.Threshold >= 1 {
		config.Threshold = 0.5
	}
	return &LogisticRegression{config: config}
}

// Train fits the model. A *ConvergenceError return still leaves a trained model.
func (m *LogisticRegression) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.Newf("features and labels size mismatch: %d vs %d", len(features), len(labels))
	}
	for i, l := range labels {
		if l != 0 && l != 1 {
			return errors.Newf("label %d at row %d is not binary", l, i)
		}
	}
	if err := m.preprocessor.ComputeStats(features); err != nil {
		return err
	}
	x, err := m.preprocessor.Normalize(features)
	if err != nil {
		return err
	}

	n, d := x.Dims()
	y := mat.NewVecDense(n, nil)
	for i, l := range labels {
		y.SetVec(i, float64(l))
	}
	lambda := 1 / (m.config.C * float64(n))
	lr := m.config.LearningRate

	w := mat.NewVecDense(d, nil)
	var b float64
	bestW := mat.NewVecDense(d, nil)
	bestB, bestLoss := 0.0, math.Inf(1)

	z := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(d, nil)

	var gradNorm float64
	for iter := 1; iter <= m.config.MaxIter; iter++ {
		z.MulVec(x, w)
		var loss float64
		for i := 0; i < n; i++ {
			zi := z.AtVec(i) + b
			loss += softplus(zi) - y.AtVec(i)*zi
			resid.SetVec(i, sigmoid(zi)-y.AtVec(i))
		}
		loss = loss/float64(n) + lambda/2*mat.Dot(w, w)

		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			m.setState(bestW, bestB, bestLoss, iter, false)
			return &ConvergenceError{Iterations: iter, GradNorm: gradNorm, Diverged: true, BestLoss: bestLoss}
		}
		if loss < bestLoss {
			bestW.CopyVec(w)
			bestB, bestLoss = b, loss
		}

		grad.MulVec(x.T(), resid)
		grad.ScaleVec(1/float64(n), grad)
		grad.AddScaledVec(grad, lambda, w)
		gb := floats.Sum(resid.RawVector().Data) / float64(n)

		gradNorm = math.Max(mat.Norm(grad, math.Inf(1)), math.Abs(gb))
		if gradNorm < m.config.Tolerance {
			m.setState(w, b, loss, iter, true)
			return nil
		}

		w.AddScaledVec(w, -lr, grad)
		b -= lr * gb
	}

	m.setState(bestW, bestB, bestLoss, m.config.MaxIter, false)
	return &ConvergenceError{Iterations: m.config.MaxIter, GradNorm: gradNorm, BestLoss: bestLoss}
}

func (m *LogisticRegression) setState(w *mat.VecDense, b, loss float64, iterations int, converged bool) {
	m.weights = mat.VecDenseCopyOf(w)
	m.bias = b
	m.loss = loss
	m.iterations = iterations
	m.converged = converged
}

// PredictProba returns p(y=1) for each row.
func (m *LogisticRegression) PredictProba(features [][]float64) ([]float64, error) {
	if m.weights == nil {
		return nil, errors.New("model not trained")
	}
	if len(features) == 0 {
		return nil, nil
	}
	x, err := m.preprocessor.Normalize(features)
	if err != nil {
		return nil, err
	}
	n, _ := x.Dims()
	z := mat.NewVecDense(n, nil)
	z.MulVec(x, m.weights)
	out := make([]float64, n)
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + m.bias)
	}
	return out, nil
}

// Predict returns 0/1 labels using the configured probability threshold.
func (m *LogisticRegression) Predict(features [][]float64) ([]int, error) {
	proba, err := m.PredictProba(features)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= m.config.Threshold {
			out[i] = 1
		}
	}
	return out, nil
}

// Weights returns the coefficients in standardized feature space.
func (m *LogisticRegression) Weights() []float64 {
	if m.weights == nil {
		return nil
	}
	return append([]float64(nil), m.weights.RawVector().Data...)
}

func (m *LogisticRegression) Bias() float64 { return m.bias }

func (m *LogisticRegression) Iterations() int { return m.iterations }

func (m *LogisticRegression) Converged() bool { return m.converged }

// Loss is the regularized mean log-loss of the kept iterate.
func (m *LogisticRegression) Loss() float64 { return m.loss }

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1+e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
