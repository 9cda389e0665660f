package classify

import (
	"errors"
	"math/rand"

	"github.com/dberest/veridict/internal/feature"
)

// LogisticRegression is an L2-regularized logistic regression trained with
// seeded SGD and class-balanced sample weights.
type LogisticRegression struct {
	Dim     int
	Epochs  int
	LR      float64
	L2      float64
	Seed    int64
	Weights []float64
	Bias    float64
}

// NewLogisticRegression returns an untrained model for the given feature
// dimensionality.
func NewLogisticRegression(dim int, seed int64) *LogisticRegression {
	return &LogisticRegression{
		Dim:    dim,
		Epochs: 50,
		LR:     0.5,
		L2:     1e-4,
		Seed:   seed,
	}
}

func (m *LogisticRegression) Name() string { return "Logistic Regression" }

func (m *LogisticRegression) NumFeatures() int { return m.Dim }

func (m *LogisticRegression) Fit(X []feature.Vector, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("logistic: empty or mismatched training data")
	}
	m.Weights = make([]float64, m.Dim)
	m.Bias = 0

	cw := balancedWeights(y)
	rng := rand.New(rand.NewSource(m.Seed))
	order := rng.Perm(len(X))

	for epoch := 0; epoch < m.Epochs; epoch++ {
		// Decaying step size keeps late epochs from oscillating.
		lr := m.LR / (1 + 0.1*float64(epoch))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for _, i := range order {
			x := X[i]
			p := Sigmoid(x.Dot(m.Weights) + m.Bias)
			g := (p - float64(y[i])) * cw[y[i]]

			for k, idx := range x.Indices {
				if idx >= m.Dim {
					continue
				}
				m.Weights[idx] -= lr * (g*x.Values[k] + m.L2*m.Weights[idx])
			}
			m.Bias -= lr * g
		}
	}
	return nil
}

func (m *LogisticRegression) Predict(x feature.Vector) int {
	if m.PredictProba(x)[1] >= 0.5 {
		return 1
	}
	return 0
}

func (m *LogisticRegression) PredictProba(x feature.Vector) [2]float64 {
	p := Sigmoid(x.Dot(m.Weights) + m.Bias)
	return [2]float64{1 - p, p}
}

// Coefficients returns the learned per-feature weights.
func (m *LogisticRegression) Coefficients() []float64 { return m.Weights }

var (
	_ Classifier           = (*LogisticRegression)(nil)
	_ ProbabilityEstimator = (*LogisticRegression)(nil)
	_ CoefficientModel     = (*LogisticRegression)(nil)
)
