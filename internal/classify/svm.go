package classify

import (
	"errors"
	"math/rand"

	"github.com/dberest/veridict/internal/feature"
)

// LinearSVM is a linear support vector machine trained with hinge-loss SGD and
// class-balanced sample weights. It exposes a decision margin, not a
// probability.
type LinearSVM struct {
	Dim     int
	Epochs  int
	Lambda  float64
	Seed    int64
	Weights []float64
	Bias    float64
}

// NewLinearSVM returns an untrained margin classifier.
func NewLinearSVM(dim int, seed int64) *LinearSVM {
	return &LinearSVM{
		Dim:    dim,
		Epochs: 50,
		Lambda: 1e-4,
		Seed:   seed,
	}
}

func (m *LinearSVM) Name() string { return "Linear SVM" }

func (m *LinearSVM) NumFeatures() int { return m.Dim }

func (m *LinearSVM) Fit(X []feature.Vector, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("svm: empty or mismatched training data")
	}
	m.Weights = make([]float64, m.Dim)
	m.Bias = 0

	cw := balancedWeights(y)
	rng := rand.New(rand.NewSource(m.Seed))
	order := rng.Perm(len(X))

	// Pegasos-style updates. The 1-lr*lambda weight decay is tracked as a
	// lazy scalar so each step only touches the sample's non-zero features.
	scale := 1.0
	step := 0
	for epoch := 0; epoch < m.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			step++
			lr := 1 / (m.Lambda * float64(step+1))
			scale *= 1 - lr*m.Lambda
			if scale < 1e-9 {
				for j := range m.Weights {
					m.Weights[j] *= scale
				}
				scale = 1
			}

			x := X[i]
			// Hinge loss works on labels in {-1, +1}.
			yi := float64(2*y[i] - 1)
			margin := yi * (scale*x.Dot(m.Weights) + m.Bias)
			if margin < 1 {
				g := lr * cw[y[i]] * yi
				for k, idx := range x.Indices {
					if idx < m.Dim {
						m.Weights[idx] += g * x.Values[k] / scale
					}
				}
				m.Bias += g
			}
		}
	}
	for j := range m.Weights {
		m.Weights[j] *= scale
	}
	return nil
}

func (m *LinearSVM) Predict(x feature.Vector) int {
	if m.DecisionFunction(x) > 0 {
		return 1
	}
	return 0
}

// DecisionFunction returns the signed margin; positive points at FAKE.
func (m *LinearSVM) DecisionFunction(x feature.Vector) float64 {
	return x.Dot(m.Weights) + m.Bias
}

// Coefficients returns the learned per-feature weights.
func (m *LinearSVM) Coefficients() []float64 { return m.Weights }

var (
	_ Classifier       = (*LinearSVM)(nil)
	_ MarginScorer     = (*LinearSVM)(nil)
	_ CoefficientModel = (*LinearSVM)(nil)
)

// CalibratedSVM wraps LinearSVM with Platt sigmoid calibration so the margin
// becomes a usable posterior. Calibration pairs come from an internal K-fold
// split of the training data only; the final reported test metrics never feed
// the calibrator.
type CalibratedSVM struct {
	Base  *LinearSVM
	Folds int
	A     float64
	B     float64
}

// NewCalibratedSVM returns an untrained calibrated classifier.
func NewCalibratedSVM(dim int, seed int64) *CalibratedSVM {
	return &CalibratedSVM{
		Base:  NewLinearSVM(dim, seed),
		Folds: 3,
	}
}

func (m *CalibratedSVM) Name() string { return "SVM (Linear)" }

func (m *CalibratedSVM) NumFeatures() int { return m.Base.Dim }

func (m *CalibratedSVM) Fit(X []feature.Vector, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("svm: empty or mismatched training data")
	}
	if len(X) < 2*m.Folds {
		return errors.New("svm: not enough samples for calibration folds")
	}

	// Out-of-fold margins are the calibration inputs.
	margins := make([]float64, len(X))
	labels := make([]int, len(X))
	rng := rand.New(rand.NewSource(m.Base.Seed))
	perm := rng.Perm(len(X))

	for f := 0; f < m.Folds; f++ {
		var trainIdx, holdIdx []int
		for pos, i := range perm {
			if pos%m.Folds == f {
				holdIdx = append(holdIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}

		foldX := make([]feature.Vector, len(trainIdx))
		foldY := make([]int, len(trainIdx))
		for k, i := range trainIdx {
			foldX[k], foldY[k] = X[i], y[i]
		}
		foldSVM := NewLinearSVM(m.Base.Dim, m.Base.Seed+int64(f)+1)
		if err := foldSVM.Fit(foldX, foldY); err != nil {
			return err
		}
		for _, i := range holdIdx {
			margins[i] = foldSVM.DecisionFunction(X[i])
			labels[i] = y[i]
		}
	}

	m.fitPlatt(margins, labels)
	return m.Base.Fit(X, y)
}

// fitPlatt fits p = 1/(1+exp(A*m+B)) by gradient descent on log-loss.
func (m *CalibratedSVM) fitPlatt(margins []float64, y []int) {
	a, b := -1.0, 0.0
	lr := 0.01
	for iter := 0; iter < 500; iter++ {
		var ga, gb float64
		for i, mg := range margins {
			p := Sigmoid(-(a*mg + b))
			diff := p - float64(y[i])
			ga += diff * -mg
			gb += diff * -1
		}
		n := float64(len(margins))
		a -= lr * ga / n
		b -= lr * gb / n
	}
	m.A, m.B = a, b
}

func (m *CalibratedSVM) calibrate(margin float64) float64 {
	return Sigmoid(-(m.A*margin + m.B))
}

func (m *CalibratedSVM) Predict(x feature.Vector) int {
	if m.PredictProba(x)[1] >= 0.5 {
		return 1
	}
	return 0
}

func (m *CalibratedSVM) PredictProba(x feature.Vector) [2]float64 {
	p := m.calibrate(m.Base.DecisionFunction(x))
	return [2]float64{1 - p, p}
}

// Coefficients exposes the underlying SVM weights for keyword ranking.
func (m *CalibratedSVM) Coefficients() []float64 { return m.Base.Coefficients() }

var (
	_ Classifier           = (*CalibratedSVM)(nil)
	_ ProbabilityEstimator = (*CalibratedSVM)(nil)
	_ CoefficientModel     = (*CalibratedSVM)(nil)
)
