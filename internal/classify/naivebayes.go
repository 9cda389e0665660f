package classify

import (
	"errors"
	"math"

	"github.com/dberest/veridict/internal/feature"
)

// MultinomialNB is a multinomial naive Bayes classifier with additive
// smoothing. TF-IDF values act as fractional event counts, which works well in
// practice for text even though the model assumes integer counts.
type MultinomialNB struct {
	Dim   int
	Alpha float64

	ClassLogPrior  [2]float64
	FeatureLogProb [2][]float64
}

// NewMultinomialNB returns an untrained model with smoothing alpha.
func NewMultinomialNB(dim int, alpha float64) *MultinomialNB {
	if alpha <= 0 {
		alpha = 0.1
	}
	return &MultinomialNB{Dim: dim, Alpha: alpha}
}

func (m *MultinomialNB) Name() string { return "Naive Bayes" }

func (m *MultinomialNB) NumFeatures() int { return m.Dim }

func (m *MultinomialNB) Fit(X []feature.Vector, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("naivebayes: empty or mismatched training data")
	}

	var classCount [2]float64
	sums := [2][]float64{make([]float64, m.Dim), make([]float64, m.Dim)}
	for i, x := range X {
		c := y[i]
		classCount[c]++
		for k, idx := range x.Indices {
			if idx < m.Dim {
				sums[c][idx] += x.Values[k]
			}
		}
	}

	n := classCount[0] + classCount[1]
	for c := 0; c < 2; c++ {
		if classCount[c] == 0 {
			return errors.New("naivebayes: training data missing a class")
		}
		m.ClassLogPrior[c] = math.Log(classCount[c] / n)

		var total float64
		for _, s := range sums[c] {
			total += s
		}
		denom := math.Log(total + m.Alpha*float64(m.Dim))
		m.FeatureLogProb[c] = make([]float64, m.Dim)
		for j := 0; j < m.Dim; j++ {
			m.FeatureLogProb[c][j] = math.Log(sums[c][j]+m.Alpha) - denom
		}
	}
	return nil
}

// jointLogLikelihood returns the unnormalized class log-scores.
func (m *MultinomialNB) jointLogLikelihood(x feature.Vector) [2]float64 {
	var jll [2]float64
	for c := 0; c < 2; c++ {
		jll[c] = m.ClassLogPrior[c] + x.Dot(m.FeatureLogProb[c])
	}
	return jll
}

func (m *MultinomialNB) Predict(x feature.Vector) int {
	jll := m.jointLogLikelihood(x)
	if jll[1] > jll[0] {
		return 1
	}
	return 0
}

func (m *MultinomialNB) PredictProba(x feature.Vector) [2]float64 {
	jll := m.jointLogLikelihood(x)
	// Softmax in log space for numeric stability.
	mx := math.Max(jll[0], jll[1])
	e0 := math.Exp(jll[0] - mx)
	e1 := math.Exp(jll[1] - mx)
	return [2]float64{e0 / (e0 + e1), e1 / (e0 + e1)}
}

// Coefficients returns the per-feature log-probability ratio FAKE vs REAL.
// A positive entry means the term pulls toward FAKE.
func (m *MultinomialNB) Coefficients() []float64 {
	out := make([]float64, m.Dim)
	for j := 0; j < m.Dim; j++ {
		out[j] = m.FeatureLogProb[1][j] - m.FeatureLogProb[0][j]
	}
	return out
}

var (
	_ Classifier           = (*MultinomialNB)(nil)
	_ ProbabilityEstimator = (*MultinomialNB)(nil)
	_ CoefficientModel     = (*MultinomialNB)(nil)
)
