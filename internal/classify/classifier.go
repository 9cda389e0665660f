// Package classify implements the binary classifier bank trained over TF-IDF
// features. Class encoding is fixed across the system: 0 = REAL, 1 = FAKE.
//
// Every classifier exposes Predict. Confidence derivation is a capability:
// probabilistic models implement ProbabilityEstimator, margin models implement
// MarginScorer. Callers dispatch on the interface, never on both at once.
package classify

import (
	"math"

	"github.com/dberest/veridict/internal/feature"
)

// Classifier is the uniform surface every bank variant implements.
type Classifier interface {
	Name() string
	// NumFeatures is the feature-space width the model was built for. It
	// must match the vectorizer vocabulary the model is paired with.
	NumFeatures() int
	Fit(X []feature.Vector, y []int) error
	Predict(x feature.Vector) int
}

// ProbabilityEstimator yields a posterior [p_real, p_fake] for an input.
type ProbabilityEstimator interface {
	PredictProba(x feature.Vector) [2]float64
}

// MarginScorer yields a signed decision margin. Positive margins point at the
// FAKE class. Margins are not probabilities.
type MarginScorer interface {
	DecisionFunction(x feature.Vector) float64
}

// CoefficientModel exposes per-feature linear weights, used by the inference
// engine to rank explanation keywords. Not every variant has coefficients.
type CoefficientModel interface {
	Coefficients() []float64
}

// Sigmoid maps a real score into (0, 1).
func Sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// balancedWeights computes per-class sample weights n/(2*n_c) so a skewed
// label distribution does not drown out the minority class.
func balancedWeights(y []int) [2]float64 {
	var counts [2]int
	for _, c := range y {
		counts[c]++
	}
	n := float64(len(y))
	w := [2]float64{1, 1}
	for c := 0; c < 2; c++ {
		if counts[c] > 0 {
			w[c] = n / (2 * float64(counts[c]))
		}
	}
	return w
}
