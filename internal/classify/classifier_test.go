package classify_test

import (
	"math"
	"testing"

	"github.com/dberest/veridict/internal/classify"
	"github.com/dberest/veridict/internal/feature"
)

// toyCorpus builds a linearly separable corpus over 4 features: class 0
// activates features 0 and 1, class 1 activates features 2 and 3. Small value
// jitter keeps the samples from being byte-identical.
func toyCorpus(perClass int) ([]feature.Vector, []int) {
	var X []feature.Vector
	var y []int
	for i := 0; i < perClass; i++ {
		j := 0.9 + 0.01*float64(i%10)
		X = append(X, feature.Vector{Indices: []int{0, 1}, Values: []float64{0.7 * j, 0.7 * j}})
		y = append(y, 0)
		X = append(X, feature.Vector{Indices: []int{2, 3}, Values: []float64{0.7 * j, 0.7 * j}})
		y = append(y, 1)
	}
	return X, y
}

var (
	realProbe = feature.Vector{Indices: []int{0, 1}, Values: []float64{0.7, 0.7}}
	fakeProbe = feature.Vector{Indices: []int{2, 3}, Values: []float64{0.7, 0.7}}
)

func bank(t *testing.T) []classify.Classifier {
	t.Helper()
	return []classify.Classifier{
		classify.NewLogisticRegression(4, 42),
		classify.NewMultinomialNB(4, 0.1),
		classify.NewRandomForest(4, 42),
		classify.NewCalibratedSVM(4, 42),
	}
}

func TestClassifiersLearnSeparableData(t *testing.T) {
	X, y := toyCorpus(20)
	for _, clf := range bank(t) {
		t.Run(clf.Name(), func(t *testing.T) {
			if err := clf.Fit(X, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			if got := clf.Predict(realProbe); got != 0 {
				t.Errorf("Predict(real probe) = %d, want 0", got)
			}
			if got := clf.Predict(fakeProbe); got != 1 {
				t.Errorf("Predict(fake probe) = %d, want 1", got)
			}
		})
	}
}

func TestClassifiersRejectBadInput(t *testing.T) {
	X, y := toyCorpus(5)
	for _, clf := range bank(t) {
		t.Run(clf.Name(), func(t *testing.T) {
			if err := clf.Fit(nil, nil); err == nil {
				t.Error("Fit(nil, nil) should fail")
			}
			if err := clf.Fit(X, y[:len(y)-1]); err == nil {
				t.Error("Fit with mismatched lengths should fail")
			}
		})
	}
}

func TestProbabilitiesSumToOne(t *testing.T) {
	X, y := toyCorpus(20)
	for _, clf := range bank(t) {
		pe, ok := clf.(classify.ProbabilityEstimator)
		if !ok {
			continue
		}
		t.Run(clf.Name(), func(t *testing.T) {
			if err := clf.Fit(X, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			for _, probe := range []feature.Vector{realProbe, fakeProbe} {
				p := pe.PredictProba(probe)
				if math.Abs(p[0]+p[1]-1) > 1e-9 {
					t.Errorf("probabilities sum to %f, want 1", p[0]+p[1])
				}
				if p[0] < 0 || p[1] < 0 {
					t.Errorf("negative probability: %v", p)
				}
			}
			if p := pe.PredictProba(fakeProbe); p[1] <= 0.5 {
				t.Errorf("PredictProba(fake probe)[1] = %f, want > 0.5", p[1])
			}
		})
	}
}

func TestLinearSVMMarginSign(t *testing.T) {
	X, y := toyCorpus(20)
	svm := classify.NewLinearSVM(4, 42)
	if err := svm.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m := svm.DecisionFunction(fakeProbe); m <= 0 {
		t.Errorf("DecisionFunction(fake probe) = %f, want > 0", m)
	}
	if m := svm.DecisionFunction(realProbe); m >= 0 {
		t.Errorf("DecisionFunction(real probe) = %f, want < 0", m)
	}
}

func TestCoefficientsPointAtFakeFeatures(t *testing.T) {
	X, y := toyCorpus(20)
	models := []classify.Classifier{
		classify.NewLogisticRegression(4, 42),
		classify.NewMultinomialNB(4, 0.1),
		classify.NewCalibratedSVM(4, 42),
	}
	for _, clf := range models {
		t.Run(clf.Name(), func(t *testing.T) {
			if err := clf.Fit(X, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			cm := clf.(classify.CoefficientModel)
			coefs := cm.Coefficients()
			if len(coefs) != 4 {
				t.Fatalf("len(Coefficients()) = %d, want 4", len(coefs))
			}
			// Features 2 and 3 belong to the fake class.
			if coefs[2] <= coefs[0] || coefs[3] <= coefs[1] {
				t.Errorf("fake-class coefficients not dominant: %v", coefs)
			}
		})
	}
}

func TestFitDeterministicForSeed(t *testing.T) {
	X, y := toyCorpus(20)
	a := classify.NewLogisticRegression(4, 7)
	b := classify.NewLogisticRegression(4, 7)
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("Fit a: %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit b: %v", err)
	}
	for i := range a.Weights {
		if a.Weights[i] != b.Weights[i] {
			t.Fatalf("Weights[%d] differ: %f vs %f", i, a.Weights[i], b.Weights[i])
		}
	}
	if a.Bias != b.Bias {
		t.Errorf("Bias differs: %f vs %f", a.Bias, b.Bias)
	}
}

func TestSigmoid(t *testing.T) {
	if got := classify.Sigmoid(0); got != 0.5 {
		t.Errorf("Sigmoid(0) = %f, want 0.5", got)
	}
	if got := classify.Sigmoid(2); math.Abs(got-0.8808) > 0.001 {
		t.Errorf("Sigmoid(2) = %f, want ~0.8808", got)
	}
	if got := classify.Sigmoid(50); got <= 0.999 {
		t.Errorf("Sigmoid(50) = %f, want ~1", got)
	}
	if got := classify.Sigmoid(-50); got >= 0.001 {
		t.Errorf("Sigmoid(-50) = %f, want ~0", got)
	}
}
