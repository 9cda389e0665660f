package infer_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/dberest/veridict/internal/classify"
	"github.com/dberest/veridict/internal/feature"
	"github.com/dberest/veridict/internal/infer"
	"github.com/dberest/veridict/internal/preprocess"
	"github.com/dberest/veridict/internal/testutil"
	"github.com/dberest/veridict/internal/train"
)

// stubLoader implements infer.ArtifactLoader with in-memory artifacts.
type stubLoader struct {
	model  classify.Classifier
	vec    *feature.Vectorizer
	report *train.Report
	err    error
	loads  int
}

func (l *stubLoader) Exists() bool { return l.err == nil }

func (l *stubLoader) Load() (classify.Classifier, *feature.Vectorizer, *train.Report, error) {
	l.loads++
	if l.err != nil {
		return nil, nil, nil, l.err
	}
	return l.model, l.vec, l.report, nil
}

var trainingDocs = []string{
	"officials announced the quarterly budget report",
	"government confirmed the economic policy review",
	"committee approved the infrastructure funding plan",
	"shocking secret miracle cure exposed tonight",
	"unbelievable conspiracy hoax revealed by insider",
	"banned truth they desperately hide from you",
}

var trainingLabels = []int{0, 0, 0, 1, 1, 1}

func trainedLoader(t *testing.T, model classify.Classifier) *stubLoader {
	t.Helper()
	cleaned := make([]string, len(trainingDocs))
	for i, d := range trainingDocs {
		cleaned[i] = preprocess.Clean(d)
	}

	vec := feature.NewVectorizer(1000, 1)
	if err := vec.Fit(cleaned); err != nil {
		t.Fatalf("Fit vectorizer: %v", err)
	}
	X, err := vec.Transform(cleaned)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if model == nil {
		model = classify.NewLogisticRegression(vec.Dim(), 42)
	}
	if err := model.Fit(X, trainingLabels); err != nil {
		t.Fatalf("Fit model: %v", err)
	}

	return &stubLoader{
		model: model,
		vec:   vec,
		report: &train.Report{
			BestModel: model.Name(),
			Models: map[string]train.ModelMetrics{
				model.Name(): {Accuracy: 0.925},
			},
		},
	}
}

func TestPredictLabels(t *testing.T) {
	engine := infer.NewEngine(trainedLoader(t, nil), &testutil.DummyLogger{})

	tests := []struct {
		name string
		text string
		want string
	}{
		{"real text", "officials announced the quarterly budget report", infer.LabelReal},
		{"fake text", "shocking secret miracle cure exposed tonight", infer.LabelFake},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Predict(tt.text)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if res.Label != tt.want {
				t.Errorf("Label = %q, want %q", res.Label, tt.want)
			}
			if res.IsFake != (res.Label == infer.LabelFake) {
				t.Errorf("IsFake = %v inconsistent with label %q", res.IsFake, res.Label)
			}
			if res.Confidence < 0 || res.Confidence > 100 {
				t.Errorf("Confidence = %f, want in [0, 100]", res.Confidence)
			}
			// One decimal place.
			if math.Abs(res.Confidence*10-math.Round(res.Confidence*10)) > 1e-9 {
				t.Errorf("Confidence = %f not rounded to one decimal", res.Confidence)
			}
		})
	}
}

func TestPredictEmptyAfterCleaning(t *testing.T) {
	engine := infer.NewEngine(trainedLoader(t, nil), &testutil.DummyLogger{})

	for _, text := range []string{"", "!!! ???", "123 456", "a b c"} {
		res, err := engine.Predict(text)
		if err != nil {
			t.Fatalf("Predict(%q): %v", text, err)
		}
		if res.Label != infer.LabelUncertain {
			t.Errorf("Predict(%q).Label = %q, want UNCERTAIN", text, res.Label)
		}
		if res.Confidence != 0 {
			t.Errorf("Predict(%q).Confidence = %f, want 0", text, res.Confidence)
		}
		if res.IsFake {
			t.Errorf("Predict(%q).IsFake = true, want false", text)
		}
	}
}

func TestPredictKeywords(t *testing.T) {
	engine := infer.NewEngine(trainedLoader(t, nil), &testutil.DummyLogger{})

	res, err := engine.Predict("shocking secret miracle cure exposed tonight")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(res.TopKeywords) == 0 {
		t.Fatal("no keywords returned for in-vocabulary input")
	}
	if len(res.TopKeywords) > 10 {
		t.Errorf("got %d keywords, want at most 10", len(res.TopKeywords))
	}
	for i, kw := range res.TopKeywords {
		if kw.Score <= 0 {
			t.Errorf("keyword %q has non-positive score %f", kw.Word, kw.Score)
		}
		if i > 0 && kw.Score > res.TopKeywords[i-1].Score {
			t.Errorf("keywords not sorted by descending score at %d", i)
		}
	}
}

func TestPredictMarginModelConfidence(t *testing.T) {
	engine := infer.NewEngine(trainedLoaderSVM(t), &testutil.DummyLogger{})

	res, err := engine.Predict("shocking secret miracle cure exposed tonight")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// A sigmoid-mapped margin lands strictly inside (50, 100).
	if res.Confidence <= 50 || res.Confidence >= 100 {
		t.Errorf("margin confidence = %f, want in (50, 100)", res.Confidence)
	}
}

func trainedLoaderSVM(t *testing.T) *stubLoader {
	t.Helper()
	cleaned := make([]string, len(trainingDocs))
	for i, d := range trainingDocs {
		cleaned[i] = preprocess.Clean(d)
	}
	vec := feature.NewVectorizer(1000, 1)
	if err := vec.Fit(cleaned); err != nil {
		t.Fatalf("Fit vectorizer: %v", err)
	}
	X, err := vec.Transform(cleaned)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	svm := classify.NewLinearSVM(vec.Dim(), 42)
	if err := svm.Fit(X, trainingLabels); err != nil {
		t.Fatalf("Fit svm: %v", err)
	}
	return &stubLoader{model: svm, vec: vec, report: &train.Report{BestModel: svm.Name()}}
}

func TestPredictRejectsMismatchedArtifacts(t *testing.T) {
	loader := trainedLoader(t, nil)

	// A model from a different training run, fitted over a smaller
	// vocabulary than the loader's vectorizer.
	small := []string{"officials announced budget", "shocking secret cure"}
	smallVec := feature.NewVectorizer(1000, 1)
	if err := smallVec.Fit(small); err != nil {
		t.Fatalf("Fit vectorizer: %v", err)
	}
	X, err := smallVec.Transform(small)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	stale := classify.NewLogisticRegression(smallVec.Dim(), 42)
	if err := stale.Fit(X, []int{0, 1}); err != nil {
		t.Fatalf("Fit model: %v", err)
	}
	if stale.NumFeatures() == loader.vec.Dim() {
		t.Fatal("test setup produced matching dimensions")
	}
	loader.model = stale

	engine := infer.NewEngine(loader, &testutil.DummyLogger{})
	if _, err := engine.Predict("officials announced the quarterly budget report"); err == nil {
		t.Fatal("Predict accepted a model/vectorizer dimension mismatch")
	}
	if err := engine.Warm(); err == nil {
		t.Error("Warm accepted a model/vectorizer dimension mismatch")
	}
}

// fixedMarginModel always reports the same decision margin.
type fixedMarginModel struct {
	margin float64
	dim    int
}

func (m *fixedMarginModel) Name() string                      { return "Fixed Margin" }
func (m *fixedMarginModel) NumFeatures() int                  { return m.dim }
func (m *fixedMarginModel) Fit([]feature.Vector, []int) error { return nil }
func (m *fixedMarginModel) Predict(feature.Vector) int        { return 1 }
func (m *fixedMarginModel) DecisionFunction(feature.Vector) float64 {
	return m.margin
}

func TestMarginTwoMapsToExpectedConfidence(t *testing.T) {
	loader := trainedLoader(t, nil)
	loader.model = &fixedMarginModel{margin: 2.0, dim: loader.vec.Dim()}
	loader.report = &train.Report{BestModel: "Fixed Margin"}
	engine := infer.NewEngine(loader, &testutil.DummyLogger{})

	res, err := engine.Predict("officials announced the quarterly budget report")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// sigmoid(2.0) * 100, rounded to one decimal.
	if res.Confidence != 88.1 {
		t.Errorf("Confidence = %f, want 88.1", res.Confidence)
	}
}

// plainModel exposes neither probabilities nor margins.
type plainModel struct{ inner *classify.LogisticRegression }

func (m *plainModel) Name() string                          { return "Plain" }
func (m *plainModel) NumFeatures() int                      { return m.inner.Dim }
func (m *plainModel) Fit(X []feature.Vector, y []int) error { return m.inner.Fit(X, y) }
func (m *plainModel) Predict(x feature.Vector) int          { return m.inner.Predict(x) }

func TestPredictFallbackConfidence(t *testing.T) {
	cleaned := make([]string, len(trainingDocs))
	for i, d := range trainingDocs {
		cleaned[i] = preprocess.Clean(d)
	}
	vec := feature.NewVectorizer(1000, 1)
	if err := vec.Fit(cleaned); err != nil {
		t.Fatalf("Fit vectorizer: %v", err)
	}
	X, err := vec.Transform(cleaned)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	model := &plainModel{inner: classify.NewLogisticRegression(vec.Dim(), 42)}
	if err := model.Fit(X, trainingLabels); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	loader := &stubLoader{model: model, vec: vec, report: &train.Report{BestModel: "Plain"}}
	engine := infer.NewEngine(loader, &testutil.DummyLogger{})

	res, err := engine.Predict("officials announced the quarterly budget report")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.Confidence != 80.0 {
		t.Errorf("fallback confidence = %f, want 80.0", res.Confidence)
	}
}

func TestPredictModelMetadata(t *testing.T) {
	engine := infer.NewEngine(trainedLoader(t, nil), &testutil.DummyLogger{})

	res, err := engine.Predict("officials announced the quarterly budget report")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.ModelName != "Logistic Regression" {
		t.Errorf("ModelName = %q, want best model from report", res.ModelName)
	}
	if res.ModelAccuracy == nil {
		t.Fatal("ModelAccuracy nil despite metrics being present")
	}
	if *res.ModelAccuracy != 92.5 {
		t.Errorf("ModelAccuracy = %f, want 92.5", *res.ModelAccuracy)
	}
	if res.ProcessedText == "" || strings.Contains(res.ProcessedText, "THE") {
		t.Errorf("ProcessedText = %q, want cleaned text", res.ProcessedText)
	}
}

func TestLoadOnceAndFailurePropagates(t *testing.T) {
	loader := trainedLoader(t, nil)
	engine := infer.NewEngine(loader, &testutil.DummyLogger{})

	for i := 0; i < 3; i++ {
		if _, err := engine.Predict("officials announced the quarterly budget report"); err != nil {
			t.Fatalf("Predict: %v", err)
		}
	}
	if loader.loads != 1 {
		t.Errorf("artifacts loaded %d times, want 1", loader.loads)
	}

	failing := &stubLoader{err: errors.New("artifacts missing")}
	engine = infer.NewEngine(failing, &testutil.DummyLogger{})
	if engine.Ready() {
		t.Error("Ready() true for failing loader")
	}
	if _, err := engine.Predict("some text"); err == nil {
		t.Error("Predict should propagate the load error")
	}
}
