// Package infer serves single-text predictions from the artifacts produced by
// a training run. The engine has two states: Unloaded and Ready. The
// transition happens once, under a lock, on the first prediction or an
// explicit Warm call; afterwards the loaded state is immutable and reads need
// no further locking.
package infer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/dberest/veridict/internal/classify"
	"github.com/dberest/veridict/internal/feature"
	"github.com/dberest/veridict/internal/logging"
	"github.com/dberest/veridict/internal/preprocess"
	"github.com/dberest/veridict/internal/train"
)

// Canonical response labels.
const (
	LabelReal      = "REAL"
	LabelFake      = "FAKE"
	LabelUncertain = "UNCERTAIN"
)

const (
	topKeywordCount = 10
	previewLimit    = 500

	// fallbackConfidence is used when a model exposes neither a posterior
	// probability nor a decision margin.
	fallbackConfidence = 80.0
)

// ArtifactLoader is the slice of the artifact store the engine depends on.
type ArtifactLoader interface {
	Exists() bool
	Load() (classify.Classifier, *feature.Vectorizer, *train.Report, error)
}

// Keyword is one explanation entry: a term from the input and its
// contribution score.
type Keyword struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Result is a single prediction.
type Result struct {
	Label         string    `json:"label"`
	Confidence    float64   `json:"confidence"`
	ProcessedText string    `json:"processed_text"`
	ModelName     string    `json:"model_name"`
	ModelAccuracy *float64  `json:"model_accuracy"`
	TopKeywords   []Keyword `json:"top_keywords"`
	IsFake        bool      `json:"is_fake"`
}

// Engine is the lazily-loaded inference service. Safe for concurrent use.
type Engine struct {
	loader ArtifactLoader
	logger logging.Logger

	mu     sync.Mutex
	loaded bool
	model  classify.Classifier
	vec    *feature.Vectorizer
	report *train.Report
}

// NewEngine returns an engine in the Unloaded state.
func NewEngine(loader ArtifactLoader, logger logging.Logger) *Engine {
	return &Engine{loader: loader, logger: logger}
}

// Ready reports whether the artifact files are present on disk. It does not
// force a load.
func (e *Engine) Ready() bool {
	return e.loader.Exists()
}

// Warm forces the Unloaded -> Ready transition so the first request does not
// pay the load cost. Idempotent.
func (e *Engine) Warm() error {
	return e.ensureLoaded()
}

func (e *Engine) ensureLoaded() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return nil
	}
	model, vec, report, err := e.loader.Load()
	if err != nil {
		return err
	}
	// A model paired with a vectorizer from a different training run would
	// score the wrong features. Refuse to serve rather than predict garbage.
	if model.NumFeatures() != vec.Dim() {
		return fmt.Errorf("artifact mismatch: model expects %d features, vectorizer produces %d",
			model.NumFeatures(), vec.Dim())
	}
	e.model = model
	e.vec = vec
	e.report = report
	e.loaded = true
	e.logger.Info("model loaded",
		logging.Field{Key: "model", Value: model.Name()},
		logging.Field{Key: "vocabulary", Value: vec.Dim()})
	return nil
}

// Predict classifies text. It returns an error only when artifacts are
// missing; any other degradation produces a well-formed result. Empty cleaned
// input yields an UNCERTAIN result with zero confidence rather than an error,
// so callers never fail on bad-but-well-formed input.
func (e *Engine) Predict(text string) (*Result, error) {
	if err := e.ensureLoaded(); err != nil {
		return nil, err
	}

	processed := preprocess.Clean(text)
	if strings.TrimSpace(processed) == "" {
		return &Result{
			Label:         LabelUncertain,
			Confidence:    0,
			ProcessedText: "",
			ModelName:     e.modelName(),
			ModelAccuracy: e.modelAccuracy(),
			TopKeywords:   []Keyword{},
		}, nil
	}

	x, err := e.vec.TransformOne(processed)
	if err != nil {
		// The vectorizer is loaded and fitted; this is a contract violation
		// between artifacts, not a user error.
		return nil, err
	}

	class := e.model.Predict(x)
	label := LabelReal
	if class == 1 {
		label = LabelFake
	}

	return &Result{
		Label:         label,
		Confidence:    e.confidence(x, class),
		ProcessedText: truncate(processed, previewLimit),
		ModelName:     e.modelName(),
		ModelAccuracy: e.modelAccuracy(),
		TopKeywords:   e.topKeywords(x),
		IsFake:        class == 1,
	}, nil
}

// confidence derives a 0-100 score from whichever capability the model
// exposes. A posterior probability maps directly. A raw margin goes through
// sigmoid(|margin|), which lands in (50,100): a monotonic proxy, not a true
// posterior. With neither capability the fixed fallback applies.
func (e *Engine) confidence(x feature.Vector, class int) float64 {
	var conf float64
	switch m := e.model.(type) {
	case classify.ProbabilityEstimator:
		conf = m.PredictProba(x)[class] * 100
	case classify.MarginScorer:
		conf = classify.Sigmoid(math.Abs(m.DecisionFunction(x))) * 100
	default:
		conf = fallbackConfidence
	}
	conf = math.Min(math.Max(conf, 0), 100)
	return math.Round(conf*10) / 10
}

// topKeywords ranks the input's non-zero terms. When the model exposes linear
// coefficients the TF-IDF weight is combined with the coefficient magnitude;
// otherwise the TF-IDF weight alone ranks. Only positive scores survive, at
// most topKeywordCount, ordered by descending score with feature order
// breaking ties.
func (e *Engine) topKeywords(x feature.Vector) []Keyword {
	names := e.vec.FeatureNames()
	var coefs []float64
	if cm, ok := e.model.(classify.CoefficientModel); ok {
		coefs = cm.Coefficients()
	}

	type scored struct {
		pos   int
		score float64
	}
	entries := make([]scored, 0, len(x.Indices))
	for k, idx := range x.Indices {
		if idx >= len(names) {
			continue
		}
		score := x.Values[k]
		if idx < len(coefs) {
			score *= math.Abs(coefs[idx])
		}
		entries = append(entries, scored{pos: k, score: score})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})

	out := make([]Keyword, 0, topKeywordCount)
	for _, en := range entries {
		if en.score <= 0 {
			continue
		}
		out = append(out, Keyword{
			Word:  names[x.Indices[en.pos]],
			Score: math.Round(en.score*10000) / 10000,
		})
		if len(out) == topKeywordCount {
			break
		}
	}
	return out
}

func (e *Engine) modelName() string {
	if e.report != nil && e.report.BestModel != "" {
		return e.report.BestModel
	}
	if e.model != nil {
		return e.model.Name()
	}
	return "ML Classifier"
}

// modelAccuracy returns the recorded test accuracy as a 0-100 percentage, or
// nil when the metrics report is absent.
func (e *Engine) modelAccuracy() *float64 {
	if e.report == nil {
		return nil
	}
	m, ok := e.report.Models[e.report.BestModel]
	if !ok || m.Error != "" {
		return nil
	}
	v := math.Round(m.Accuracy*1000) / 10
	return &v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
