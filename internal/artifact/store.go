// Package artifact owns the on-disk representation of a training run: the
// winning classifier, the fitted vectorizer and the metrics report. Inference
// only ever reads these files; training replaces them wholesale.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dberest/veridict/internal/classify"
	"github.com/dberest/veridict/internal/feature"
	"github.com/dberest/veridict/internal/logging"
	"github.com/dberest/veridict/internal/train"
)

// ErrModelNotFound signals that the classifier or vectorizer artifact is
// missing. Inference cannot proceed until a training run produces them.
var ErrModelNotFound = errors.New("artifact: no trained model found, run the trainer first")

const (
	modelFile      = "model.bin"
	vectorizerFile = "vectorizer.bin"
	metricsFile    = "metrics.json"
)

// modelEnvelope tags the serialized classifier with its concrete type so Load
// can rehydrate the right implementation.
type modelEnvelope struct {
	Type    string `msgpack:"type"`
	Payload []byte `msgpack:"payload"`
}

const (
	typeLogistic      = "logistic_regression"
	typeNaiveBayes    = "multinomial_nb"
	typeRandomForest  = "random_forest"
	typeCalibratedSVM = "calibrated_svm"
)

// Store persists artifacts under a single directory.
type Store struct {
	dir    string
	logger logging.Logger
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string, logger logging.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("artifact: dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: ensure dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Exists reports whether both the classifier and vectorizer artifacts are on
// disk. The metrics file is not required.
func (s *Store) Exists() bool {
	for _, f := range []string{modelFile, vectorizerFile} {
		if _, err := os.Stat(filepath.Join(s.dir, f)); err != nil {
			return false
		}
	}
	return true
}

// Save serializes the winning model, the vectorizer and the metrics report.
// Each file is written to a temp path and renamed so readers never observe a
// half-written artifact.
func (s *Store) Save(model classify.Classifier, vec *feature.Vectorizer, report *train.Report) error {
	env, err := wrapModel(model)
	if err != nil {
		return err
	}
	modelBytes, err := msgpack.Marshal(env)
	if err != nil {
		return fmt.Errorf("artifact: encoding model: %w", err)
	}
	vecBytes, err := msgpack.Marshal(vec)
	if err != nil {
		return fmt.Errorf("artifact: encoding vectorizer: %w", err)
	}
	reportBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encoding metrics: %w", err)
	}

	for _, f := range []struct {
		name string
		data []byte
	}{
		{modelFile, modelBytes},
		{vectorizerFile, vecBytes},
		{metricsFile, reportBytes},
	} {
		if err := s.writeAtomic(f.name, f.data); err != nil {
			return err
		}
	}
	s.logger.Info("artifacts saved",
		logging.Field{Key: "dir", Value: s.dir},
		logging.Field{Key: "model", Value: model.Name()})
	return nil
}

func (s *Store) writeAtomic(name string, data []byte) error {
	final := filepath.Join(s.dir, name)
	tmp := final + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("artifact: writing %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("artifact: writing %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("artifact: syncing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("artifact: closing %s: %w", name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("artifact: renaming %s: %w", name, err)
	}
	return nil
}

// Load reads all artifacts back. A missing classifier or vectorizer is fatal;
// a missing metrics file degrades to an empty report.
func (s *Store) Load() (classify.Classifier, *feature.Vectorizer, *train.Report, error) {
	modelBytes, err := os.ReadFile(filepath.Join(s.dir, modelFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, ErrModelNotFound
		}
		return nil, nil, nil, fmt.Errorf("artifact: reading model: %w", err)
	}
	vecBytes, err := os.ReadFile(filepath.Join(s.dir, vectorizerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, ErrModelNotFound
		}
		return nil, nil, nil, fmt.Errorf("artifact: reading vectorizer: %w", err)
	}

	var env modelEnvelope
	if err := msgpack.Unmarshal(modelBytes, &env); err != nil {
		return nil, nil, nil, fmt.Errorf("artifact: decoding model: %w", err)
	}
	model, err := unwrapModel(env)
	if err != nil {
		return nil, nil, nil, err
	}

	vec := &feature.Vectorizer{}
	if err := msgpack.Unmarshal(vecBytes, vec); err != nil {
		return nil, nil, nil, fmt.Errorf("artifact: decoding vectorizer: %w", err)
	}

	report := &train.Report{}
	reportBytes, err := os.ReadFile(filepath.Join(s.dir, metricsFile))
	switch {
	case err == nil:
		if err := json.Unmarshal(reportBytes, report); err != nil {
			s.logger.Warn("metrics file unreadable, continuing without it",
				logging.Field{Key: "error", Value: err.Error()})
			report = &train.Report{}
		}
	case os.IsNotExist(err):
		// Optional file.
	default:
		return nil, nil, nil, fmt.Errorf("artifact: reading metrics: %w", err)
	}

	return model, vec, report, nil
}

// LoadReport reads only the metrics report, without touching the model or
// vectorizer artifacts. Returns nil when the file is absent.
func (s *Store) LoadReport() (*train.Report, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, metricsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("artifact: reading metrics: %w", err)
	}
	report := &train.Report{}
	if err := json.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("artifact: decoding metrics: %w", err)
	}
	return report, nil
}

func wrapModel(model classify.Classifier) (*modelEnvelope, error) {
	var typ string
	switch model.(type) {
	case *classify.LogisticRegression:
		typ = typeLogistic
	case *classify.MultinomialNB:
		typ = typeNaiveBayes
	case *classify.RandomForest:
		typ = typeRandomForest
	case *classify.CalibratedSVM:
		typ = typeCalibratedSVM
	default:
		return nil, fmt.Errorf("artifact: unsupported model type %T", model)
	}
	payload, err := msgpack.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("artifact: encoding %s payload: %w", typ, err)
	}
	return &modelEnvelope{Type: typ, Payload: payload}, nil
}

func unwrapModel(env modelEnvelope) (classify.Classifier, error) {
	var model classify.Classifier
	switch env.Type {
	case typeLogistic:
		model = &classify.LogisticRegression{}
	case typeNaiveBayes:
		model = &classify.MultinomialNB{}
	case typeRandomForest:
		model = &classify.RandomForest{}
	case typeCalibratedSVM:
		model = &classify.CalibratedSVM{}
	default:
		return nil, fmt.Errorf("artifact: unknown model type %q", env.Type)
	}
	if err := msgpack.Unmarshal(env.Payload, model); err != nil {
		return nil, fmt.Errorf("artifact: decoding %s payload: %w", env.Type, err)
	}
	return model, nil
}
