// Package train runs the offline pipeline: load, preprocess, split, fit the
// vectorizer and the classifier bank, evaluate, select the winner and persist
// artifacts. It never serves live traffic; inference consumes its output.
package train

import (
	"context"
	"errors"
	"fmt"

	"github.com/dberest/veridict/internal/classify"
	"github.com/dberest/veridict/internal/config"
	"github.com/dberest/veridict/internal/dataset"
	"github.com/dberest/veridict/internal/feature"
	"github.com/dberest/veridict/internal/logging"
	"github.com/dberest/veridict/internal/preprocess"
)

// ArtifactSaver is the piece of the artifact store the trainer needs.
type ArtifactSaver interface {
	Save(model classify.Classifier, vec *feature.Vectorizer, report *Report) error
}

// Trainer orchestrates one training run.
type Trainer struct {
	cfg    config.TrainingConfig
	store  ArtifactSaver
	logger logging.Logger
}

// NewTrainer wires a trainer with its artifact store.
func NewTrainer(cfg config.TrainingConfig, store ArtifactSaver, logger logging.Logger) *Trainer {
	return &Trainer{cfg: cfg, store: store, logger: logger}
}

// bank returns the classifier variants in the fixed evaluation order that
// also decides ties during selection.
func bank(dim int, seed int64) []classify.Classifier {
	return []classify.Classifier{
		classify.NewLogisticRegression(dim, seed),
		classify.NewMultinomialNB(dim, 0.1),
		classify.NewRandomForest(dim, seed),
		classify.NewCalibratedSVM(dim, seed),
	}
}

// Run executes the full pipeline on the CSV at dataPath and returns the
// metrics report. A single failing variant is recorded and skipped; Run fails
// only when no variant could be trained.
func (t *Trainer) Run(ctx context.Context, dataPath string) (*Report, error) {
	ds, err := dataset.LoadCSV(dataPath, t.logger)
	if err != nil {
		return nil, err
	}

	t.logger.Info("preprocessing corpus", logging.Field{Key: "rows", Value: len(ds.Texts)})
	cleaned := &dataset.Dataset{
		Texts:  make([]string, len(ds.Texts)),
		Labels: ds.Labels,
	}
	for i, text := range ds.Texts {
		cleaned.Texts[i] = preprocess.Clean(text)
	}

	train, val, test, err := dataset.StratifiedSplit(cleaned,
		t.cfg.TrainRatio, t.cfg.ValRatio, t.cfg.TestRatio, t.cfg.Seed)
	if err != nil {
		return nil, err
	}
	t.logger.Info("split sizes",
		logging.Field{Key: "train", Value: len(train.Texts)},
		logging.Field{Key: "val", Value: len(val.Texts)},
		logging.Field{Key: "test", Value: len(test.Texts)})

	// The vocabulary is frozen on the training partition only. Validation,
	// test and inference text must never influence it.
	vec := feature.NewVectorizer(t.cfg.MaxFeatures, t.cfg.MinDocFreq)
	if err := vec.Fit(train.Texts); err != nil {
		return nil, err
	}
	t.logger.Info("vectorizer fitted", logging.Field{Key: "vocabulary", Value: vec.Dim()})

	xTrain, err := vec.Transform(train.Texts)
	if err != nil {
		return nil, err
	}
	xVal, err := vec.Transform(val.Texts)
	if err != nil {
		return nil, err
	}
	xTest, err := vec.Transform(test.Texts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		BestF1:    -1,
		TrainSize: len(train.Texts),
		ValSize:   len(val.Texts),
		TestSize:  len(test.Texts),
		Models:    make(map[string]ModelMetrics),
	}
	var best classify.Classifier

	for _, clf := range bank(vec.Dim(), t.cfg.Seed) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := clf.Name()
		t.logger.Info("training variant", logging.Field{Key: "model", Value: name})

		m, err := t.evaluate(clf, xTrain, train.Labels, xVal, val.Labels, xTest, test.Labels)
		if err != nil {
			t.logger.Error("variant failed",
				logging.Field{Key: "model", Value: name},
				logging.Field{Key: "error", Value: err.Error()})
			report.Models[name] = ModelMetrics{Error: err.Error()}
			continue
		}
		report.Models[name] = *m
		t.logger.Info("variant evaluated",
			logging.Field{Key: "model", Value: name},
			logging.Field{Key: "val_f1", Value: m.ValF1},
			logging.Field{Key: "test_f1", Value: m.F1Score},
			logging.Field{Key: "fake_f1", Value: m.F1FakeClass})

		// Selection uses the test-set weighted F1, with ties going to the
		// earlier-evaluated variant. Strictly-greater keeps that stable.
		if m.F1Score > report.BestF1 {
			report.BestF1 = m.F1Score
			report.BestModel = name
			best = clf
		}
	}

	if best == nil {
		return nil, errors.New("train: all classifier variants failed")
	}
	report.BestF1 = round4(report.BestF1)

	t.logger.Info("best model selected",
		logging.Field{Key: "model", Value: report.BestModel},
		logging.Field{Key: "f1", Value: report.BestF1})

	if err := t.store.Save(best, vec, report); err != nil {
		return nil, fmt.Errorf("train: persisting artifacts: %w", err)
	}
	return report, nil
}

// evaluate fits one variant and computes its validation and test metrics.
func (t *Trainer) evaluate(clf classify.Classifier,
	xTrain []feature.Vector, yTrain []int,
	xVal []feature.Vector, yVal []int,
	xTest []feature.Vector, yTest []int,
) (*ModelMetrics, error) {
	if err := clf.Fit(xTrain, yTrain); err != nil {
		return nil, err
	}

	predict := func(X []feature.Vector) []int {
		out := make([]int, len(X))
		for i, x := range X {
			out[i] = clf.Predict(x)
		}
		return out
	}

	valPred := predict(xVal)
	_, _, valF1 := WeightedPRF(yVal, valPred)

	testPred := predict(xTest)
	prec, rec, f1 := WeightedPRF(yTest, testPred)

	return &ModelMetrics{
		ValAccuracy:          round4(Accuracy(yVal, valPred)),
		ValF1:                round4(valF1),
		Accuracy:             round4(Accuracy(yTest, testPred)),
		Precision:            round4(prec),
		Recall:               round4(rec),
		F1Score:              round4(f1),
		F1FakeClass:          round4(FakeClassF1(yTest, testPred)),
		ConfusionMatrix:      ConfusionMatrix(yTest, testPred),
		ClassificationReport: ClassReport(yTest, testPred),
	}, nil
}
