package train

// ClassMetrics is the per-class block of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// ModelMetrics holds everything recorded for one classifier variant. A
// variant that failed during fit or evaluation carries only Error.
type ModelMetrics struct {
	ValAccuracy          float64                 `json:"val_accuracy,omitempty"`
	ValF1                float64                 `json:"val_f1,omitempty"`
	Accuracy             float64                 `json:"accuracy"`
	Precision            float64                 `json:"precision"`
	Recall               float64                 `json:"recall"`
	F1Score              float64                 `json:"f1_score"`
	F1FakeClass          float64                 `json:"f1_fake_class"`
	ConfusionMatrix      [2][2]int               `json:"confusion_matrix"`
	ClassificationReport map[string]ClassMetrics `json:"classification_report,omitempty"`
	Error                string                  `json:"error,omitempty"`
}

// Report is the persisted metrics document for one training run.
type Report struct {
	BestModel string                  `json:"best_model"`
	BestF1    float64                 `json:"best_f1"`
	TrainSize int                     `json:"train_size"`
	ValSize   int                     `json:"val_size"`
	TestSize  int                     `json:"test_size"`
	Models    map[string]ModelMetrics `json:"models"`
}

// Accuracy is the fraction of matching predictions.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var hit int
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(yTrue))
}

// ConfusionMatrix returns counts indexed [actual][predicted] over {0,1}.
func ConfusionMatrix(yTrue, yPred []int) [2][2]int {
	var cm [2][2]int
	for i := range yTrue {
		cm[yTrue[i]][yPred[i]]++
	}
	return cm
}

// classPRF computes precision, recall and F1 treating class c as positive.
func classPRF(cm [2][2]int, c int) (precision, recall, f1 float64) {
	tp := float64(cm[c][c])
	fp := float64(cm[1-c][c])
	fn := float64(cm[c][1-c])
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// WeightedPRF averages per-class precision/recall/F1 weighted by class
// support, matching the "weighted" averaging convention.
func WeightedPRF(yTrue, yPred []int) (precision, recall, f1 float64) {
	cm := ConfusionMatrix(yTrue, yPred)
	n := float64(len(yTrue))
	if n == 0 {
		return 0, 0, 0
	}
	for c := 0; c < 2; c++ {
		support := float64(cm[c][0] + cm[c][1])
		p, r, f := classPRF(cm, c)
		precision += p * support / n
		recall += r * support / n
		f1 += f * support / n
	}
	return precision, recall, f1
}

// FakeClassF1 is the F1 score with FAKE (1) as the positive class.
func FakeClassF1(yTrue, yPred []int) float64 {
	_, _, f1 := classPRF(ConfusionMatrix(yTrue, yPred), 1)
	return f1
}

// ClassReport builds the per-class report keyed by label name.
func ClassReport(yTrue, yPred []int) map[string]ClassMetrics {
	cm := ConfusionMatrix(yTrue, yPred)
	names := [2]string{"REAL", "FAKE"}
	out := make(map[string]ClassMetrics, 2)
	for c := 0; c < 2; c++ {
		p, r, f := classPRF(cm, c)
		out[names[c]] = ClassMetrics{
			Precision: round4(p),
			Recall:    round4(r),
			F1:        round4(f),
			Support:   cm[c][0] + cm[c][1],
		}
	}
	return out
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
