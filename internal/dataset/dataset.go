// Package dataset loads tabular training data and produces the seeded
// train/validation/test partitions used by the trainer.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/dberest/veridict/internal/logging"
)

// Labels use the fixed internal encoding 0=REAL, 1=FAKE.
const (
	LabelReal = 0
	LabelFake = 1
)

var textColumnNames = []string{"text", "body", "content", "article", "news", "headline", "title"}
var labelColumnNames = []string{"label", "class", "fake", "target", "category"}

// labelMap normalizes the label spellings seen in public news datasets.
var labelMap = map[string]int{
	"fake": LabelFake, "false": LabelFake, "1": LabelFake,
	"real": LabelReal, "true": LabelReal, "0": LabelReal,
}

// Dataset is a loaded corpus with normalized binary labels.
type Dataset struct {
	Texts  []string
	Labels []int
}

// Split is one partition of a dataset.
type Split struct {
	Texts  []string
	Labels []int
}

// LoadCSV reads a CSV file with a header row, detects the text and label
// columns by name heuristics, combines title and body when both are present,
// and normalizes labels to 0/1.
func LoadCSV(path string, logger logging.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("dataset: need a header row and at least one data row")
	}

	header := records[0]
	rows := records[1:]

	textCol := detectColumn(header, textColumnNames)
	if textCol < 0 {
		textCol = 0
	}
	labelCol := detectColumn(header, labelColumnNames)
	if labelCol < 0 {
		labelCol = len(header) - 1
	}
	titleCol := indexOf(header, "title")
	if titleCol == textCol {
		titleCol = -1
	}

	logger.Info("dataset columns detected",
		logging.Field{Key: "text_column", Value: header[textCol]},
		logging.Field{Key: "label_column", Value: header[labelCol]})

	ds := &Dataset{}
	rawLabels := make([]string, 0, len(rows))
	for _, row := range rows {
		if textCol >= len(row) || labelCol >= len(row) {
			continue
		}
		text := strings.TrimSpace(row[textCol])
		label := strings.TrimSpace(row[labelCol])
		if titleCol >= 0 && titleCol < len(row) {
			text = strings.TrimSpace(row[titleCol] + " " + text)
		}
		if text == "" || label == "" {
			continue
		}
		ds.Texts = append(ds.Texts, text)
		rawLabels = append(rawLabels, label)
	}
	if len(ds.Texts) == 0 {
		return nil, errors.New("dataset: no usable rows")
	}

	ds.Labels, err = normalizeLabels(rawLabels)
	if err != nil {
		return nil, err
	}

	var real, fake int
	for _, l := range ds.Labels {
		if l == LabelFake {
			fake++
		} else {
			real++
		}
	}
	logger.Info("dataset loaded",
		logging.Field{Key: "rows", Value: len(ds.Texts)},
		logging.Field{Key: "real", Value: real},
		logging.Field{Key: "fake", Value: fake})
	return ds, nil
}

func detectColumn(header, candidates []string) int {
	for _, name := range candidates {
		if idx := indexOf(header, name); idx >= 0 {
			return idx
		}
	}
	return -1
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// normalizeLabels maps known label spellings onto 0/1. Unrecognized label
// vocabularies fall back to a generic categorical encoding over the sorted
// distinct values; more than two classes is an error since the classifier
// bank is strictly binary.
func normalizeLabels(raw []string) ([]int, error) {
	known := true
	for _, v := range raw {
		if _, ok := labelMap[strings.ToLower(v)]; !ok {
			known = false
			break
		}
	}

	out := make([]int, len(raw))
	if known {
		for i, v := range raw {
			out[i] = labelMap[strings.ToLower(v)]
		}
		return out, nil
	}

	distinct := make(map[string]struct{})
	for _, v := range raw {
		distinct[v] = struct{}{}
	}
	if len(distinct) > 2 {
		return nil, fmt.Errorf("dataset: expected binary labels, found %d classes", len(distinct))
	}
	values := make([]string, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Strings(values)
	codes := make(map[string]int, len(values))
	for i, v := range values {
		codes[v] = i
	}
	for i, v := range raw {
		out[i] = codes[v]
	}
	return out, nil
}

// StratifiedSplit shuffles with the given seed and partitions per class so
// each split keeps the corpus class balance. Ratios must sum to ~1.
func StratifiedSplit(ds *Dataset, trainRatio, valRatio, testRatio float64, seed int64) (train, val, test Split, err error) {
	if trainRatio <= 0 || valRatio < 0 || testRatio <= 0 {
		return train, val, test, errors.New("dataset: invalid split ratios")
	}
	sum := trainRatio + valRatio + testRatio
	if sum < 0.999 || sum > 1.001 {
		return train, val, test, fmt.Errorf("dataset: split ratios sum to %.3f, want 1", sum)
	}

	byClass := map[int][]int{}
	for i, l := range ds.Labels {
		byClass[l] = append(byClass[l], i)
	}

	rng := rand.New(rand.NewSource(seed))
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	assign := func(s *Split, i int) {
		s.Texts = append(s.Texts, ds.Texts[i])
		s.Labels = append(s.Labels, ds.Labels[i])
	}

	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTrain := int(float64(len(idx)) * trainRatio)
		nVal := int(float64(len(idx)) * valRatio)
		for pos, i := range idx {
			switch {
			case pos < nTrain:
				assign(&train, i)
			case pos < nTrain+nVal:
				assign(&val, i)
			default:
				assign(&test, i)
			}
		}
	}

	if len(train.Texts) == 0 || len(test.Texts) == 0 {
		return train, val, test, errors.New("dataset: too few rows for the requested split")
	}
	return train, val, test, nil
}
