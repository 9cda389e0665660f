// Package feature turns preprocessed text into sparse TF-IDF vectors over a
// vocabulary frozen at fit time.
package feature

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// ErrAlreadyFitted is returned when Fit is called twice on the same vectorizer.
var ErrAlreadyFitted = errors.New("feature: vectorizer already fitted")

// ErrNotFitted is returned when Transform is called before Fit.
var ErrNotFitted = errors.New("feature: vectorizer not fitted")

// Vector is a sparse feature vector. Indices are sorted ascending and refer to
// positions in the fitted vocabulary.
type Vector struct {
	Indices []int
	Values  []float64
}

// Dot computes the inner product against a dense weight slice. Indices beyond
// len(w) are ignored, which makes a dimensionality mismatch visible to callers
// that check vector dims explicitly rather than crashing here.
func (v Vector) Dot(w []float64) float64 {
	var s float64
	for k, i := range v.Indices {
		if i < len(w) {
			s += v.Values[k] * w[i]
		}
	}
	return s
}

// At returns the value stored for feature index i, or 0 when absent.
func (v Vector) At(i int) float64 {
	lo, hi := 0, len(v.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case v.Indices[mid] == i:
			return v.Values[mid]
		case v.Indices[mid] < i:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// Vectorizer fits a TF-IDF vocabulary over unigrams and bigrams. The
// vocabulary is frozen after Fit: only the training split may influence it.
// Exported fields are what gets serialized into the vectorizer artifact.
type Vectorizer struct {
	MaxFeatures int
	MinDocFreq  int

	Vocabulary map[string]int
	IDF        []float64
	Terms      []string
}

// NewVectorizer returns an unfitted vectorizer.
func NewVectorizer(maxFeatures, minDocFreq int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = 10000
	}
	if minDocFreq <= 0 {
		minDocFreq = 1
	}
	return &Vectorizer{MaxFeatures: maxFeatures, MinDocFreq: minDocFreq}
}

// ngrams expands a token stream into unigrams plus bigrams.
func ngrams(tokens []string) []string {
	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// Fit builds the vocabulary and IDF table from docs. Documents must already be
// normalized by internal/preprocess; the vectorizer only splits on whitespace.
// Terms appearing in fewer
// than MinDocFreq documents are dropped; if more than MaxFeatures survive, the
// most frequent ones are kept. Index assignment is alphabetical so repeated
// runs over the same corpus produce the same vocabulary.
func (v *Vectorizer) Fit(docs []string) error {
	if v.Vocabulary != nil {
		return ErrAlreadyFitted
	}

	df := make(map[string]int)
	cf := make(map[string]int)
	for _, doc := range docs {
		grams := ngrams(strings.Fields(doc))
		seen := make(map[string]struct{}, len(grams))
		for _, g := range grams {
			cf[g]++
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				df[g]++
			}
		}
	}

	kept := make([]string, 0, len(df))
	for term, n := range df {
		if n >= v.MinDocFreq {
			kept = append(kept, term)
		}
	}
	if len(kept) > v.MaxFeatures {
		// Keep the highest collection frequency; break ties alphabetically.
		sort.Slice(kept, func(i, j int) bool {
			if cf[kept[i]] != cf[kept[j]] {
				return cf[kept[i]] > cf[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:v.MaxFeatures]
	}
	sort.Strings(kept)

	n := float64(len(docs))
	v.Vocabulary = make(map[string]int, len(kept))
	v.Terms = kept
	v.IDF = make([]float64, len(kept))
	for i, term := range kept {
		v.Vocabulary[term] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return nil
}

// Dim returns the fitted vocabulary size.
func (v *Vectorizer) Dim() int { return len(v.Terms) }

// FeatureNames returns the vocabulary terms in index order.
func (v *Vectorizer) FeatureNames() []string { return v.Terms }

// TransformOne vectorizes a single preprocessed document with the frozen
// vocabulary. Out-of-vocabulary input yields an empty but valid vector.
func (v *Vectorizer) TransformOne(doc string) (Vector, error) {
	if v.Vocabulary == nil {
		return Vector{}, ErrNotFitted
	}

	counts := make(map[int]float64)
	for _, g := range ngrams(strings.Fields(doc)) {
		if idx, ok := v.Vocabulary[g]; ok {
			counts[idx]++
		}
	}

	idxs := make([]int, 0, len(counts))
	for i := range counts {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	vec := Vector{
		Indices: idxs,
		Values:  make([]float64, len(idxs)),
	}
	var norm float64
	for k, i := range idxs {
		// Sublinear TF: 1 + log(tf).
		w := (1 + math.Log(counts[i])) * v.IDF[i]
		vec.Values[k] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range vec.Values {
			vec.Values[k] /= norm
		}
	}
	return vec, nil
}

// Transform vectorizes docs one by one. The result always has len(docs)
// entries; it never fails on out-of-vocabulary text.
func (v *Vectorizer) Transform(docs []string) ([]Vector, error) {
	if v.Vocabulary == nil {
		return nil, ErrNotFitted
	}
	out := make([]Vector, len(docs))
	for i, d := range docs {
		vec, err := v.TransformOne(d)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
