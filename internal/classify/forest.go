package classify

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dberest/veridict/internal/feature"
)

// RandomForest is a bagged ensemble of CART trees. Each tree is grown on a
// bootstrap sample with class-balanced instance weights and a sqrt-sized
// random feature subset per split. Trees fit in parallel; every tree gets a
// seed derived from the forest seed so the ensemble stays deterministic.
type RandomForest struct {
	Dim      int
	NumTrees int
	MaxDepth int
	MinLeaf  int
	Seed     int64
	Trees    []*TreeNode
}

// TreeNode is one node of a decision tree. Leaf nodes carry the class
// distribution; internal nodes carry a split.
type TreeNode struct {
	Leaf      bool
	Prob      [2]float64
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
}

// NewRandomForest returns an untrained forest.
func NewRandomForest(dim int, seed int64) *RandomForest {
	return &RandomForest{
		Dim:      dim,
		NumTrees: 100,
		MaxDepth: 12,
		MinLeaf:  2,
		Seed:     seed,
	}
}

func (m *RandomForest) Name() string { return "Random Forest" }

func (m *RandomForest) NumFeatures() int { return m.Dim }

func (m *RandomForest) Fit(X []feature.Vector, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("forest: empty or mismatched training data")
	}

	cw := balancedWeights(y)
	m.Trees = make([]*TreeNode, m.NumTrees)

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.NumCPU())
	for t := 0; t < m.NumTrees; t++ {
		t := t
		g.Go(func() error {
			rng := rand.New(rand.NewSource(m.Seed + int64(t)))
			idx := make([]int, len(X))
			for i := range idx {
				idx[i] = rng.Intn(len(X))
			}
			m.Trees[t] = m.grow(X, y, cw, idx, 0, rng)
			return nil
		})
	}
	return g.Wait()
}

// grow recursively builds one tree over the sample indices in idx.
func (m *RandomForest) grow(X []feature.Vector, y []int, cw [2]float64, idx []int, depth int, rng *rand.Rand) *TreeNode {
	node := &TreeNode{}

	var w [2]float64
	for _, i := range idx {
		w[y[i]] += cw[y[i]]
	}
	total := w[0] + w[1]
	node.Prob = [2]float64{w[0] / total, w[1] / total}

	if depth >= m.MaxDepth || len(idx) < 2*m.MinLeaf || w[0] == 0 || w[1] == 0 {
		node.Leaf = true
		return node
	}

	f, t, ok := m.bestSplit(X, y, cw, idx, rng)
	if !ok {
		node.Leaf = true
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i].At(f) <= t {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < m.MinLeaf || len(right) < m.MinLeaf {
		node.Leaf = true
		return node
	}

	node.Feature = f
	node.Threshold = t
	node.Left = m.grow(X, y, cw, left, depth+1, rng)
	node.Right = m.grow(X, y, cw, right, depth+1, rng)
	return node
}

// bestSplit samples sqrt(k) of the features present in the node and picks the
// split with the lowest weighted gini impurity.
func (m *RandomForest) bestSplit(X []feature.Vector, y []int, cw [2]float64, idx []int, rng *rand.Rand) (int, float64, bool) {
	present := make(map[int]struct{})
	for _, i := range idx {
		for _, f := range X[i].Indices {
			present[f] = struct{}{}
		}
	}
	if len(present) == 0 {
		return 0, 0, false
	}

	feats := make([]int, 0, len(present))
	for f := range present {
		feats = append(feats, f)
	}
	sort.Ints(feats)
	rng.Shuffle(len(feats), func(i, j int) { feats[i], feats[j] = feats[j], feats[i] })
	k := int(math.Sqrt(float64(len(feats)))) + 1
	if k > len(feats) {
		k = len(feats)
	}
	feats = feats[:k]

	bestGini := math.Inf(1)
	bestFeat, bestThr := -1, 0.0

	for _, f := range feats {
		// Candidate threshold: split presence/low values against high values
		// at the node mean. Cheap and effective for sparse TF-IDF columns.
		var sum float64
		for _, i := range idx {
			sum += X[i].At(f)
		}
		thr := sum / float64(len(idx))

		var lw, rw [2]float64
		for _, i := range idx {
			if X[i].At(f) <= thr {
				lw[y[i]] += cw[y[i]]
			} else {
				rw[y[i]] += cw[y[i]]
			}
		}
		ln, rn := lw[0]+lw[1], rw[0]+rw[1]
		if ln == 0 || rn == 0 {
			continue
		}
		gini := ln*giniImpurity(lw) + rn*giniImpurity(rw)
		if gini < bestGini {
			bestGini = gini
			bestFeat = f
			bestThr = thr
		}
	}
	if bestFeat < 0 {
		return 0, 0, false
	}
	return bestFeat, bestThr, true
}

func giniImpurity(w [2]float64) float64 {
	total := w[0] + w[1]
	if total == 0 {
		return 0
	}
	p0, p1 := w[0]/total, w[1]/total
	return 1 - p0*p0 - p1*p1
}

func (m *RandomForest) Predict(x feature.Vector) int {
	if m.PredictProba(x)[1] >= 0.5 {
		return 1
	}
	return 0
}

func (m *RandomForest) PredictProba(x feature.Vector) [2]float64 {
	var acc [2]float64
	for _, root := range m.Trees {
		p := classifyTree(root, x)
		acc[0] += p[0]
		acc[1] += p[1]
	}
	n := float64(len(m.Trees))
	if n == 0 {
		return [2]float64{0.5, 0.5}
	}
	return [2]float64{acc[0] / n, acc[1] / n}
}

func classifyTree(node *TreeNode, x feature.Vector) [2]float64 {
	for !node.Leaf {
		if x.At(node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Prob
}

var (
	_ Classifier           = (*RandomForest)(nil)
	_ ProbabilityEstimator = (*RandomForest)(nil)
)
