package ml

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultNEstimators = 200
	DefaultSeed        = 42
)

// Node is one node of a fitted tree. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64 // fraction of positive samples reaching the node
}

// Tree is a fitted CART tree stored as a flat node slice, root at index 0.
type Tree struct {
	Nodes []Node
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// ForestParams are the random forest hyperparameters.
type ForestParams struct {
	NEstimators    int
	MaxDepth       int // 0 grows trees until leaves are pure
	MinSamplesLeaf int
	MaxFeatures    int // 0 uses sqrt(features)
	Seed           int64
}

// DefaultForestParams returns the standard forest configuration.
func DefaultForestParams() ForestParams {
	return ForestParams{
		NEstimators:    DefaultNEstimators,
		MinSamplesLeaf: 1,
		Seed:           DefaultSeed,
	}
}

// RandomForest is a bagged ensemble of Gini CART trees for binary labels.
type RandomForest struct {
	Params      ForestParams
	NFeatures   int
	Trees       []Tree
	Importances []float64
}

// NewRandomForest creates an unfitted forest.
func NewRandomForest(params ForestParams) *RandomForest {
	if params.NEstimators <= 0 {
		params.NEstimators = DefaultNEstimators
	}
	if params.MinSamplesLeaf <= 0 {
		params.MinSamplesLeaf = 1
	}
	return &RandomForest{Params: params}
}

// Fit grows every tree on its own bootstrap sample. Trees are fitted in
// parallel; tree i always uses seed Params.Seed+i so the result does not
// depend on scheduling.
func (rf *RandomForest) Fit(ctx context.Context, X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return ErrNoTrainingData
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return ErrNoTrainingData
	}

	mtry := rf.Params.MaxFeatures
	if mtry <= 0 || mtry > nFeatures {
		mtry = int(math.Max(1, math.Floor(math.Sqrt(float64(nFeatures)))))
	}

	trees := make([]Tree, rf.Params.NEstimators)
	importances := make([][]float64, rf.Params.NEstimators)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := &treeBuilder{
				X:        X,
				y:        y,
				params:   rf.Params,
				mtry:     mtry,
				rng:      rand.New(rand.NewSource(rf.Params.Seed + int64(i))),
				features: nFeatures,
				imp:      make([]float64, nFeatures),
			}
			trees[i] = b.build(b.bootstrap())
			importances[i] = normalize(b.imp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := make([]float64, nFeatures)
	for _, imp := range importances {
		for j, v := range imp {
			total[j] += v
		}
	}

	rf.NFeatures = nFeatures
	rf.Trees = trees
	rf.Importances = normalize(total)
	return nil
}

// PredictProba returns the mean positive-leaf fraction over all trees per row.
func (rf *RandomForest) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(rf.Trees) == 0 {
		return out
	}
	for i, x := range X {
		sum := 0.0
		for t := range rf.Trees {
			sum += rf.Trees[t].predict(x)
		}
		out[i] = sum / float64(len(rf.Trees))
	}
	return out
}

type treeBuilder struct {
	X        [][]float64
	y        []int
	params   ForestParams
	mtry     int
	features int
	rng      *rand.Rand
	imp      []float64
	nodes    []Node
}

func (b *treeBuilder) bootstrap() []int {
	n := len(b.X)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = b.rng.Intn(n)
	}
	return idx
}

func (b *treeBuilder) build(idx []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

// grow appends the subtree for idx and returns its node index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	pos := positives(b.y, idx)
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: float64(pos) / float64(len(idx))})

	if pos == 0 || pos == len(idx) ||
		len(idx) < 2*b.params.MinSamplesLeaf ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) {
		return self
	}

	s, ok := b.bestSplit(idx, pos)
	if !ok {
		return self
	}
	b.imp[s.feature] += s.gain

	left := make([]int, 0, s.nLeft)
	right := make([]int, 0, len(idx)-s.nLeft)
	for _, r := range idx {
		if b.X[r][s.feature] <= s.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self].Feature = s.feature
	b.nodes[self].Threshold = s.threshold
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	nLeft     int
}

// bestSplit draws features in random order and keeps the best Gini split.
// At least mtry features are examined; drawing continues past mtry until a
// valid split is found.
func (b *treeBuilder) bestSplit(idx []int, pos int) (split, bool) {
	n := float64(len(idx))
	parent := n * gini(float64(pos), n)
	minLeaf := b.params.MinSamplesLeaf

	best := split{gain: 0}
	found := false
	sorted := make([]int, len(idx))

	for k, f := range b.rng.Perm(b.features) {
		if k >= b.mtry && found {
			break
		}
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		leftPos := 0
		for i := 0; i < len(sorted)-1; i++ {
			leftPos += b.y[sorted[i]]
			nl := i + 1
			v, next := b.X[sorted[i]][f], b.X[sorted[i+1]][f]
			if v == next || nl < minLeaf || len(sorted)-nl < minLeaf {
				continue
			}
			nr := len(sorted) - nl
			rightPos := pos - leftPos
			gain := parent - float64(nl)*gini(float64(leftPos), float64(nl)) - float64(nr)*gini(float64(rightPos), float64(nr))
			if gain > best.gain+1e-12 {
				best = split{feature: f, threshold: (v + next) / 2, gain: gain, nLeft: nl}
				found = true
			}
		}
	}
	return best, found
}

func gini(pos, n float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	return 1 - p*p - (1-p)*(1-p)
}

func positives(y []int, idx []int) int {
	c := 0
	for _, r := range idx {
		c += y[r]
	}
	return c
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}
