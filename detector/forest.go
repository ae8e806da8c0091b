// Package detector wraps an isolation-forest-family outlier scorer behind
// the narrow contract an anomaly scorer needs: fit on a 1-D sample, score new samples
// (lower = more anomalous), and extract an anomaly mask at a threshold. The
// simulation only depends on this contract — Forest is one deterministic
// (seeded) implementation satisfying it; any other scorer could stand in.
package detector

import (
	"math"
	"math/rand"
)

const (
	defaultTrees      = 64
	defaultSampleSize = 64
	defaultMaxDepth   = 16
)

// isoNode is one node of an isolation tree: either a leaf (size recorded for
// path-length correction) or an internal split on the 1-D value.
type isoNode struct {
	isLeaf bool
	size   int
	split  float64
	left   *isoNode
	right  *isoNode
}

// Forest is a seeded isolation-forest-style scorer specialized to a single
// scalar feature (packet size).
type Forest struct {
	rng        *rand.Rand
	numTrees   int
	sampleSize int
	maxDepth   int

	trees    []*isoNode
	fitted   bool
	constant bool // the fitted sample had zero variance (min == max)
	minFit   int  // minDataPoints; below this, Fit silently no-ops
}

// New builds a Forest seeded from seed. minDataPoints mirrors the node's
// configured minDataPoints — Fit below that length is a no-op.
func New(seed int64, minDataPoints int) *Forest {
	return &Forest{
		rng:        rand.New(rand.NewSource(seed)),
		numTrees:   defaultTrees,
		sampleSize: defaultSampleSize,
		maxDepth:   defaultMaxDepth,
		minFit:     minDataPoints,
	}
}

// Fit trains the forest on sample. Idempotent; silently no-ops when
// len(sample) < minDataPoints.
func (f *Forest) Fit(sample []float64) {
	if len(sample) < f.minFit {
		return
	}

	lo, hi := sample[0], sample[0]
	for _, v := range sample {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	f.constant = lo == hi

	sampleSize := f.sampleSize
	if sampleSize > len(sample) {
		sampleSize = len(sample)
	}
	trees := make([]*isoNode, f.numTrees)
	for i := range trees {
		sub := f.subsample(sample, sampleSize)
		trees[i] = f.buildTree(sub, 0)
	}
	f.trees = trees
	f.fitted = true
}

func (f *Forest) subsample(sample []float64, n int) []float64 {
	idx := f.rng.Perm(len(sample))[:n]
	out := make([]float64, n)
	for i, j := range idx {
		out[i] = sample[j]
	}
	return out
}

func (f *Forest) buildTree(sample []float64, depth int) *isoNode {
	if depth >= f.maxDepth || len(sample) <= 1 {
		return &isoNode{isLeaf: true, size: len(sample)}
	}
	lo, hi := sample[0], sample[0]
	for _, v := range sample {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return &isoNode{isLeaf: true, size: len(sample)}
	}
	split := lo + f.rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range sample {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &isoNode{
		split: split,
		left:  f.buildTree(left, depth+1),
		right: f.buildTree(right, depth+1),
	}
}

// cFactor is the average path length of an unsuccessful BST search,
// the standard isolation-forest normalization constant.
func cFactor(n int) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(float64(n-1))+0.5772156649) - 2*float64(n-1)/float64(n)
}

func pathLength(node *isoNode, x float64, depth int) float64 {
	if node.isLeaf {
		return float64(depth) + cFactor(node.size)
	}
	if x < node.split {
		return pathLength(node.left, x, depth+1)
	}
	return pathLength(node.right, x, depth+1)
}

// Score returns one score per input point, equal length to sample. Lower
// values indicate anomalies: the standard isolation-forest convention
// is inverted here so callers compare directly against anomalyThreshold.
func (f *Forest) Score(sample []float64) []float64 {
	out := make([]float64, len(sample))
	if !f.fitted || len(f.trees) == 0 {
		return out // all zero: no trained model, nothing reads as anomalous
	}
	if f.constant {
		// Every tree is a single root leaf, so pathLength never inspects x
		// and isoScore would be the same fixed mid-range value for any
		// input — treat a zero-variance fit as never anomalous instead.
		return out
	}
	c := cFactor(f.sampleSize)
	if c == 0 {
		c = 1
	}
	for i, x := range sample {
		var sum float64
		for _, t := range f.trees {
			sum += pathLength(t, x, 0)
		}
		avg := sum / float64(len(f.trees))
		isoScore := math.Exp2(-avg / c) // standard convention: higher = more anomalous
		out[i] = -isoScore
	}
	return out
}

// AnomalyMask returns the indices where score < threshold.
func AnomalyMask(scores []float64, threshold float64) []int {
	var out []int
	for i, s := range scores {
		if s < threshold {
			out = append(out, i)
		}
	}
	return out
}
