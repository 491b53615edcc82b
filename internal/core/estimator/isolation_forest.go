package estimator

import (
	"fmt"
	"math"

	"model-serving-service/internal/core/domain"
)

const eulerGamma = 0.5772156649015329

// leafFeature marks a leaf node in an exported tree.
const leafFeature = -1

// TreeNode is one node of an exported isolation tree. Leaves carry
// Feature == -1.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	NSamples  int
}

// IsolationTree is a fitted tree. Features maps the tree's local feature
// indices onto the transformed vector; nil means identity.
type IsolationTree struct {
	Nodes    []TreeNode
	Features []int
}

// IsolationForest scores samples the way scikit-learn's IsolationForest does:
// score_samples is the negated anomaly score, so lower means more abnormal,
// and predict returns -1 where score_samples - offset < 0.
type IsolationForest struct {
	trees      []IsolationTree
	offset     float64
	maxSamples int
	width      int
	norm       float64
}

func NewIsolationForest(trees []IsolationTree, offset float64, maxSamples, width int) (*IsolationForest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: isolation_forest has no trees", domain.ErrInvalidBundle)
	}
	if maxSamples < 1 {
		return nil, fmt.Errorf("%w: isolation_forest max_samples must be >= 1", domain.ErrInvalidBundle)
	}
	if !finite(offset) {
		return nil, fmt.Errorf("%w: isolation_forest offset is not finite", domain.ErrInvalidBundle)
	}
	for i, t := range trees {
		if err := validateTree(t, width); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", domain.ErrInvalidBundle, i, err)
		}
	}
	return &IsolationForest{
		trees:      trees,
		offset:     offset,
		maxSamples: maxSamples,
		width:      width,
		norm:       averagePathLength(maxSamples),
	}, nil
}

func validateTree(t IsolationTree, width int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for _, f := range t.Features {
		if f < 0 || f >= width {
			return fmt.Errorf("feature index %d outside input width %d", f, width)
		}
	}
	local := width
	if t.Features != nil {
		local = len(t.Features)
	}
	for i, n := range t.Nodes {
		if n.Feature == leafFeature {
			if n.NSamples < 1 {
				return fmt.Errorf("leaf %d has no samples", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= local {
			return fmt.Errorf("node %d splits on feature %d outside width %d", i, n.Feature, local)
		}
		// Children always follow their parent in exported order, which rules
		// out cycles.
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has child out of range", i)
		}
		if !finite(n.Threshold) {
			return fmt.Errorf("node %d threshold is not finite", i)
		}
	}
	return nil
}

func (f *IsolationForest) InputWidth() int { return f.width }

// Offset is the fitted decision offset.
func (f *IsolationForest) Offset() float64 { return f.offset }

func (f *IsolationForest) ScoreSample(x []float64) (float64, error) {
	if len(x) != f.width {
		return 0, fmt.Errorf("%w: isolation_forest expects %d features, got %d", domain.ErrTransformMismatch, f.width, len(x))
	}
	var depth float64
	for i := range f.trees {
		depth += pathLength(&f.trees[i], x)
	}
	mean := depth / float64(len(f.trees))
	if f.norm == 0 {
		return -1, nil
	}
	return -math.Pow(2, -mean/f.norm), nil
}

func (f *IsolationForest) Predict(x []float64) (int, error) {
	score, err := f.ScoreSample(x)
	if err != nil {
		return 0, err
	}
	if score-f.offset < 0 {
		return domain.OutlierSentinel, nil
	}
	return domain.InlierSentinel, nil
}

func pathLength(t *IsolationTree, x []float64) float64 {
	node, depth := 0, 0
	for {
		n := t.Nodes[node]
		if n.Feature == leafFeature {
			return float64(depth) + averagePathLength(n.NSamples)
		}
		feat := n.Feature
		if t.Features != nil {
			feat = t.Features[feat]
		}
		if x[feat] <= n.Threshold {
			node = n.Left
		} else {
			node = n.Right
		}
		depth++
	}
}

// averagePathLength is c(n), the average path length of an unsuccessful
// binary search tree lookup over n samples.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

var _ domain.OutlierDetector = (*IsolationForest)(nil)
