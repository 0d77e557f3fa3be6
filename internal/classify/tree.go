package classify

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// Split quality criteria for decision trees.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// DecisionTree is a CART-style classifier. MaxDepth of zero means unlimited
// depth; MaxFeatures of zero considers every feature at each split.
type DecisionTree struct {
	Criterion   string
	MaxDepth    int
	MaxFeatures int

	Root *TreeNode

	rng *rand.Rand
}

// TreeNode is one node of a fitted tree. Leaf nodes carry the predicted
// class; internal nodes route on Feature <= Threshold.
type TreeNode struct {
	Leaf      bool
	Class     int
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
}

func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("classify: decision tree needs a non-empty aligned training set")
	}
	if t.Criterion == "" {
		t.Criterion = CriterionGini
	}
	if t.Criterion != CriterionGini && t.Criterion != CriterionEntropy {
		return errors.Errorf("classify: unknown split criterion %q", t.Criterion)
	}

	t.Root = t.grow(X, y, indices(len(X)), 0)
	return nil
}

func (t *DecisionTree) Predict(X [][]float64) ([]int, error) {
	if t.Root == nil {
		return nil, errors.New("classify: decision tree is not fitted")
	}

	out := make([]int, len(X))
	for i, row := range X {
		node := t.Root
		for !node.Leaf {
			if row[node.Feature] <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
		out[i] = node.Class
	}
	return out, nil
}

func (t *DecisionTree) grow(X [][]float64, y []int, idx []int, depth int) *TreeNode {
	votes := make(map[int]int)
	for _, i := range idx {
		votes[y[i]]++
	}
	if len(votes) == 1 || len(idx) < 2 || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return &TreeNode{Leaf: true, Class: argmaxVotes(votes)}
	}

	feature, threshold, ok := t.bestSplit(X, y, idx)
	if !ok {
		return &TreeNode{Leaf: true, Class: argmaxVotes(votes)}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &TreeNode{Leaf: true, Class: argmaxVotes(votes)}
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      t.grow(X, y, left, depth+1),
		Right:     t.grow(X, y, right, depth+1),
	}
}

func (t *DecisionTree) bestSplit(X [][]float64, y []int, idx []int) (feature int, threshold float64, ok bool) {
	bestImpurity := math.Inf(1)
	for _, f := range t.candidateFeatures(len(X[0])) {
		values := make([]float64, len(idx))
		for i, j := range idx {
			values[i] = X[j][f]
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			mid := (values[i] + values[i-1]) / 2
			impurity := t.splitImpurity(X, y, idx, f, mid)
			if impurity < bestImpurity {
				bestImpurity = impurity
				feature, threshold, ok = f, mid, true
			}
		}
	}
	return feature, threshold, ok
}

// candidateFeatures returns the features considered for one split. With a
// feature cap set and an rng attached, a fresh random subset per split.
func (t *DecisionTree) candidateFeatures(numFeatures int) []int {
	if t.MaxFeatures <= 0 || t.MaxFeatures >= numFeatures || t.rng == nil {
		return indices(numFeatures)
	}
	subset := t.rng.Perm(numFeatures)[:t.MaxFeatures]
	sort.Ints(subset)
	return subset
}

// splitImpurity is the size-weighted impurity of the two sides of a split.
func (t *DecisionTree) splitImpurity(X [][]float64, y []int, idx []int, feature int, threshold float64) float64 {
	leftVotes := make(map[int]int)
	rightVotes := make(map[int]int)
	leftN, rightN := 0, 0
	for _, i := range idx {
		if X[i][feature] <= threshold {
			leftVotes[y[i]]++
			leftN++
		} else {
			rightVotes[y[i]]++
			rightN++
		}
	}
	total := float64(leftN + rightN)
	return float64(leftN)/total*t.impurity(leftVotes, leftN) +
		float64(rightN)/total*t.impurity(rightVotes, rightN)
}

func (t *DecisionTree) impurity(votes map[int]int, n int) float64 {
	if n == 0 {
		return 0
	}
	out := 0.0
	for _, count := range votes {
		p := float64(count) / float64(n)
		if t.Criterion == CriterionEntropy {
			out -= p * math.Log2(p)
		} else {
			out += p * (1 - p)
		}
	}
	return out
}
