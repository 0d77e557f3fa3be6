package classify

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// RandomForest bags decision trees over bootstrap samples, each split drawing
// from a sqrt-sized random feature subset. Fitting is seeded, so a refit on
// the same data grows the same forest.
type RandomForest struct {
	NumTrees  int
	Criterion string
	MaxDepth  int

	Trees []*DecisionTree
}

func (f *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("classify: random forest needs a non-empty aligned training set")
	}
	if f.NumTrees < 1 {
		f.NumTrees = 100
	}

	maxFeatures := int(math.Sqrt(float64(len(X[0]))))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	rng := rand.New(rand.NewSource(splitSeed))
	f.Trees = make([]*DecisionTree, f.NumTrees)
	for i := range f.Trees {
		sampleX, sampleY := bootstrap(X, y, rng)
		tree := &DecisionTree{
			Criterion:   f.Criterion,
			MaxDepth:    f.MaxDepth,
			MaxFeatures: maxFeatures,
			rng:         rng,
		}
		if err := tree.Fit(sampleX, sampleY); err != nil {
			return errors.Wrapf(err, "failed to fit tree %d", i)
		}
		f.Trees[i] = tree
	}
	return nil
}

func (f *RandomForest) Predict(X [][]float64) ([]int, error) {
	if len(f.Trees) == 0 {
		return nil, errors.New("classify: random forest is not fitted")
	}

	out := make([]int, len(X))
	votes := make([]map[int]int, len(X))
	for i := range votes {
		votes[i] = make(map[int]int)
	}
	for _, tree := range f.Trees {
		preds, err := tree.Predict(X)
		if err != nil {
			return nil, err
		}
		for i, p := range preds {
			votes[i][p]++
		}
	}
	for i := range out {
		out[i] = argmaxVotes(votes[i])
	}
	return out, nil
}

func bootstrap(X [][]float64, y []int, rng *rand.Rand) ([][]float64, []int) {
	n := len(X)
	sampleX := make([][]float64, n)
	sampleY := make([]int, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		sampleX[i] = X[j]
		sampleY[i] = y[j]
	}
	return sampleX, sampleY
}
