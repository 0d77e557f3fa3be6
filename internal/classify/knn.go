package classify

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// KNN is a brute-force k-nearest-neighbors classifier with euclidean
// distance and majority voting. The fitted state is the training set itself.
type KNN struct {
	K int

	TrainX [][]float64
	TrainY []int
}

func (k *KNN) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("classify: knn needs a non-empty aligned training set")
	}
	if k.K < 1 {
		k.K = 1
	}
	k.TrainX = X
	k.TrainY = y
	return nil
}

func (k *KNN) Predict(X [][]float64) ([]int, error) {
	if k.TrainX == nil {
		return nil, errors.New("classify: knn is not fitted")
	}

	out := make([]int, len(X))
	for i, row := range X {
		out[i] = k.predictOne(row)
	}
	return out, nil
}

type neighbor struct {
	dist  float64
	label int
}

func (k *KNN) predictOne(row []float64) int {
	neighbors := make([]neighbor, len(k.TrainX))
	for i, train := range k.TrainX {
		neighbors[i] = neighbor{dist: floats.Distance(row, train, 2), label: k.TrainY[i]}
	}
	// Ties break on the smaller label for determinism.
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].dist != neighbors[j].dist {
			return neighbors[i].dist < neighbors[j].dist
		}
		return neighbors[i].label < neighbors[j].label
	})

	kk := k.K
	if kk > len(neighbors) {
		kk = len(neighbors)
	}
	votes := make(map[int]int)
	for _, nb := range neighbors[:kk] {
		votes[nb.label]++
	}
	return argmaxVotes(votes)
}

// argmaxVotes returns the label with the most votes, smallest label on ties.
func argmaxVotes(votes map[int]int) int {
	best, bestCount := -1, -1
	for label, count := range votes {
		if count > bestCount || (count == bestCount && label < best) {
			best, bestCount = label, count
		}
	}
	return best
}
