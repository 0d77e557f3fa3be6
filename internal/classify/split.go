package classify

import (
	"math"
	"math/rand"
)

const (
	splitSeed    = 1337
	testFraction = 0.1
)

// Split partitions n sample indices into a train and a test set. The shuffle
// is seeded with a fixed constant so every candidate estimator is scored on
// the identical split and scores stay comparable across runs.
func Split(n int) (train, test []int) {
	if n < 2 {
		return indices(n), nil
	}

	testSize := int(math.Ceil(testFraction * float64(n)))
	if testSize >= n {
		testSize = n - 1
	}

	perm := rand.New(rand.NewSource(splitSeed)).Perm(n)
	return perm[testSize:], perm[:testSize]
}

// Take selects the rows and labels at the given indices.
func Take(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	outX := make([][]float64, len(idx))
	outY := make([]int, len(idx))
	for i, j := range idx {
		outX[i] = X[j]
		outY[i] = y[j]
	}
	return outX, outY
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
