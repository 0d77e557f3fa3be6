package classify

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// LinearSVM is a one-vs-rest linear support vector machine trained with the
// Pegasos subgradient method. C trades margin width against hinge violations.
type LinearSVM struct {
	C      float64
	Epochs int

	Classes []int
	// Weights and Biases hold one separating hyperplane per class.
	Weights [][]float64
	Biases  []float64
}

const defaultSVMEpochs = 30

func (s *LinearSVM) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("classify: svm needs a non-empty aligned training set")
	}
	if s.C <= 0 {
		s.C = 1
	}
	if s.Epochs <= 0 {
		s.Epochs = defaultSVMEpochs
	}

	s.Classes = sortedClasses(groupByClass(X, y))
	s.Weights = make([][]float64, len(s.Classes))
	s.Biases = make([]float64, len(s.Classes))

	n := len(X)
	lambda := 1 / (s.C * float64(n))
	for ci, class := range s.Classes {
		w := make([]float64, len(X[0]))
		bias := 0.0

		rng := rand.New(rand.NewSource(splitSeed + int64(ci)))
		step := 0
		for epoch := 0; epoch < s.Epochs; epoch++ {
			for _, i := range rng.Perm(n) {
				step++
				eta := 1 / (lambda * float64(step))

				target := -1.0
				if y[i] == class {
					target = 1
				}
				margin := target * (floats.Dot(w, X[i]) + bias)

				floats.Scale(1-eta*lambda, w)
				if margin < 1 {
					floats.AddScaled(w, eta*target, X[i])
					bias += eta * target
				}
			}
		}
		s.Weights[ci] = w
		s.Biases[ci] = bias
	}
	return nil
}

func (s *LinearSVM) Predict(X [][]float64) ([]int, error) {
	if s.Weights == nil {
		return nil, errors.New("classify: svm is not fitted")
	}

	out := make([]int, len(X))
	for i, row := range X {
		best, bestScore := s.Classes[0], math.Inf(-1)
		for ci, class := range s.Classes {
			score := floats.Dot(s.Weights[ci], row) + s.Biases[ci]
			if score > bestScore {
				best, bestScore = class, score
			}
		}
		out[i] = best
	}
	return out, nil
}
