package classify

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// AdaBoost is a SAMME boosting ensemble over depth-one decision stumps.
// Rounds that fail to beat chance stop the boosting early.
type AdaBoost struct {
	NumEstimators int
	LearningRate  float64

	Stumps  []Stump
	Weights []float64
	Classes []int
}

// Stump is a single-feature threshold rule with a class on each side.
type Stump struct {
	Feature    int
	Threshold  float64
	LeftClass  int
	RightClass int
}

func (s Stump) predict(row []float64) int {
	if row[s.Feature] <= s.Threshold {
		return s.LeftClass
	}
	return s.RightClass
}

func (a *AdaBoost) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("classify: adaboost needs a non-empty aligned training set")
	}
	if a.NumEstimators < 1 {
		a.NumEstimators = 50
	}
	if a.LearningRate <= 0 {
		a.LearningRate = 1
	}

	a.Classes = sortedClasses(groupByClass(X, y))
	numClasses := len(a.Classes)
	a.Stumps = nil
	a.Weights = nil

	n := len(X)
	sampleWeights := make([]float64, n)
	for i := range sampleWeights {
		sampleWeights[i] = 1 / float64(n)
	}

	for round := 0; round < a.NumEstimators; round++ {
		stump, err := fitStump(X, y, sampleWeights)
		if err != nil {
			return err
		}

		weightedErr := 0.0
		for i, row := range X {
			if stump.predict(row) != y[i] {
				weightedErr += sampleWeights[i]
			}
		}

		// SAMME requires each round to do better than random guessing.
		chance := 1 - 1/float64(numClasses)
		if weightedErr >= chance {
			break
		}
		if weightedErr <= 0 {
			a.Stumps = append(a.Stumps, stump)
			a.Weights = append(a.Weights, 1)
			break
		}

		alpha := a.LearningRate * (math.Log((1-weightedErr)/weightedErr) + math.Log(float64(numClasses)-1))
		a.Stumps = append(a.Stumps, stump)
		a.Weights = append(a.Weights, alpha)

		total := 0.0
		for i, row := range X {
			if stump.predict(row) != y[i] {
				sampleWeights[i] *= math.Exp(alpha)
			}
			total += sampleWeights[i]
		}
		for i := range sampleWeights {
			sampleWeights[i] /= total
		}
	}

	if len(a.Stumps) == 0 {
		// No stump beat chance. Fall back to a constant majority stump so
		// prediction still works.
		votes := make(map[int]int)
		for _, label := range y {
			votes[label]++
		}
		majority := argmaxVotes(votes)
		a.Stumps = []Stump{{LeftClass: majority, RightClass: majority, Threshold: math.Inf(1)}}
		a.Weights = []float64{1}
	}
	return nil
}

func (a *AdaBoost) Predict(X [][]float64) ([]int, error) {
	if len(a.Stumps) == 0 {
		return nil, errors.New("classify: adaboost is not fitted")
	}

	out := make([]int, len(X))
	for i, row := range X {
		scores := make(map[int]float64)
		for s, stump := range a.Stumps {
			scores[stump.predict(row)] += a.Weights[s]
		}
		best, bestScore := -1, math.Inf(-1)
		for label, score := range scores {
			if score > bestScore || (score == bestScore && label < best) {
				best, bestScore = label, score
			}
		}
		out[i] = best
	}
	return out, nil
}

// fitStump finds the threshold rule minimizing the weighted error.
func fitStump(X [][]float64, y []int, sampleWeights []float64) (Stump, error) {
	bestErr := math.Inf(1)
	var best Stump
	found := false

	numFeatures := len(X[0])
	for f := 0; f < numFeatures; f++ {
		values := make([]float64, len(X))
		for i, row := range X {
			values[i] = row[f]
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			mid := (values[i] + values[i-1]) / 2

			leftVotes := make(map[int]float64)
			rightVotes := make(map[int]float64)
			for j, row := range X {
				if row[f] <= mid {
					leftVotes[y[j]] += sampleWeights[j]
				} else {
					rightVotes[y[j]] += sampleWeights[j]
				}
			}
			left := argmaxWeighted(leftVotes)
			right := argmaxWeighted(rightVotes)

			stumpErr := 0.0
			for j, row := range X {
				pred := left
				if row[f] > mid {
					pred = right
				}
				if pred != y[j] {
					stumpErr += sampleWeights[j]
				}
			}
			if stumpErr < bestErr {
				bestErr = stumpErr
				best = Stump{Feature: f, Threshold: mid, LeftClass: left, RightClass: right}
				found = true
			}
		}
	}

	if !found {
		// All feature values identical: a constant stump is the best we get.
		votes := make(map[int]float64)
		for i, label := range y {
			votes[label] += sampleWeights[i]
		}
		majority := argmaxWeighted(votes)
		return Stump{LeftClass: majority, RightClass: majority, Threshold: math.Inf(1)}, nil
	}
	return best, nil
}

func argmaxWeighted(votes map[int]float64) int {
	best, bestWeight := -1, math.Inf(-1)
	for label, weight := range votes {
		if weight > bestWeight || (weight == bestWeight && label < best) {
			best, bestWeight = label, weight
		}
	}
	return best
}
