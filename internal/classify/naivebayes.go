package classify

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// GaussianNB is a gaussian naive Bayes classifier. Per class it stores the
// feature means and variances plus the log prior; prediction picks the class
// with the highest joint log likelihood.
type GaussianNB struct {
	Classes   []int
	Means     [][]float64
	Variances [][]float64
	LogPriors []float64
}

// varianceFloor keeps degenerate (constant) features from collapsing the
// likelihood, scaled by the largest observed variance.
const varianceFloor = 1e-9

func (g *GaussianNB) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("classify: naive bayes needs a non-empty aligned training set")
	}

	byClass := groupByClass(X, y)
	g.Classes = sortedClasses(byClass)
	numFeatures := len(X[0])

	maxVar := 0.0
	g.Means = make([][]float64, len(g.Classes))
	g.Variances = make([][]float64, len(g.Classes))
	g.LogPriors = make([]float64, len(g.Classes))
	for ci, class := range g.Classes {
		rows := byClass[class]
		g.LogPriors[ci] = math.Log(float64(len(rows)) / float64(len(X)))
		g.Means[ci] = make([]float64, numFeatures)
		g.Variances[ci] = make([]float64, numFeatures)
		for f := 0; f < numFeatures; f++ {
			mean := 0.0
			for _, row := range rows {
				mean += row[f]
			}
			mean /= float64(len(rows))
			variance := 0.0
			for _, row := range rows {
				d := row[f] - mean
				variance += d * d
			}
			variance /= float64(len(rows))
			g.Means[ci][f] = mean
			g.Variances[ci][f] = variance
			if variance > maxVar {
				maxVar = variance
			}
		}
	}

	smoothing := varianceFloor * maxVar
	if smoothing == 0 {
		smoothing = varianceFloor
	}
	for ci := range g.Variances {
		for f := range g.Variances[ci] {
			g.Variances[ci][f] += smoothing
		}
	}
	return nil
}

func (g *GaussianNB) Predict(X [][]float64) ([]int, error) {
	if g.Classes == nil {
		return nil, errors.New("classify: naive bayes is not fitted")
	}

	out := make([]int, len(X))
	for i, row := range X {
		best, bestScore := g.Classes[0], math.Inf(-1)
		for ci, class := range g.Classes {
			score := g.LogPriors[ci]
			for f, v := range row {
				variance := g.Variances[ci][f]
				d := v - g.Means[ci][f]
				score -= 0.5 * (math.Log(2*math.Pi*variance) + d*d/variance)
			}
			if score > bestScore {
				best, bestScore = class, score
			}
		}
		out[i] = best
	}
	return out, nil
}

func groupByClass(X [][]float64, y []int) map[int][][]float64 {
	byClass := make(map[int][][]float64)
	for i, row := range X {
		byClass[y[i]] = append(byClass[y[i]], row)
	}
	return byClass
}

func sortedClasses(byClass map[int][][]float64) []int {
	classes := make([]int, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	return classes
}
