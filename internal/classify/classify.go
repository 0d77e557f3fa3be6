// Package classify implements the multiclass classifiers used to predict
// budget categories, plus the evaluation metrics and the deterministic
// train/test split that make their scores comparable.
package classify

import (
	"encoding/gob"

	"github.com/pkg/errors"
)

// Estimator is a trainable multiclass classifier over dense feature rows.
// Labels are dense non-negative integers as produced by the label encoder.
type Estimator interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) ([]int, error)
}

// Family identifies a classifier family. The set is closed: estimators are
// constructed through New, never by evaluating a name.
type Family string

const (
	FamilyKNN          Family = "k-nearest-neighbors"
	FamilyNaiveBayes   Family = "gaussian-naive-bayes"
	FamilyDecisionTree Family = "decision-tree"
	FamilyRandomForest Family = "random-forest"
	FamilySVM          Family = "linear-svm"
	FamilyMLP          Family = "neural-network"
	FamilyAdaBoost     Family = "adaboost"
)

// Families lists every supported family in a fixed order.
func Families() []Family {
	return []Family{
		FamilyKNN,
		FamilyNaiveBayes,
		FamilyDecisionTree,
		FamilyRandomForest,
		FamilySVM,
		FamilyMLP,
		FamilyAdaBoost,
	}
}

// Params holds the hyperparameters for one estimator instance. Values are
// JSON-friendly so they can be logged alongside run metadata as-is.
type Params map[string]any

// New constructs an estimator of the given family with the given
// hyperparameters. Missing parameters fall back to the family default.
func New(family Family, params Params) (Estimator, error) {
	switch family {
	case FamilyKNN:
		return &KNN{K: params.intOr("n_neighbors", 5)}, nil
	case FamilyNaiveBayes:
		return &GaussianNB{}, nil
	case FamilyDecisionTree:
		return &DecisionTree{
			Criterion: params.stringOr("criterion", CriterionGini),
			MaxDepth:  params.intOr("max_depth", 0),
		}, nil
	case FamilyRandomForest:
		return &RandomForest{
			NumTrees:  params.intOr("n_estimators", 100),
			Criterion: params.stringOr("criterion", CriterionGini),
			MaxDepth:  params.intOr("max_depth", 0),
		}, nil
	case FamilySVM:
		return &LinearSVM{C: params.floatOr("C", 1.0)}, nil
	case FamilyMLP:
		return &MLP{
			HiddenSize: params.intOr("hidden_layer_sizes", 100),
			Activation: params.stringOr("activation", ActivationReLU),
			Alpha:      params.floatOr("alpha", 1e-4),
		}, nil
	case FamilyAdaBoost:
		return &AdaBoost{
			NumEstimators: params.intOr("n_estimators", 50),
			LearningRate:  params.floatOr("learning_rate", 1.0),
		}, nil
	default:
		return nil, errors.Errorf("classify: unknown family %q", family)
	}
}

// Spaces returns the hyperparameter grid per family. Each entry is a full
// parameter set for one candidate estimator.
func Spaces() map[Family][]Params {
	return map[Family][]Params{
		FamilyKNN: grid(axis{"n_neighbors", []any{3, 5, 8, 13, 21}}),
		FamilyNaiveBayes: {
			{},
		},
		FamilyDecisionTree: grid(
			axis{"criterion", []any{CriterionGini, CriterionEntropy}},
			axis{"max_depth", []any{3, 5, 10, 0}},
		),
		FamilyRandomForest: grid(
			axis{"n_estimators", []any{50, 100, 200}},
			axis{"max_depth", []any{5, 10, 0}},
		),
		FamilySVM: grid(axis{"C", []any{0.1, 1.0, 10.0}}),
		FamilyMLP: grid(
			axis{"hidden_layer_sizes", []any{25, 50, 100}},
			axis{"activation", []any{ActivationReLU, ActivationTanh}},
			axis{"alpha", []any{1e-4, 1e-3}},
		),
		FamilyAdaBoost: grid(
			axis{"n_estimators", []any{25, 50, 100}},
			axis{"learning_rate", []any{0.5, 1.0}},
		),
	}
}

type axis struct {
	name   string
	values []any
}

// grid expands axes into their cartesian product.
func grid(axes ...axis) []Params {
	out := []Params{{}}
	for _, a := range axes {
		var next []Params
		for _, p := range out {
			for _, v := range a.values {
				expanded := make(Params, len(p)+1)
				for k, pv := range p {
					expanded[k] = pv
				}
				expanded[a.name] = v
				next = append(next, expanded)
			}
		}
		out = next
	}
	return out
}

func (p Params) intOr(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func (p Params) floatOr(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

func (p Params) stringOr(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

func init() {
	// Estimators travel inside gob-encoded model bundles behind the
	// Estimator interface, so every concrete type must be registered.
	gob.Register(&KNN{})
	gob.Register(&GaussianNB{})
	gob.Register(&DecisionTree{})
	gob.Register(&RandomForest{})
	gob.Register(&LinearSVM{})
	gob.Register(&MLP{})
	gob.Register(&AdaBoost{})
}
