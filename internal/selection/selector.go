// Package selection runs the per-budget model selection pipeline: try every
// classifier family, tune the winning family's hyperparameters, train the
// final model on the full dataset, and hand it to deployment.
package selection

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/svanherk/bunqynab/internal/classify"
	"github.com/svanherk/bunqynab/internal/dataset"
	"github.com/svanherk/bunqynab/internal/features"
	"github.com/svanherk/bunqynab/internal/mlops"
	"github.com/svanherk/bunqynab/pkg/bunq"
	"github.com/svanherk/bunqynab/pkg/ynab"
)

// Stages of the selection pipeline, in order.
type Stage string

const (
	StageSelectingFamily          Stage = "selecting-family"
	StageSelectingHyperparameters Stage = "selecting-hyperparameters"
	StageFullyTraining            Stage = "fully-training"
	StageDone                     Stage = "done"
)

// rankingMetric decides which candidate wins a stage.
const rankingMetric = "cohens_kappa"

// Result is the outcome of a completed selection run: the winning estimator
// trained on the full dataset, ready for registration.
type Result struct {
	Budget    *ynab.Budget
	Family    classify.Family
	Params    classify.Params
	Metrics   classify.Metrics
	Bundle    *mlops.Bundle
	TrainedOn int
	TrainedAt time.Time
}

// Selector drives the selection stages for one budget at a time. Individual
// candidate failures are logged and skipped; a stage that ends with no
// surviving candidate fails the budget.
type Selector struct {
	tracker *mlops.Tracker
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSelector creates a selector recording into the given tracker.
func NewSelector(tracker *mlops.Tracker, logger zerolog.Logger) *Selector {
	return &Selector{tracker: tracker, logger: logger, now: time.Now}
}

// Run executes the full pipeline on the budget's dataset.
func (s *Selector) Run(ds *dataset.Dataset) (*Result, error) {
	if !ds.Valid() {
		return nil, errors.Errorf("selection: budget %s has no trainable dataset", ds.Budget.ID)
	}

	eval, err := newEvaluation(ds)
	if err != nil {
		return nil, err
	}

	parent := s.tracker.StartRun(ds.Budget.ID, "")
	parent.SetTag("budget", ds.Budget.ID)

	stage := StageSelectingFamily
	logger := s.logger.With().Str("budget", ds.Budget.ID).Logger()

	family, familyMetrics, err := s.selectFamily(eval, parent.ID, logger)
	if err != nil {
		return nil, s.fail(parent, stage, err)
	}
	logger.Info().
		Str("family", string(family)).
		Float64(rankingMetric, familyMetrics.CohensKappa).
		Msg("selected classifier family")

	stage = StageSelectingHyperparameters
	params, metrics, err := s.selectHyperparameters(eval, family, parent.ID, logger)
	if err != nil {
		return nil, s.fail(parent, stage, err)
	}
	logger.Info().
		Interface("params", params).
		Float64(rankingMetric, metrics.CohensKappa).
		Msg("selected hyperparameters")

	stage = StageFullyTraining
	bundle, err := fullyTrain(ds, family, params)
	if err != nil {
		return nil, s.fail(parent, stage, err)
	}

	parent.SetTag("stage", string(StageDone))
	parent.SetTag("family", string(family))
	parent.LogParams(params)
	parent.LogMetrics(metricsMap(metrics))
	if err := s.tracker.EndRun(parent); err != nil {
		return nil, err
	}

	return &Result{
		Budget:    ds.Budget,
		Family:    family,
		Params:    params,
		Metrics:   metrics,
		Bundle:    bundle,
		TrainedOn: len(ds.X),
		TrainedAt: s.now(),
	}, nil
}

// selectFamily scores one default-configured estimator per family and picks
// the best by Cohen's kappa.
func (s *Selector) selectFamily(eval *evaluation, parentID string, logger zerolog.Logger) (classify.Family, classify.Metrics, error) {
	var best classify.Family
	var bestMetrics classify.Metrics
	found := false

	for _, family := range classify.Families() {
		metrics, err := s.scoreCandidate(eval, family, nil, parentID)
		if err != nil {
			logger.Warn().Err(err).Str("family", string(family)).Msg("candidate family failed, skipping")
			continue
		}
		if !found || metrics.CohensKappa > bestMetrics.CohensKappa {
			best, bestMetrics, found = family, metrics, true
		}
	}
	if !found {
		return "", classify.Metrics{}, errors.New("selection: every classifier family failed")
	}
	return best, bestMetrics, nil
}

// selectHyperparameters scores every grid point of the family and picks the
// best by Cohen's kappa.
func (s *Selector) selectHyperparameters(eval *evaluation, family classify.Family, parentID string, logger zerolog.Logger) (classify.Params, classify.Metrics, error) {
	var best classify.Params
	var bestMetrics classify.Metrics
	found := false

	for _, params := range classify.Spaces()[family] {
		metrics, err := s.scoreCandidate(eval, family, params, parentID)
		if err != nil {
			logger.Warn().Err(err).Interface("params", params).Msg("candidate failed, skipping")
			continue
		}
		if !found || metrics.CohensKappa > bestMetrics.CohensKappa {
			best, bestMetrics, found = params, metrics, true
		}
	}
	if !found {
		return nil, classify.Metrics{}, errors.Errorf("selection: every %s candidate failed", family)
	}
	return best, bestMetrics, nil
}

// scoreCandidate fits one candidate on the train split, scores it on the
// test split, and records a child run either way.
func (s *Selector) scoreCandidate(eval *evaluation, family classify.Family, params classify.Params, parentID string) (classify.Metrics, error) {
	run := s.tracker.StartRun(eval.budgetID, parentID)
	run.SetTag("family", string(family))
	run.LogParams(params)

	metrics, err := eval.score(family, params)
	if err != nil {
		run.SetTag("failed", err.Error())
		if endErr := s.tracker.EndRun(run); endErr != nil {
			return classify.Metrics{}, endErr
		}
		return classify.Metrics{}, err
	}

	run.LogMetrics(metricsMap(metrics))
	if err := s.tracker.EndRun(run); err != nil {
		return classify.Metrics{}, err
	}
	return metrics, nil
}

func (s *Selector) fail(parent *mlops.Run, stage Stage, err error) error {
	parent.SetTag("stage", string(stage))
	parent.SetTag("failed", err.Error())
	if endErr := s.tracker.EndRun(parent); endErr != nil {
		return endErr
	}
	return errors.Wrapf(err, "failed in stage %s", stage)
}

// evaluation holds the fixed train/test matrices every candidate is scored
// on. The extractor is fitted on the train split only, so test rows carry no
// vocabulary leakage.
type evaluation struct {
	budgetID      string
	trainX, testX [][]float64
	trainY, testY []int
}

func newEvaluation(ds *dataset.Dataset) (*evaluation, error) {
	trainIdx, testIdx := classify.Split(len(ds.X))
	if len(testIdx) == 0 {
		return nil, errors.Errorf("selection: budget %s has too few transactions to hold out a test set", ds.Budget.ID)
	}

	trainPayments := make([]*bunq.Payment, len(trainIdx))
	for i, j := range trainIdx {
		trainPayments[i] = ds.X[j]
	}
	testPayments := make([]*bunq.Payment, len(testIdx))
	for i, j := range testIdx {
		testPayments[i] = ds.X[j]
	}

	extractor := &features.Extractor{}
	if err := extractor.Fit(trainPayments); err != nil {
		return nil, err
	}
	trainX, err := extractor.Transform(trainPayments)
	if err != nil {
		return nil, err
	}
	testX, err := extractor.Transform(testPayments)
	if err != nil {
		return nil, err
	}

	return &evaluation{
		budgetID: ds.Budget.ID,
		trainX:   trainX,
		testX:    testX,
		trainY:   pick(ds.Y, trainIdx),
		testY:    pick(ds.Y, testIdx),
	}, nil
}

func pick(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

// score fits one candidate on the train matrix and evaluates it on the test
// matrix.
func (e *evaluation) score(family classify.Family, params classify.Params) (classify.Metrics, error) {
	est, err := classify.New(family, params)
	if err != nil {
		return classify.Metrics{}, err
	}
	if err := est.Fit(e.trainX, e.trainY); err != nil {
		return classify.Metrics{}, err
	}
	preds, err := est.Predict(e.testX)
	if err != nil {
		return classify.Metrics{}, err
	}
	return classify.Evaluate(e.testY, preds), nil
}

// fullyTrain refits the winning candidate on the complete dataset with a
// fresh extractor, producing the deployable bundle.
func fullyTrain(ds *dataset.Dataset, family classify.Family, params classify.Params) (*mlops.Bundle, error) {
	extractor := &features.Extractor{}
	if err := extractor.Fit(ds.X); err != nil {
		return nil, err
	}
	X, err := extractor.Transform(ds.X)
	if err != nil {
		return nil, err
	}

	est, err := classify.New(family, params)
	if err != nil {
		return nil, err
	}
	if err := est.Fit(X, ds.Y); err != nil {
		return nil, errors.Wrap(err, "failed to train final model")
	}

	return &mlops.Bundle{
		Extractor: extractor,
		Estimator: est,
		Encoder:   ds.Encoder,
	}, nil
}

func metricsMap(m classify.Metrics) map[string]float64 {
	return map[string]float64{
		"accuracy":    m.Accuracy,
		"precision":   m.Precision,
		"f1":          m.F1,
		rankingMetric: m.CohensKappa,
	}
}
