package selection

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanherk/bunqynab/internal/classify"
	"github.com/svanherk/bunqynab/internal/dataset"
	"github.com/svanherk/bunqynab/internal/logging"
	"github.com/svanherk/bunqynab/internal/mlops"
	"github.com/svanherk/bunqynab/pkg/bunq"
	"github.com/svanherk/bunqynab/pkg/ynab"
)

func payment(description, amount string, day int) *bunq.Payment {
	return &bunq.Payment{
		Description: description,
		Amount:      bunq.Amount{Value: amount, Currency: "EUR"},
		Created:     bunq.Timestamp{Time: time.Date(2024, 1, 1+day%28, 12, 0, 0, 0, time.UTC)},
	}
}

// trainingSet builds a well-separated two-category dataset.
func trainingSet(t *testing.T) *dataset.Dataset {
	t.Helper()

	var payments []*bunq.Payment
	var categories []string
	for i := 0; i < 20; i++ {
		payments = append(payments, payment(fmt.Sprintf("Albert Heijn groceries %d", i), "-15.50", i))
		categories = append(categories, "Groceries")
		payments = append(payments, payment(fmt.Sprintf("Employer BV salary %d", i), "2000.00", i))
		categories = append(categories, "Salary")
	}

	encoder := dataset.FitLabels(categories)
	return &dataset.Dataset{
		Budget:  &ynab.Budget{ID: "b-1", Name: "Test"},
		X:       payments,
		Y:       encoder.Transform(categories),
		Encoder: encoder,
	}
}

func TestSelector_Run(t *testing.T) {
	tracker := mlops.NewTracker(t.TempDir())
	selector := NewSelector(tracker, logging.NewWithWriter(nil))

	result, err := selector.Run(trainingSet(t))
	require.NoError(t, err)

	assert.Contains(t, classify.Families(), result.Family)
	assert.Equal(t, 40, result.TrainedOn)
	assert.GreaterOrEqual(t, result.Metrics.CohensKappa, 0.9)
	require.NotNil(t, result.Bundle)

	// The deployed bundle categorizes a fresh payment end to end.
	row, err := result.Bundle.Extractor.TransformOne(payment("Albert Heijn groceries new", "-12.30", 3))
	require.NoError(t, err)
	preds, err := result.Bundle.Estimator.Predict([][]float64{row})
	require.NoError(t, err)
	label, ok := result.Bundle.Encoder.Decode(preds[0])
	require.True(t, ok)
	assert.Equal(t, "Groceries", label)
}

func TestSelector_Run_RecordsRuns(t *testing.T) {
	tracker := mlops.NewTracker(t.TempDir())
	selector := NewSelector(tracker, logging.NewWithWriter(nil))

	result, err := selector.Run(trainingSet(t))
	require.NoError(t, err)

	runs, err := tracker.SearchRuns("b-1", "cohens_kappa")
	require.NoError(t, err)

	// One child run per family candidate, one per grid point of the winning
	// family, plus the parent run.
	expected := len(classify.Families()) + len(classify.Spaces()[result.Family]) + 1
	assert.Len(t, runs, expected)
	assert.Equal(t, result.Metrics.CohensKappa, runs[0].Metrics["cohens_kappa"])
}

func TestSelector_Run_EmptyDataset(t *testing.T) {
	selector := NewSelector(mlops.NewTracker(t.TempDir()), logging.NewWithWriter(nil))

	_, err := selector.Run(&dataset.Dataset{Budget: &ynab.Budget{ID: "b-1"}})
	assert.Error(t, err)
}

func TestSelector_Run_TooFewTransactions(t *testing.T) {
	selector := NewSelector(mlops.NewTracker(t.TempDir()), logging.NewWithWriter(nil))

	encoder := dataset.FitLabels([]string{"Groceries"})
	_, err := selector.Run(&dataset.Dataset{
		Budget:  &ynab.Budget{ID: "b-1"},
		X:       []*bunq.Payment{payment("one", "-1.00", 0)},
		Y:       []int{0},
		Encoder: encoder,
	})
	assert.Error(t, err)
}

func TestDeployer_Deploy(t *testing.T) {
	dir := t.TempDir()
	tracker := mlops.NewTracker(dir)
	registry := mlops.NewRegistry(dir)
	flags := mlops.NewFlags(dir)
	logger := logging.NewWithWriter(nil)

	result, err := NewSelector(tracker, logger).Run(trainingSet(t))
	require.NoError(t, err)

	version, err := NewDeployer(registry, flags, logger).Deploy(result)
	require.NoError(t, err)
	assert.Equal(t, 1, version.Version)

	bundle, mv, err := registry.Production(mlops.ModelName("b-1"))
	require.NoError(t, err)
	assert.Equal(t, mlops.StageProduction, mv.Stage)
	assert.Contains(t, mv.Description, "on 40 transactions")
	assert.NotNil(t, bundle.Estimator)

	assert.True(t, flags.ReloadRequested("b-1"))
	_, trained := flags.TrainedAt("b-1")
	assert.True(t, trained)

	// A second deploy supersedes the first in production.
	version2, err := NewDeployer(registry, flags, logger).Deploy(result)
	require.NoError(t, err)
	assert.Equal(t, 2, version2.Version)

	_, mv, err = registry.Production(mlops.ModelName("b-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, mv.Version)
}
