package mlops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanherk/bunqynab/internal/classify"
	"github.com/svanherk/bunqynab/internal/dataset"
	"github.com/svanherk/bunqynab/internal/features"
)

func TestTracker_SearchRunsSortedByMetric(t *testing.T) {
	tracker := NewTracker(t.TempDir())

	parent := tracker.StartRun("budget-1", "")
	require.NoError(t, tracker.EndRun(parent))

	scores := []float64{0.4, 0.9, 0.7}
	for _, score := range scores {
		run := tracker.StartRun("budget-1", parent.ID)
		run.LogParams(map[string]any{"n_neighbors": 5})
		run.LogMetrics(map[string]float64{"cohens_kappa": score})
		require.NoError(t, tracker.EndRun(run))
	}

	runs, err := tracker.SearchRuns("budget-1", "cohens_kappa")
	require.NoError(t, err)
	require.Len(t, runs, 4)

	assert.Equal(t, 0.9, runs[0].Metrics["cohens_kappa"])
	assert.Equal(t, 0.7, runs[1].Metrics["cohens_kappa"])
	assert.Equal(t, 0.4, runs[2].Metrics["cohens_kappa"])
	// The parent run has no metric and sorts last.
	assert.Equal(t, parent.ID, runs[3].ID)
	assert.Equal(t, parent.ID, runs[0].ParentID)
}

func TestTracker_ChildRuns(t *testing.T) {
	tracker := NewTracker(t.TempDir())

	parent := tracker.StartRun("budget-1", "")
	require.NoError(t, tracker.EndRun(parent))

	child := tracker.StartRun("budget-1", parent.ID)
	child.LogMetrics(map[string]float64{"cohens_kappa": 0.8})
	require.NoError(t, tracker.EndRun(child))

	children, err := tracker.ChildRuns("budget-1", parent.ID, "cohens_kappa")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)
}

func TestTracker_SearchRuns_UnknownExperiment(t *testing.T) {
	runs, err := NewTracker(t.TempDir()).SearchRuns("nope", "accuracy")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	est, err := classify.New(classify.FamilyKNN, classify.Params{"n_neighbors": 1})
	require.NoError(t, err)
	require.NoError(t, est.Fit([][]float64{{0, 0}, {1, 1}}, []int{0, 1}))
	return &Bundle{
		Extractor: &features.Extractor{Terms: []string{}, IDF: []float64{}},
		Estimator: est,
		Encoder:   dataset.FitLabels([]string{"Groceries", "Rent"}),
	}
}

func TestRegistry_RegisterAndPromote(t *testing.T) {
	registry := NewRegistry(t.TempDir())
	name := ModelName("budget-1")

	v1, err := registry.Register(name, testBundle(t), "first")
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, StageNone, v1.Stage)

	v2, err := registry.Register(name, testBundle(t), "second")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	require.NoError(t, registry.Promote(name, 1))
	require.NoError(t, registry.Promote(name, 2))

	// Promotion demotes every other version.
	versions, err := registry.Versions(name)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, StageNone, versions[0].Stage)
	assert.Equal(t, StageProduction, versions[1].Stage)

	bundle, mv, err := registry.Production(name)
	require.NoError(t, err)
	assert.Equal(t, 2, mv.Version)
	assert.Equal(t, "second", mv.Description)

	preds, err := bundle.Estimator.Predict([][]float64{{0.9, 0.9}})
	require.NoError(t, err)
	label, ok := bundle.Encoder.Decode(preds[0])
	require.True(t, ok)
	assert.Equal(t, "Rent", label)
}

func TestRegistry_Production_NoneRegistered(t *testing.T) {
	registry := NewRegistry(t.TempDir())

	_, _, err := registry.Production(ModelName("budget-1"))
	assert.ErrorIs(t, err, ErrNoProductionModel)
}

func TestRegistry_Promote_UnknownVersion(t *testing.T) {
	registry := NewRegistry(t.TempDir())
	name := ModelName("budget-1")
	_, err := registry.Register(name, testBundle(t), "")
	require.NoError(t, err)

	assert.Error(t, registry.Promote(name, 7))
}

func TestProvenance(t *testing.T) {
	trained := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "trained on 2024-03-09, on 1234 transactions", Provenance(trained, 1234))
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "Classifier for Budget b-1", ModelName("b-1"))
}

func TestFlags_ReloadCycle(t *testing.T) {
	flags := NewFlags(t.TempDir())

	assert.False(t, flags.ReloadRequested("b-1"))
	require.NoError(t, flags.SignalReload("b-1"))
	assert.True(t, flags.ReloadRequested("b-1"))
	assert.False(t, flags.ReloadRequested("b-2"))

	require.NoError(t, flags.ClearReload("b-1"))
	assert.False(t, flags.ReloadRequested("b-1"))

	// Clearing an absent flag is a no-op.
	require.NoError(t, flags.ClearReload("b-1"))
}

func TestFlags_Trained(t *testing.T) {
	flags := NewFlags(t.TempDir())

	_, ok := flags.TrainedAt("b-1")
	assert.False(t, ok)

	require.NoError(t, flags.MarkTrained("b-1"))
	trainedAt, ok := flags.TrainedAt("b-1")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), trainedAt, time.Minute)
}

func TestPorts_AssignAndLookup(t *testing.T) {
	ports := NewPorts(t.TempDir())

	assigned, err := ports.Assign([]string{"b-2", "b-1"}, 5100)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"b-1": 5100, "b-2": 5101}, assigned)

	// The assignment persists and reloads.
	loaded, err := ports.Load()
	require.NoError(t, err)
	assert.Equal(t, assigned, loaded)

	port, ok, err := ports.Lookup("b-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5101, port)

	_, ok, err = ports.Lookup("b-3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPorts_LoadMissingFile(t *testing.T) {
	loaded, err := NewPorts(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
