// Package mlops provides the local experiment tracking and model registry
// the training pipeline records into, plus the small file-based signals the
// serving side watches.
package mlops

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Run is one recorded training run. Runs nest: a parent run covers a whole
// selection stage, child runs cover individual candidates.
type Run struct {
	ID         string             `json:"id"`
	Experiment string             `json:"experiment"`
	ParentID   string             `json:"parent_id,omitempty"`
	Tags       map[string]string  `json:"tags,omitempty"`
	Params     map[string]any     `json:"params,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	EndedAt    time.Time          `json:"ended_at,omitempty"`
}

// Tracker records runs as JSON files under dir/experiments.
type Tracker struct {
	dir string
	now func() time.Time
}

// NewTracker creates a tracker rooted at dir.
func NewTracker(dir string) *Tracker {
	return &Tracker{dir: dir, now: time.Now}
}

// StartRun opens a new run in the experiment. parentID may be empty.
func (t *Tracker) StartRun(experiment, parentID string) *Run {
	return &Run{
		ID:         uuid.NewString(),
		Experiment: experiment,
		ParentID:   parentID,
		Tags:       map[string]string{},
		Params:     map[string]any{},
		Metrics:    map[string]float64{},
		StartedAt:  t.now(),
	}
}

// LogParams merges parameters into the run.
func (r *Run) LogParams(params map[string]any) {
	for k, v := range params {
		r.Params[k] = v
	}
}

// LogMetrics merges metric values into the run.
func (r *Run) LogMetrics(metrics map[string]float64) {
	for k, v := range metrics {
		r.Metrics[k] = v
	}
}

// SetTag sets a single tag on the run.
func (r *Run) SetTag(key, value string) {
	r.Tags[key] = value
}

// EndRun stamps the run and persists it.
func (t *Tracker) EndRun(run *Run) error {
	run.EndedAt = t.now()

	dir := filepath.Join(t.dir, "experiments", run.Experiment, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create run directory")
	}
	return writeJSON(filepath.Join(dir, "run.json"), run)
}

// SearchRuns returns the experiment's finished runs sorted by the given
// metric, best first. Runs missing the metric sort last.
func (t *Tracker) SearchRuns(experiment, metric string) ([]*Run, error) {
	dir := filepath.Join(t.dir, "experiments", experiment)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list experiment runs")
	}

	var runs []*Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var run Run
		if err := readJSON(filepath.Join(dir, entry.Name(), "run.json"), &run); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		vi, oki := runs[i].Metrics[metric]
		vj, okj := runs[j].Metrics[metric]
		if oki != okj {
			return oki
		}
		return vi > vj
	})
	return runs, nil
}

// ChildRuns returns the runs nested under a parent, sorted by the metric.
func (t *Tracker) ChildRuns(experiment, parentID, metric string) ([]*Run, error) {
	runs, err := t.SearchRuns(experiment, metric)
	if err != nil {
		return nil, err
	}
	var children []*Run
	for _, run := range runs {
		if run.ParentID == parentID {
			children = append(children, run)
		}
	}
	return children, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal json")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write json file")
	}
	return errors.Wrap(os.Rename(tmp, path), "failed to replace json file")
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read json file")
	}
	return errors.Wrap(json.Unmarshal(data, v), "failed to parse json file")
}
