package mlops

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/svanherk/bunqynab/internal/classify"
	"github.com/svanherk/bunqynab/internal/dataset"
	"github.com/svanherk/bunqynab/internal/features"
)

// Bundle is everything the serving side needs to categorize a payment: the
// fitted feature extractor, the estimator, and the label encoder to map
// predictions back to category names.
type Bundle struct {
	Extractor *features.Extractor
	Estimator classify.Estimator
	Encoder   *dataset.LabelEncoder
}

// Stages a registered model version can be in. At most one version per model
// holds StageProduction.
const (
	StageNone       = "none"
	StageProduction = "production"
)

// ModelVersion is the registry metadata for one registered bundle.
type ModelVersion struct {
	Name        string    `json:"name"`
	Version     int       `json:"version"`
	Stage       string    `json:"stage"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrNoProductionModel is returned when a model has no version in the
// production stage.
var ErrNoProductionModel = errors.New("mlops: no production model version")

// Registry stores model versions under dir/models/<name>/<version>. Each
// version holds a gob-encoded bundle plus a metadata file.
type Registry struct {
	dir string
	now func() time.Time
}

// NewRegistry creates a registry rooted at dir.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, now: time.Now}
}

// ModelName returns the registry name for a budget's classifier.
func ModelName(budgetID string) string {
	return fmt.Sprintf("Classifier for Budget %s", budgetID)
}

// Provenance formats the description recorded with a registered version.
func Provenance(trainedAt time.Time, numTransactions int) string {
	return fmt.Sprintf("trained on %s, on %d transactions",
		trainedAt.Format("2006-01-02"), numTransactions)
}

// Register stores a new version of the named model and returns its metadata.
// New versions start outside the production stage.
func (r *Registry) Register(name string, bundle *Bundle, description string) (*ModelVersion, error) {
	versions, err := r.Versions(name)
	if err != nil {
		return nil, err
	}
	next := 1
	if len(versions) > 0 {
		next = versions[len(versions)-1].Version + 1
	}

	dir := r.versionDir(name, next)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create model version directory")
	}

	f, err := os.Create(filepath.Join(dir, "model.gob"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create model file")
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(bundle); err != nil {
		return nil, errors.Wrap(err, "failed to encode model bundle")
	}

	mv := &ModelVersion{
		Name:        name,
		Version:     next,
		Stage:       StageNone,
		Description: description,
		CreatedAt:   r.now(),
	}
	if err := writeJSON(filepath.Join(dir, "meta.json"), mv); err != nil {
		return nil, err
	}
	return mv, nil
}

// Promote moves the given version into production and demotes every other
// version of the same model, so production stays unambiguous.
func (r *Registry) Promote(name string, version int) error {
	versions, err := r.Versions(name)
	if err != nil {
		return err
	}

	found := false
	for _, mv := range versions {
		stage := StageNone
		if mv.Version == version {
			stage = StageProduction
			found = true
		}
		if mv.Stage == stage {
			continue
		}
		mv.Stage = stage
		if err := writeJSON(filepath.Join(r.versionDir(name, mv.Version), "meta.json"), mv); err != nil {
			return err
		}
	}
	if !found {
		return errors.Errorf("mlops: model %q has no version %d", name, version)
	}
	return nil
}

// Production loads the bundle and metadata of the model's production version.
func (r *Registry) Production(name string) (*Bundle, *ModelVersion, error) {
	versions, err := r.Versions(name)
	if err != nil {
		return nil, nil, err
	}
	for _, mv := range versions {
		if mv.Stage != StageProduction {
			continue
		}
		bundle, err := r.loadBundle(name, mv.Version)
		if err != nil {
			return nil, nil, err
		}
		return bundle, mv, nil
	}
	return nil, nil, errors.Wrapf(ErrNoProductionModel, "model %q", name)
}

// Versions lists the model's versions in ascending version order.
func (r *Registry) Versions(name string) ([]*ModelVersion, error) {
	dir := filepath.Join(r.dir, "models", sanitize(name))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list model versions")
	}

	var versions []*ModelVersion
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(entry.Name()); err != nil {
			continue
		}
		var mv ModelVersion
		if err := readJSON(filepath.Join(dir, entry.Name(), "meta.json"), &mv); err != nil {
			return nil, err
		}
		versions = append(versions, &mv)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	return versions, nil
}

func (r *Registry) loadBundle(name string, version int) (*Bundle, error) {
	f, err := os.Open(filepath.Join(r.versionDir(name, version), "model.gob"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open model file")
	}
	defer f.Close()

	var bundle Bundle
	if err := gob.NewDecoder(f).Decode(&bundle); err != nil {
		return nil, errors.Wrap(err, "failed to decode model bundle")
	}
	return &bundle, nil
}

func (r *Registry) versionDir(name string, version int) string {
	return filepath.Join(r.dir, "models", sanitize(name), strconv.Itoa(version))
}

// sanitize maps a model name onto a safe directory name.
func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
