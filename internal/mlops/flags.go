package mlops

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Flags are the touch-file signals exchanged between the training pipeline
// and the model servers. A reload flag tells a budget's server to pick up a
// freshly promoted model; the trained flag records when a budget last
// finished training.
type Flags struct {
	dir string
}

// NewFlags creates the flag store rooted at dir.
func NewFlags(dir string) *Flags {
	return &Flags{dir: filepath.Join(dir, "flags")}
}

// SignalReload asks the budget's model server to reload its model.
func (f *Flags) SignalReload(budgetID string) error {
	return f.touch("reload-" + budgetID)
}

// ReloadRequested reports whether a reload signal is pending for the budget.
func (f *Flags) ReloadRequested(budgetID string) bool {
	_, err := os.Stat(f.path("reload-" + budgetID))
	return err == nil
}

// ClearReload acknowledges a reload signal.
func (f *Flags) ClearReload(budgetID string) error {
	err := os.Remove(f.path("reload-" + budgetID))
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(err, "failed to clear reload flag")
}

// MarkTrained records that the budget's model finished training just now.
func (f *Flags) MarkTrained(budgetID string) error {
	return f.touch("trained-" + budgetID)
}

// TrainedAt returns when the budget last finished training.
func (f *Flags) TrainedAt(budgetID string) (time.Time, bool) {
	info, err := os.Stat(f.path("trained-" + budgetID))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func (f *Flags) touch(name string) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create flags directory")
	}
	now := time.Now()
	path := f.path(name)
	if err := os.Chtimes(path, now, now); err == nil {
		return nil
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create flag file")
	}
	return errors.Wrap(file.Close(), "failed to close flag file")
}

func (f *Flags) path(name string) string {
	return filepath.Join(f.dir, name)
}
