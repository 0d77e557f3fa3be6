package selection

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/svanherk/bunqynab/internal/mlops"
)

// Deployer publishes a selection result: register the bundle as a new model
// version, promote it to production, and signal the budget's model server to
// reload.
type Deployer struct {
	registry *mlops.Registry
	flags    *mlops.Flags
	logger   zerolog.Logger
}

// NewDeployer creates a deployer.
func NewDeployer(registry *mlops.Registry, flags *mlops.Flags, logger zerolog.Logger) *Deployer {
	return &Deployer{registry: registry, flags: flags, logger: logger}
}

// Deploy registers and promotes the result's bundle.
func (d *Deployer) Deploy(result *Result) (*mlops.ModelVersion, error) {
	name := mlops.ModelName(result.Budget.ID)
	description := mlops.Provenance(result.TrainedAt, result.TrainedOn)

	version, err := d.registry.Register(name, result.Bundle, description)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to register model for budget %s", result.Budget.ID)
	}
	if err := d.registry.Promote(name, version.Version); err != nil {
		return nil, errors.Wrapf(err, "failed to promote model for budget %s", result.Budget.ID)
	}

	if err := d.flags.MarkTrained(result.Budget.ID); err != nil {
		return nil, err
	}
	if err := d.flags.SignalReload(result.Budget.ID); err != nil {
		return nil, err
	}

	d.logger.Info().
		Str("budget", result.Budget.ID).
		Str("model", name).
		Int("version", version.Version).
		Str("family", string(result.Family)).
		Int("transactions", result.TrainedOn).
		Msg("deployed model to production")
	return version, nil
}
