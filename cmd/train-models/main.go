// The train-models command runs the full training pipeline for every budget:
// build the dataset, select and tune a classifier, train it on all matched
// transactions and deploy it to production. One failing budget does not stop
// the others.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/getsentry/sentry-go"

	"github.com/svanherk/bunqynab/internal/app"
	"github.com/svanherk/bunqynab/internal/dataset"
	"github.com/svanherk/bunqynab/internal/selection"
)

func main() {
	a, err := app.Bootstrap("train-models")
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := run(a); err != nil {
		a.Logger.Fatal().Err(err).Msg("training failed")
	}
}

func run(a *app.App) error {
	ctx := context.Background()

	budgets, err := a.Ynab.Budgets.List(ctx)
	if err != nil {
		return err
	}

	builder := dataset.NewBuilder(
		a.Bunq.Accounts,
		a.Bunq.Payments,
		a.Ynab.Accounts,
		a.Ynab.Transactions,
		a.Cache,
		a.Logger,
	)
	selector := selection.NewSelector(a.Tracker, a.Logger)
	deployer := selection.NewDeployer(a.Registry, a.Flags, a.Logger)

	deployed := 0
	for _, budget := range budgets {
		logger := a.Logger.With().Str("budget", budget.ID).Str("name", budget.Name).Logger()

		ds, err := builder.Build(ctx, budget)
		if err != nil {
			logger.Error().Err(err).Msg("dataset build failed, skipping budget")
			sentry.CaptureException(err)
			continue
		}
		if !ds.Valid() {
			logger.Warn().Msg("no matched transactions, skipping budget")
			continue
		}
		logger.Info().Int("transactions", len(ds.X)).Msg("dataset built")

		result, err := selector.Run(ds)
		if err != nil {
			logger.Error().Err(err).Msg("model selection failed, skipping budget")
			sentry.CaptureException(err)
			continue
		}

		if _, err := deployer.Deploy(result); err != nil {
			logger.Error().Err(err).Msg("deployment failed, skipping budget")
			sentry.CaptureException(err)
			continue
		}
		deployed++
	}

	a.Logger.Info().Int("deployed", deployed).Int("budgets", len(budgets)).Msg("training finished")
	if deployed == 0 && len(budgets) > 0 {
		return fmt.Errorf("no budget produced a deployable model")
	}
	return nil
}
