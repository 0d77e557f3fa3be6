// The serve-models command supervises the per-budget model servers: assign a
// port to every budget with a production model, persist the port map for the
// webhook gateway, and keep one model-server process per budget running.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/svanherk/bunqynab/internal/app"
	"github.com/svanherk/bunqynab/internal/mlops"
)

func main() {
	a, err := app.Bootstrap("serve-models")
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := run(a); err != nil {
		a.Logger.Fatal().Err(err).Msg("model serving failed")
	}
}

func run(a *app.App) error {
	ctx := context.Background()

	budgets, err := a.Ynab.Budgets.List(ctx)
	if err != nil {
		return err
	}

	// Only budgets that have a model in production get a server.
	var servable []string
	for _, budget := range budgets {
		if _, _, err := a.Registry.Production(mlops.ModelName(budget.ID)); err != nil {
			a.Logger.Warn().Err(err).Str("budget", budget.ID).Msg("no production model, not serving budget")
			continue
		}
		servable = append(servable, budget.ID)
	}
	if len(servable) == 0 {
		return fmt.Errorf("no budget has a production model, run train-models first")
	}

	assigned, err := a.Ports.Assign(servable, a.Config.ModelBasePort)
	if err != nil {
		return err
	}

	binary, err := serverBinary()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(assigned))
	for budgetID, port := range assigned {
		cmd := exec.CommandContext(runCtx, binary, "-budget", budgetID, "-port", strconv.Itoa(port))
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			cancel()
			return fmt.Errorf("failed to start model server for budget %s: %w", budgetID, err)
		}
		a.Logger.Info().Str("budget", budgetID).Int("port", port).Int("pid", cmd.Process.Pid).Msg("model server started")

		go func(budgetID string, cmd *exec.Cmd) {
			if err := cmd.Wait(); err != nil && runCtx.Err() == nil {
				errCh <- fmt.Errorf("model server for budget %s exited: %w", budgetID, err)
				return
			}
			errCh <- nil
		}(budgetID, cmd)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		cancel()
		if err != nil {
			return err
		}
		return fmt.Errorf("model server exited unexpectedly")
	case sig := <-stop:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down model servers")
		cancel()
	}

	for range assigned {
		<-errCh
	}
	return nil
}

// serverBinary locates the model-server executable next to this one.
func serverBinary() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", err
	}
	binary := filepath.Join(filepath.Dir(self), "model-server")
	if _, err := os.Stat(binary); err != nil {
		return "", fmt.Errorf("model-server binary not found next to %s: %w", self, err)
	}
	return binary, nil
}
